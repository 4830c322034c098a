// internal/status/snapshot.go
package status

// Snapshot is the live part of a status block, as handed to a status writer.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
	WhoAmI         uint16
}
