// internal/writer/types.go
package writer

import "github.com/tamzrod/harp-replicator/internal/poller"

// Target is one destination memory for a unit's register image.
type Target struct {
	TargetID uint32
	Endpoint string
	Protocol string
	Offset   uint16 // first holding register of the image
}

// StatusPlan locates one device status block in status memory.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// Plan is the fully-built write plan for one unit.
type Plan struct {
	UnitID  string
	Targets []Target
	Status  []StatusPlan // empty when the status block is disabled
}

// Writer writes poll snapshots into targets.
type Writer interface {
	Write(res poller.PollResult) error
}
