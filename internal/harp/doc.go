// internal/harp/doc.go

// Package harp owns the Harp binary wire contract.
//
// Ownership boundary:
// - frame encode/decode and checksum
// - payload types and typed values
// - stream framing (Reader)
//
// Nothing here does I/O beyond reading from a caller-supplied io.Reader.
package harp
