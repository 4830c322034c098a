// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/register"
)

// Sample is one register read with the device timestamp of its reply.
type Sample struct {
	Register register.Descriptor
	Seconds  float64
	Value    harp.Value
}

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	UnitID string
	At     time.Time

	// WhoAmI is the identity of the device that answered, 0 when not connected.
	WhoAmI uint16

	Samples []Sample
	Err     error // non-nil means the poll cycle failed
}

// Words flattens the samples into the register image mirrored to targets.
func (r PollResult) Words() []uint16 {
	var out []uint16
	for _, s := range r.Samples {
		out = append(out, s.Value.Words()...)
	}
	return out
}
