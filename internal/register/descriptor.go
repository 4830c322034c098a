// internal/register/descriptor.go
package register

import (
	"fmt"
	"strings"

	"github.com/tamzrod/harp-replicator/internal/harp"
)

// Access describes which commands a register accepts.
type Access uint8

const (
	ReadOnly  Access = 1 << iota // R
	WriteOnly                    // W
	Event                        // E: also reported spontaneously by the device

	ReadWrite = ReadOnly | WriteOnly
)

func (a Access) Readable() bool { return a&ReadOnly != 0 }
func (a Access) Writable() bool { return a&WriteOnly != 0 }

func (a Access) String() string {
	var b strings.Builder
	if a.Readable() {
		b.WriteByte('R')
	}
	if a.Writable() {
		b.WriteByte('W')
	}
	if a&Event != 0 {
		b.WriteByte('E')
	}
	return b.String()
}

// Descriptor is one addressable register. It is immutable once placed in a Catalog:
// changing address, type or count is a protocol change, not a runtime one.
type Descriptor struct {
	Name        string
	Address     uint8
	Type        harp.PayloadType
	Count       int
	Access      Access
	Description string
}

// Words returns how many 16-bit words the register occupies when mirrored
// into word-addressed memory.
func (d Descriptor) Words() int {
	return d.Count * ((d.Type.Size() + 1) / 2)
}

// Check validates v against the descriptor's type and element count.
func (d Descriptor) Check(v harp.Value) error {
	if v.Type() != d.Type {
		return &harp.TypeMismatchError{Address: d.Address, Expected: d.Type, Observed: v.Type()}
	}
	if v.Len() != d.Count {
		return fmt.Errorf("%w: %s expects %d element(s), got %d",
			harp.ErrInvalidPayload, d.Name, d.Count, v.Len())
	}
	return nil
}

func (d Descriptor) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("register %d: name required", d.Address)
	}
	if !d.Type.Valid() || d.Type.HasTimestamp() {
		return fmt.Errorf("register %s: %w: 0x%02x", d.Name, harp.ErrUnknownPayloadType, uint8(d.Type))
	}
	if d.Count < 1 {
		return fmt.Errorf("register %s: count must be >= 1", d.Name)
	}
	if d.Access&ReadWrite == 0 {
		return fmt.Errorf("register %s: must be readable or writable", d.Name)
	}
	return nil
}
