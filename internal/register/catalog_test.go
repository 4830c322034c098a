// internal/register/catalog_test.go
package register

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/tamzrod/harp-replicator/internal/harp"
)

func TestCoreCatalog(t *testing.T) {
	c := Core()

	d, ok := c.Lookup(AddrWhoAmI)
	assert.Assert(t, ok)
	assert.Equal(t, d.Name, "WhoAmI")
	assert.Equal(t, d.Type, harp.U16)
	assert.Assert(t, d.Access.Readable())
	assert.Assert(t, !d.Access.Writable())

	d, ok = c.ByName("device_name")
	assert.Assert(t, ok)
	assert.Equal(t, d.Count, DeviceNameLength)

	all := c.All()
	for i := 1; i < len(all); i++ {
		assert.Assert(t, all[i-1].Address < all[i].Address)
	}
}

func TestNewRejectsCollisions(t *testing.T) {
	_, err := New(
		Descriptor{Name: "A", Address: 32, Type: harp.U8, Count: 1, Access: ReadOnly},
		Descriptor{Name: "B", Address: 32, Type: harp.U8, Count: 1, Access: ReadOnly},
	)
	assert.ErrorContains(t, err, "address collision")

	_, err = New(
		Descriptor{Name: "Battery", Address: 36, Type: harp.Float, Count: 1, Access: ReadOnly},
		Descriptor{Name: "battery", Address: 37, Type: harp.Float, Count: 1, Access: ReadOnly},
	)
	assert.ErrorContains(t, err, "name collision")
}

func TestNewRejectsInvalidDescriptors(t *testing.T) {
	_, err := New(Descriptor{Name: "X", Address: 50, Type: 0x03, Count: 1, Access: ReadOnly})
	assert.Assert(t, errors.Is(err, harp.ErrUnknownPayloadType))

	_, err = New(Descriptor{Name: "X", Address: 50, Type: harp.U8, Count: 0, Access: ReadOnly})
	assert.ErrorContains(t, err, "count")

	_, err = New(Descriptor{Name: "X", Address: 50, Type: harp.U8, Count: 1, Access: Event})
	assert.ErrorContains(t, err, "readable or writable")
}

func TestMerge(t *testing.T) {
	dev := MustNew(Descriptor{Name: "Config", Address: 32, Type: harp.U8, Count: 1, Access: ReadWrite})

	c, err := Merge(Core(), dev)
	assert.NilError(t, err)
	assert.Equal(t, c.Len(), Core().Len()+1)

	_, err = Merge(Core(), Core())
	assert.ErrorContains(t, err, "collision")
}

func TestDescriptorCheck(t *testing.T) {
	d := Descriptor{Name: "Battery", Address: 36, Type: harp.Float, Count: 1, Access: ReadOnly}

	assert.NilError(t, d.Check(harp.Float32(3.3)))
	assert.Assert(t, errors.Is(d.Check(harp.Uint16(3)), harp.ErrTypeMismatch))
	assert.Assert(t, errors.Is(d.Check(harp.Float32(1, 2)), harp.ErrInvalidPayload))
	assert.Equal(t, d.Words(), 2)
}

func TestAccessString(t *testing.T) {
	assert.Equal(t, ReadWrite.String(), "RW")
	assert.Equal(t, (ReadOnly | Event).String(), "RE")
}
