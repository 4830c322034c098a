// internal/register/catalog.go
package register

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tamzrod/harp-replicator/internal/harp"
)

// Catalog is a static address -> descriptor table. It is never mutated after New.
type Catalog struct {
	byAddr  map[uint8]Descriptor
	byName  map[string]Descriptor
	ordered []Descriptor
}

// New builds a catalog, rejecting duplicate addresses or names.
func New(descs ...Descriptor) (*Catalog, error) {
	c := &Catalog{
		byAddr: make(map[uint8]Descriptor, len(descs)),
		byName: make(map[string]Descriptor, len(descs)),
	}
	for _, d := range descs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if prev, exists := c.byAddr[d.Address]; exists {
			return nil, fmt.Errorf("register address collision: %d used by %s and %s", d.Address, prev.Name, d.Name)
		}
		key := nameKey(d.Name)
		if prev, exists := c.byName[key]; exists {
			return nil, fmt.Errorf("register name collision: %q at %d and %d", d.Name, prev.Address, d.Address)
		}
		c.byAddr[d.Address] = d
		c.byName[key] = d
		c.ordered = append(c.ordered, d)
	}
	sort.Slice(c.ordered, func(i, j int) bool {
		return c.ordered[i].Address < c.ordered[j].Address
	})
	return c, nil
}

// MustNew is New for static tables.
func MustNew(descs ...Descriptor) *Catalog {
	c, err := New(descs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Merge combines catalogs into a new one. Collisions are errors.
func Merge(cats ...*Catalog) (*Catalog, error) {
	var all []Descriptor
	for _, c := range cats {
		all = append(all, c.ordered...)
	}
	return New(all...)
}

func (c *Catalog) Lookup(address uint8) (Descriptor, bool) {
	d, ok := c.byAddr[address]
	return d, ok
}

// ByName accepts both "BatteryThresholdLow" and "battery_threshold_low".
func (c *Catalog) ByName(name string) (Descriptor, bool) {
	d, ok := c.byName[nameKey(name)]
	return d, ok
}

// All returns the descriptors ordered by address.
func (c *Catalog) All() []Descriptor {
	return append([]Descriptor(nil), c.ordered...)
}

func (c *Catalog) Len() int { return len(c.ordered) }

func nameKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(name)
}

// Common register addresses every Harp device implements.
const (
	AddrWhoAmI                uint8 = 0
	AddrHardwareVersionHigh   uint8 = 1
	AddrHardwareVersionLow    uint8 = 2
	AddrAssemblyVersion       uint8 = 3
	AddrCoreVersionHigh       uint8 = 4
	AddrCoreVersionLow        uint8 = 5
	AddrFirmwareVersionHigh   uint8 = 6
	AddrFirmwareVersionLow    uint8 = 7
	AddrTimestampSeconds      uint8 = 8
	AddrTimestampMicroseconds uint8 = 9
	AddrOperationControl      uint8 = 10
	AddrResetDevice           uint8 = 11
	AddrDeviceName            uint8 = 12
	AddrSerialNumber          uint8 = 13
	AddrClockConfiguration    uint8 = 14

	// DeviceNameLength is the fixed element count of the DeviceName register.
	DeviceNameLength = 25
)

var core = MustNew(
	Descriptor{Name: "WhoAmI", Address: AddrWhoAmI, Type: harp.U16, Count: 1, Access: ReadOnly, Description: "Device identity class"},
	Descriptor{Name: "HardwareVersionHigh", Address: AddrHardwareVersionHigh, Type: harp.U8, Count: 1, Access: ReadOnly},
	Descriptor{Name: "HardwareVersionLow", Address: AddrHardwareVersionLow, Type: harp.U8, Count: 1, Access: ReadOnly},
	Descriptor{Name: "AssemblyVersion", Address: AddrAssemblyVersion, Type: harp.U8, Count: 1, Access: ReadOnly},
	Descriptor{Name: "CoreVersionHigh", Address: AddrCoreVersionHigh, Type: harp.U8, Count: 1, Access: ReadOnly},
	Descriptor{Name: "CoreVersionLow", Address: AddrCoreVersionLow, Type: harp.U8, Count: 1, Access: ReadOnly},
	Descriptor{Name: "FirmwareVersionHigh", Address: AddrFirmwareVersionHigh, Type: harp.U8, Count: 1, Access: ReadOnly},
	Descriptor{Name: "FirmwareVersionLow", Address: AddrFirmwareVersionLow, Type: harp.U8, Count: 1, Access: ReadOnly},
	Descriptor{Name: "TimestampSeconds", Address: AddrTimestampSeconds, Type: harp.U32, Count: 1, Access: ReadWrite | Event, Description: "Device clock, whole seconds"},
	Descriptor{Name: "TimestampMicroseconds", Address: AddrTimestampMicroseconds, Type: harp.U16, Count: 1, Access: ReadOnly, Description: "Device clock, 32 us ticks"},
	Descriptor{Name: "OperationControl", Address: AddrOperationControl, Type: harp.U8, Count: 1, Access: ReadWrite},
	Descriptor{Name: "ResetDevice", Address: AddrResetDevice, Type: harp.U8, Count: 1, Access: ReadWrite},
	Descriptor{Name: "DeviceName", Address: AddrDeviceName, Type: harp.U8, Count: DeviceNameLength, Access: ReadWrite},
	Descriptor{Name: "SerialNumber", Address: AddrSerialNumber, Type: harp.U16, Count: 1, Access: ReadWrite},
	Descriptor{Name: "ClockConfiguration", Address: AddrClockConfiguration, Type: harp.U8, Count: 1, Access: ReadWrite},
)

// Core returns the common registers shared by all Harp devices.
func Core() *Catalog { return core }
