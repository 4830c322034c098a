// internal/tsgen3/registers.go

// Package tsgen3 drives the Harp TimestampGeneratorGen3, the clock source
// that generates and repeats the Harp timestamp bus and reports its battery.
package tsgen3

import (
	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/register"
)

// WhoAmI is the identity class reported by TimestampGeneratorGen3 firmware.
const WhoAmI uint16 = 1158

const (
	AddrConfig               uint8 = 32
	AddrDevicesConnected     uint8 = 33
	AddrRepeaterStatus       uint8 = 34
	AddrBatteryRate          uint8 = 35
	AddrBattery              uint8 = 36
	AddrBatteryThresholdLow  uint8 = 37
	AddrBatteryThresholdHigh uint8 = 38
	AddrBatteryCalibration0  uint8 = 39
	AddrBatteryCalibration1  uint8 = 40
)

// ConfigurationFlags is the payload of the Config register.
type ConfigurationFlags uint8

// RepeaterFlags is the payload of the RepeaterStatus register.
type RepeaterFlags uint8

// BatteryRateConfiguration is the payload of the BatteryRate register.
type BatteryRateConfiguration uint8

var registers = register.MustNew(
	register.Descriptor{Name: "Config", Address: AddrConfig, Type: harp.U8, Count: 1, Access: register.ReadWrite,
		Description: "Device configuration"},
	register.Descriptor{Name: "DevicesConnected", Address: AddrDevicesConnected, Type: harp.U8, Count: 1, Access: register.ReadOnly,
		Description: "Bitmask of ports with a device attached"},
	register.Descriptor{Name: "RepeaterStatus", Address: AddrRepeaterStatus, Type: harp.U8, Count: 1, Access: register.ReadWrite,
		Description: "Whether the device repeats an external timestamp or spreads its own"},
	register.Descriptor{Name: "BatteryRate", Address: AddrBatteryRate, Type: harp.U8, Count: 1, Access: register.ReadWrite,
		Description: "How often the battery value is reported"},
	register.Descriptor{Name: "Battery", Address: AddrBattery, Type: harp.Float, Count: 1, Access: register.ReadOnly | register.Event,
		Description: "Current battery charge"},
	register.Descriptor{Name: "BatteryThresholdLow", Address: AddrBatteryThresholdLow, Type: harp.Float, Count: 1, Access: register.ReadWrite,
		Description: "Charge level below which charging starts"},
	register.Descriptor{Name: "BatteryThresholdHigh", Address: AddrBatteryThresholdHigh, Type: harp.Float, Count: 1, Access: register.ReadWrite,
		Description: "Charge level at which charging stops"},
	register.Descriptor{Name: "BatteryCalibration0", Address: AddrBatteryCalibration0, Type: harp.U16, Count: 1, Access: register.ReadWrite},
	register.Descriptor{Name: "BatteryCalibration1", Address: AddrBatteryCalibration1, Type: harp.U16, Count: 1, Access: register.ReadWrite},
)

var catalog = func() *register.Catalog {
	c, err := register.Merge(register.Core(), registers)
	if err != nil {
		panic(err)
	}
	return c
}()

// Catalog returns the core registers plus the TimestampGeneratorGen3 registers.
func Catalog() *register.Catalog { return catalog }

// Registers returns only the device-specific registers.
func Registers() *register.Catalog { return registers }
