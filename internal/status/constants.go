// internal/status/constants.go
package status

// Status block layout. These values are the wire contract with status
// memory consumers and are not configurable.

// SlotsPerDevice is the size of one device block in holding registers.
// Block n starts at n*SlotsPerDevice.
const SlotsPerDevice = 20

// Live slots.
const (
	SlotHealthCode     = 0 // Health* value
	SlotLastErrorCode  = 1 // Code* value, see CodeFor
	SlotSecondsInError = 2 // saturates at 65535
	SlotWhoAmI         = 3 // identity observed at connect, 0 before the first connect
)

// Slots 4-10 are reserved and always written as zero.
const (
	SlotReservedStart = 4
	SlotReservedEnd   = 10
)

// Device name: 16 ASCII characters, two per slot, at the end of the block.
const (
	SlotDeviceNameStart = 11
	SlotDeviceNameSlots = 8
	SlotDeviceNameEnd   = SlotDeviceNameStart + SlotDeviceNameSlots - 1
	DeviceNameMaxChars  = 2 * SlotDeviceNameSlots
)

// Health codes.
const (
	HealthUnknown  uint16 = 0 // not polled yet
	HealthOK       uint16 = 1
	HealthError    uint16 = 2
	HealthStale    uint16 = 3
	HealthDisabled uint16 = 4
)
