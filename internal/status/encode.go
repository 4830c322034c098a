// internal/status/encode.go
package status

// Encode converts a Snapshot and a packed device name into a full status block.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot, nameRegs []uint16) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotWhoAmI] = s.WhoAmI

	// reserved slots stay zero
	for i := 0; i < SlotDeviceNameSlots && i < len(nameRegs); i++ {
		regs[SlotDeviceNameStart+i] = nameRegs[i]
	}
	return regs
}

// EncodeDeviceName packs up to 16 ASCII characters into 8 registers,
// two characters per register, big-endian. Non-printable bytes become '?'.
func EncodeDeviceName(name string) []uint16 {
	out := make([]uint16, SlotDeviceNameSlots)

	b := []byte(name)
	if len(b) > DeviceNameMaxChars {
		b = b[:DeviceNameMaxChars]
	}
	for i := range b {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < DeviceNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}
	return out
}
