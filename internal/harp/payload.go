// internal/harp/payload.go
package harp

import "fmt"

// PayloadType is the Harp payload encoding byte.
// Low nibble: element size in bytes. High bits: signed / float / timestamped flags.
type PayloadType uint8

const (
	payloadSizeMask  PayloadType = 0x0F
	payloadSigned    PayloadType = 0x80
	payloadFloat     PayloadType = 0x40
	payloadTimestamp PayloadType = 0x10
)

const (
	U8    PayloadType = 0x01
	S8    PayloadType = 0x81
	U16   PayloadType = 0x02
	S16   PayloadType = 0x82
	U32   PayloadType = 0x04
	S32   PayloadType = 0x84
	U64   PayloadType = 0x08
	S64   PayloadType = 0x88
	Float PayloadType = 0x44
)

// Size returns the element size in bytes.
func (t PayloadType) Size() int {
	return int(t & payloadSizeMask)
}

func (t PayloadType) IsSigned() bool { return t&payloadSigned != 0 }
func (t PayloadType) IsFloat() bool  { return t&payloadFloat != 0 }

// HasTimestamp reports whether the timestamp flag is set.
func (t PayloadType) HasTimestamp() bool { return t&payloadTimestamp != 0 }

// Base strips the timestamp flag.
func (t PayloadType) Base() PayloadType { return t &^ payloadTimestamp }

// Timestamped returns t with the timestamp flag set.
func (t PayloadType) Timestamped() PayloadType { return t | payloadTimestamp }

// Valid reports whether t (ignoring the timestamp flag) is a known payload type.
func (t PayloadType) Valid() bool {
	switch t.Base() {
	case U8, S8, U16, S16, U32, S32, U64, S64, Float:
		return true
	}
	return false
}

func (t PayloadType) String() string {
	var name string
	switch t.Base() {
	case U8:
		name = "U8"
	case S8:
		name = "S8"
	case U16:
		name = "U16"
	case S16:
		name = "S16"
	case U32:
		name = "U32"
	case S32:
		name = "S32"
	case U64:
		name = "U64"
	case S64:
		name = "S64"
	case Float:
		name = "Float"
	default:
		return fmt.Sprintf("PayloadType(0x%02x)", uint8(t))
	}
	if t.HasTimestamp() {
		return "Timestamped" + name
	}
	return name
}

// ParsePayloadType accepts the names produced by String for base types.
func ParsePayloadType(s string) (PayloadType, error) {
	for _, t := range []PayloadType{U8, S8, U16, S16, U32, S32, U64, S64, Float} {
		if t.String() == s {
			return t, nil
		}
	}
	if s == "Float32" {
		return Float, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPayloadType, s)
}
