// internal/harp/value_test.go
package harp

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"
)

type flags uint8

func TestTypeOfNamedTypes(t *testing.T) {
	assert.Equal(t, TypeOf[flags](), U8)
	assert.Equal(t, TypeOf[float32](), Float)
	assert.Equal(t, TypeOf[int16](), S16)
}

func TestAsNamedType(t *testing.T) {
	v := ValueFrom(flags(0x05))
	assert.Equal(t, v.Type(), U8)

	got, err := As[flags](v)
	assert.NilError(t, err)
	assert.Equal(t, got, flags(0x05))

	_, err = As[uint16](v)
	assert.Assert(t, errors.Is(err, ErrTypeMismatch))
}

func TestAsRejectsArrays(t *testing.T) {
	_, err := As[uint16](Uint16(1, 2))
	assert.Assert(t, errors.Is(err, ErrInvalidPayload))

	all, err := AsSlice[uint16](Uint16(1, 2))
	assert.NilError(t, err)
	assert.DeepEqual(t, all, []uint16{1, 2})
}

func TestParseAndFormat(t *testing.T) {
	cases := []struct {
		typ  PayloadType
		text string
		want string
	}{
		{U8, "0x1F", "31"},
		{S8, "-3", "-3"},
		{U16, "1024", "1024"},
		{S32, "-70000", "-70000"},
		{Float, "3.3", "3.3"},
		{U16, "1, 2,3", "1 2 3"},
	}
	for _, c := range cases {
		v, err := ParseValue(c.typ, c.text)
		assert.NilError(t, err, c.text)
		assert.Equal(t, v.Format(), c.want)
		assert.Equal(t, v.Type(), c.typ)
	}

	_, err := ParseValue(U8, "256")
	assert.Assert(t, errors.Is(err, ErrInvalidPayload))

	_, err = ParseValue(U8, "")
	assert.Assert(t, errors.Is(err, ErrInvalidPayload))

	_, err = ParseValue(0x03, "1")
	assert.Assert(t, errors.Is(err, ErrUnknownPayloadType))
}

func TestWords(t *testing.T) {
	assert.DeepEqual(t, Uint8(7).Words(), []uint16{7})
	assert.DeepEqual(t, Int8(-1).Words(), []uint16{0xFFFF})
	assert.DeepEqual(t, Uint16(0xBEEF).Words(), []uint16{0xBEEF})
	assert.DeepEqual(t, Uint32(0x12345678).Words(), []uint16{0x1234, 0x5678})
	// IEEE-754 1.0f = 0x3F800000
	assert.DeepEqual(t, Float32(1).Words(), []uint16{0x3F80, 0x0000})
}

func TestInterface(t *testing.T) {
	assert.Equal(t, Float32(2.5).Interface(), any(float32(2.5)))
	assert.DeepEqual(t, Uint16(1, 2).Interface(), any([]uint16{1, 2}))
}

func TestPayloadTypeString(t *testing.T) {
	assert.Equal(t, Float.String(), "Float")
	assert.Equal(t, U16.Timestamped().String(), "TimestampedU16")

	pt, err := ParsePayloadType("Float32")
	assert.NilError(t, err)
	assert.Equal(t, pt, Float)
}
