// internal/harp/value.go
package harp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Scalar is the set of Go types a Harp payload element can decode into.
// Named types (e.g. a flags byte) are accepted through their underlying kind.
type Scalar interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32
}

// Timestamped pairs a value with the device time it was sampled at.
type Timestamped[T any] struct {
	Seconds float64
	Value   T
}

// Value is a register payload tagged with its wire type.
// The raw bytes are the little-endian elements exactly as they travel on the wire.
type Value struct {
	typ PayloadType
	raw []byte
}

// ValueOf wraps raw payload bytes of type t.
func ValueOf(t PayloadType, raw []byte) (Value, error) {
	t = t.Base()
	if !t.Valid() {
		return Value{}, fmt.Errorf("%w: 0x%02x", ErrUnknownPayloadType, uint8(t))
	}
	if len(raw)%t.Size() != 0 {
		return Value{}, fmt.Errorf("%w: %d bytes is not a multiple of %s", ErrInvalidPayload, len(raw), t)
	}
	return Value{typ: t, raw: append([]byte(nil), raw...)}, nil
}

func (v Value) Type() PayloadType { return v.typ }

// Len returns the element count.
func (v Value) Len() int {
	if v.typ.Size() == 0 {
		return 0
	}
	return len(v.raw) / v.typ.Size()
}

// Bytes returns a copy of the wire payload.
func (v Value) Bytes() []byte { return append([]byte(nil), v.raw...) }

func (v Value) IsZero() bool { return v.typ == 0 && len(v.raw) == 0 }

func (v Value) Equal(o Value) bool {
	return v.typ == o.typ && bytes.Equal(v.raw, o.raw)
}

// TypeOf returns the payload type matching T, or 0 when T has no Harp encoding.
func TypeOf[T Scalar]() PayloadType {
	var zero T
	switch reflect.TypeOf(zero).Kind() {
	case reflect.Uint8:
		return U8
	case reflect.Int8:
		return S8
	case reflect.Uint16:
		return U16
	case reflect.Int16:
		return S16
	case reflect.Uint32:
		return U32
	case reflect.Int32:
		return S32
	case reflect.Uint64:
		return U64
	case reflect.Int64:
		return S64
	case reflect.Float32:
		return Float
	}
	return 0
}

// ValueFrom encodes one or more elements of T.
func ValueFrom[T Scalar](elems ...T) Value {
	t := TypeOf[T]()
	size := t.Size()
	raw := make([]byte, len(elems)*size)
	for i, e := range elems {
		var bits uint64
		if t.IsFloat() {
			bits = uint64(math.Float32bits(float32(e)))
		} else if t.IsSigned() {
			bits = uint64(int64(e))
		} else {
			bits = uint64(e)
		}
		putElem(raw[i*size:], size, bits)
	}
	return Value{typ: t, raw: raw}
}

func Uint8(v ...uint8) Value     { return ValueFrom(v...) }
func Int8(v ...int8) Value       { return ValueFrom(v...) }
func Uint16(v ...uint16) Value   { return ValueFrom(v...) }
func Int16(v ...int16) Value     { return ValueFrom(v...) }
func Uint32(v ...uint32) Value   { return ValueFrom(v...) }
func Int32(v ...int32) Value     { return ValueFrom(v...) }
func Uint64(v ...uint64) Value   { return ValueFrom(v...) }
func Int64(v ...int64) Value     { return ValueFrom(v...) }
func Float32(v ...float32) Value { return ValueFrom(v...) }

// As decodes a single-element value into T.
func As[T Scalar](v Value) (T, error) {
	var zero T
	elems, err := AsSlice[T](v)
	if err != nil {
		return zero, err
	}
	if len(elems) != 1 {
		return zero, fmt.Errorf("%w: expected 1 element, got %d", ErrInvalidPayload, len(elems))
	}
	return elems[0], nil
}

// AsSlice decodes every element of v into T.
func AsSlice[T Scalar](v Value) ([]T, error) {
	want := TypeOf[T]()
	if v.typ != want {
		return nil, &TypeMismatchError{Expected: want, Observed: v.typ}
	}
	size := want.Size()
	out := make([]T, v.Len())
	for i := range out {
		out[i] = decodeElem[T](want, v.raw[i*size:(i+1)*size])
	}
	return out, nil
}

// Extract is the typed payload accessor every register read goes through:
// it refuses frames whose declared type differs from expected.
func Extract[T Scalar](m Message, expected PayloadType) (T, error) {
	var zero T
	v, err := m.Value(expected)
	if err != nil {
		return zero, err
	}
	out, err := As[T](v)
	if err != nil {
		return zero, withAddress(err, m.Address)
	}
	return out, nil
}

// ExtractTimestamped is Extract for replies that must carry a device timestamp.
func ExtractTimestamped[T Scalar](m Message, expected PayloadType) (Timestamped[T], error) {
	out, err := Extract[T](m, expected)
	if err != nil {
		return Timestamped[T]{}, err
	}
	if !m.HasTimestamp {
		return Timestamped[T]{}, fmt.Errorf("%w: address=%d", ErrMissingTimestamp, m.Address)
	}
	return Timestamped[T]{Seconds: m.Timestamp, Value: out}, nil
}

func withAddress(err error, address uint8) error {
	if tm, ok := err.(*TypeMismatchError); ok {
		return &TypeMismatchError{Address: address, Expected: tm.Expected, Observed: tm.Observed}
	}
	return fmt.Errorf("address=%d: %w", address, err)
}

// Interface returns the value as native Go data: a scalar for single-element
// values, a slice otherwise.
func (v Value) Interface() any {
	switch v.typ {
	case U8:
		return pick[uint8](AsSlice[uint8](v))
	case S8:
		return pick[int8](AsSlice[int8](v))
	case U16:
		return pick[uint16](AsSlice[uint16](v))
	case S16:
		return pick[int16](AsSlice[int16](v))
	case U32:
		return pick[uint32](AsSlice[uint32](v))
	case S32:
		return pick[int32](AsSlice[int32](v))
	case U64:
		return pick[uint64](AsSlice[uint64](v))
	case S64:
		return pick[int64](AsSlice[int64](v))
	case Float:
		return pick[float32](AsSlice[float32](v))
	}
	return nil
}

func pick[T Scalar](elems []T, err error) any {
	if err != nil {
		return nil
	}
	if len(elems) == 1 {
		return elems[0]
	}
	return elems
}

// Format renders the value as text: "3.3" for scalars, "1 2 3" for arrays.
func (v Value) Format() string {
	size := v.typ.Size()
	if size == 0 {
		return ""
	}
	parts := make([]string, v.Len())
	for i := range parts {
		bits := getElem(v.raw[i*size:], size)
		switch {
		case v.typ.IsFloat():
			parts[i] = strconv.FormatFloat(float64(math.Float32frombits(uint32(bits))), 'g', -1, 32)
		case v.typ.IsSigned():
			parts[i] = strconv.FormatInt(signExtend(bits, size), 10)
		default:
			parts[i] = strconv.FormatUint(bits, 10)
		}
	}
	return strings.Join(parts, " ")
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%s)", v.typ, v.Format())
}

// ParseValue parses whitespace or comma separated elements of type t.
func ParseValue(t PayloadType, text string) (Value, error) {
	t = t.Base()
	if !t.Valid() {
		return Value{}, fmt.Errorf("%w: 0x%02x", ErrUnknownPayloadType, uint8(t))
	}
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return Value{}, fmt.Errorf("%w: empty value", ErrInvalidPayload)
	}
	size := t.Size()
	raw := make([]byte, len(fields)*size)
	for i, f := range fields {
		var bits uint64
		switch {
		case t.IsFloat():
			x, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return Value{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
			bits = uint64(math.Float32bits(float32(x)))
		case t.IsSigned():
			x, err := strconv.ParseInt(f, 0, size*8)
			if err != nil {
				return Value{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
			bits = uint64(x)
		default:
			x, err := strconv.ParseUint(f, 0, size*8)
			if err != nil {
				return Value{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
			bits = x
		}
		putElem(raw[i*size:], size, bits)
	}
	return Value{typ: t, raw: raw}, nil
}

// Words returns the value as big-endian 16-bit words in element order,
// the layout Modbus holding registers use. 8-bit elements take a full word.
func (v Value) Words() []uint16 {
	size := v.typ.Size()
	if size == 0 {
		return nil
	}
	perElem := (size + 1) / 2
	out := make([]uint16, 0, v.Len()*perElem)
	for i := 0; i < v.Len(); i++ {
		bits := getElem(v.raw[i*size:], size)
		if v.typ.IsSigned() && size == 1 {
			bits = uint64(uint16(int16(int8(bits))))
		}
		for w := perElem - 1; w >= 0; w-- {
			out = append(out, uint16(bits>>(16*uint(w))))
		}
	}
	return out
}

func decodeElem[T Scalar](t PayloadType, b []byte) T {
	bits := getElem(b, t.Size())
	switch {
	case t.IsFloat():
		return T(math.Float32frombits(uint32(bits)))
	case t.IsSigned():
		return T(signExtend(bits, t.Size()))
	default:
		return T(bits)
	}
}

func putElem(dst []byte, size int, bits uint64) {
	switch size {
	case 1:
		dst[0] = byte(bits)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(bits))
	case 4:
		binary.LittleEndian.PutUint32(dst, uint32(bits))
	case 8:
		binary.LittleEndian.PutUint64(dst, bits)
	}
}

func getElem(b []byte, size int) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	case 8:
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func signExtend(bits uint64, size int) int64 {
	switch size {
	case 1:
		return int64(int8(bits))
	case 2:
		return int64(int16(bits))
	case 4:
		return int64(int32(bits))
	}
	return int64(bits)
}
