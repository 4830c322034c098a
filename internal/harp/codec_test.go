// internal/harp/codec_test.go
package harp

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"gotest.tools/v3/assert"
)

func TestEncodeReadCommandLayout(t *testing.T) {
	b, err := Encode(NewReadCommand(36, Float))
	assert.NilError(t, err)

	// type, length, address, port, payloadType, checksum
	want := []byte{0x01, 0x04, 0x24, 0xFF, 0x44, 0x6C}
	assert.DeepEqual(t, b, want)
	assert.Equal(t, len(b), MinFrameLen)
}

func TestEncodeTimestampedLayout(t *testing.T) {
	m := NewTimestampedMessage(32, Write, 2.5, Uint8(0x03))
	b, err := Encode(m)
	assert.NilError(t, err)

	assert.Equal(t, b[0], byte(Write))
	assert.Equal(t, int(b[1]), len(b)-2)
	assert.Equal(t, PayloadType(b[4]), U8|0x10)
	// seconds=2 little-endian, ticks=15625 (0x3D09) little-endian
	assert.DeepEqual(t, b[5:11], []byte{2, 0, 0, 0, 0x09, 0x3D})
	assert.Equal(t, b[11], byte(0x03))
}

func TestRoundTripAllPayloadTypes(t *testing.T) {
	values := []Value{
		Uint8(0), Uint8(0xFF),
		Int8(-128), Int8(127),
		Uint16(0xBEEF),
		Int16(-12345),
		Uint32(0xDEADBEEF),
		Int32(math.MinInt32),
		Uint64(math.MaxUint64),
		Int64(-1),
		Float32(3.3), Float32(float32(math.Inf(-1))), Float32(-0.0),
		Uint16(1, 2, 3, 4),
	}

	for _, v := range values {
		for _, kind := range []MessageType{Read, Write, Event} {
			for _, stamped := range []bool{false, true} {
				in := NewCommand(40, kind, v)
				if stamped {
					in = NewTimestampedMessage(40, kind, 42.5, v)
				}

				b, err := Encode(in)
				assert.NilError(t, err)

				out, err := Decode(b)
				assert.NilError(t, err, "value=%s kind=%s", v, kind)

				assert.Equal(t, out.Address, in.Address)
				assert.Equal(t, out.Type, kind)
				assert.Equal(t, out.PayloadType, v.Type())
				assert.Equal(t, out.HasTimestamp, stamped)
				if stamped {
					assert.Equal(t, out.Timestamp, 42.5)
				}
				assert.Assert(t, bytes.Equal(out.Payload, v.Bytes()))

				got, err := out.Value(v.Type())
				assert.NilError(t, err)
				assert.Assert(t, got.Equal(v), "got=%s want=%s", got, v)
			}
		}
	}
}

func TestFloatRoundTripIsExact(t *testing.T) {
	b, err := Encode(NewCommand(37, Write, Float32(3.3)))
	assert.NilError(t, err)

	m, err := Decode(b)
	assert.NilError(t, err)

	got, err := Extract[float32](m, Float)
	assert.NilError(t, err)
	assert.Equal(t, math.Float32bits(got), math.Float32bits(3.3))
}

func TestExtractRejectsTypeMismatch(t *testing.T) {
	b, err := Encode(NewTimestampedMessage(36, Read, 1, Float32(3.7)))
	assert.NilError(t, err)

	m, err := Decode(b)
	assert.NilError(t, err)

	_, err = Extract[uint16](m, U16)
	assert.Assert(t, errors.Is(err, ErrTypeMismatch))

	var tm *TypeMismatchError
	assert.Assert(t, errors.As(err, &tm))
	assert.Equal(t, tm.Address, uint8(36))
	assert.Equal(t, tm.Expected, U16)
	assert.Equal(t, tm.Observed, Float)
}

func TestExtractTimestampedRequiresTimestamp(t *testing.T) {
	m := NewCommand(33, Read, Uint8(5))
	_, err := ExtractTimestamped[uint8](m, U8)
	assert.Assert(t, errors.Is(err, ErrMissingTimestamp))

	m = NewTimestampedMessage(33, Read, 7.5, Uint8(5))
	ts, err := ExtractTimestamped[uint8](m, U8)
	assert.NilError(t, err)
	assert.Equal(t, ts.Seconds, 7.5)
	assert.Equal(t, ts.Value, uint8(5))
}

func TestDecodeDetectsSingleByteTamper(t *testing.T) {
	b, err := Encode(NewTimestampedMessage(38, Read, 100, Float32(4.2, 1.5)))
	assert.NilError(t, err)

	payloadStart := len(b) - 1 - 8
	for i := payloadStart; i < len(b)-1; i++ {
		for _, flip := range []byte{0x01, 0x80, 0xFF} {
			tampered := append([]byte(nil), b...)
			tampered[i] ^= flip

			_, err := Decode(tampered)
			assert.Assert(t, errors.Is(err, ErrChecksumMismatch), "byte=%d flip=0x%02x err=%v", i, flip, err)
		}
	}
}

func TestDecodeStrictPrefixIsTruncated(t *testing.T) {
	frames := []Message{
		NewReadCommand(32, U8),
		NewTimestampedMessage(39, Read, 3, Uint16(512)),
		NewCommand(12, Write, Uint8(make([]uint8, 300)...)),
	}
	for _, f := range frames {
		b, err := Encode(f)
		assert.NilError(t, err)
		for n := 0; n < len(b); n++ {
			_, err := Decode(b[:n])
			assert.Assert(t, errors.Is(err, ErrTruncated), "prefix=%d/%d err=%v", n, len(b), err)
		}
	}
}

func TestDecodeExtendedLength(t *testing.T) {
	payload := make([]uint8, 300)
	for i := range payload {
		payload[i] = uint8(i)
	}
	b, err := Encode(NewCommand(12, Write, Uint8(payload...)))
	assert.NilError(t, err)
	assert.Equal(t, b[1], byte(0xFF))

	m, err := Decode(b)
	assert.NilError(t, err)
	assert.Equal(t, m.Count(), 300)
	assert.DeepEqual(t, m.Payload, payload)
}

func TestDecodeUnknownPayloadType(t *testing.T) {
	b := []byte{0x01, 0x04, 0x20, 0xFF, 0x03, 0x00}
	b[5] = checksum(b[:5])

	_, err := Decode(b)
	assert.Assert(t, errors.Is(err, ErrUnknownPayloadType))
}

func TestDecodeRejectsPartialElement(t *testing.T) {
	b := []byte{0x02, 0x05, 0x27, 0xFF, byte(U16), 0x01, 0x00}
	b[6] = checksum(b[:6])

	_, err := Decode(b)
	assert.Assert(t, errors.Is(err, ErrInvalidLength))
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	b, err := Encode(NewReadCommand(32, U8))
	assert.NilError(t, err)

	_, err = Decode(append(b, 0x00))
	assert.Assert(t, errors.Is(err, ErrInvalidLength))
}

func TestEncodeRejectsMalformedMessages(t *testing.T) {
	_, err := Encode(Message{Type: 7, Address: 32, PayloadType: U8})
	assert.Assert(t, errors.Is(err, ErrUnknownMessageType))

	_, err = Encode(Message{Type: Read, Address: 32, PayloadType: 0x03})
	assert.Assert(t, errors.Is(err, ErrUnknownPayloadType))

	_, err = Encode(Message{Type: Write, Address: 39, PayloadType: U16, Payload: []byte{1, 2, 3}})
	assert.Assert(t, errors.Is(err, ErrInvalidPayload))

	_, err = Encode(Message{Type: Write, Address: 39, PayloadType: U16, Payload: []byte{1, 2}, HasTimestamp: true, Timestamp: -1})
	assert.Assert(t, errors.Is(err, ErrInvalidPayload))
}

func TestReaderResynchronizes(t *testing.T) {
	good1, _ := Encode(NewTimestampedMessage(36, Event, 1.5, Float32(3.9)))
	bad, _ := Encode(NewTimestampedMessage(33, Event, 2, Uint8(1)))
	bad[len(bad)-2] ^= 0x10
	good2, _ := Encode(NewTimestampedMessage(34, Read, 3, Uint8(2)))

	var stream bytes.Buffer
	stream.Write([]byte{0x00, 0x42}) // noise
	stream.Write(good1)
	stream.Write(bad)
	stream.Write(good2)

	r := NewReader(&stream)

	m, err := r.Next()
	assert.NilError(t, err)
	assert.Equal(t, m.Address, uint8(36))
	assert.Equal(t, r.Discarded(), 2)

	_, err = r.Next()
	var fe *FrameError
	assert.Assert(t, errors.As(err, &fe))
	assert.Assert(t, fe.HasAddress)
	assert.Equal(t, fe.Address, uint8(33))
	assert.Equal(t, fe.Type, Event)
	assert.Assert(t, errors.Is(err, ErrChecksumMismatch))

	m, err = r.Next()
	assert.NilError(t, err)
	assert.Equal(t, m.Address, uint8(34))

	_, err = r.Next()
	assert.Equal(t, err, io.EOF)
}

func TestReaderMidFrameEOF(t *testing.T) {
	b, _ := Encode(NewReadCommand(32, U8))
	r := NewReader(bytes.NewReader(b[:3]))

	_, err := r.Next()
	assert.Equal(t, err, io.ErrUnexpectedEOF)
}
