// internal/harp/codec.go
package harp

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Frame layout:
//
//	type(1) length(1|3) address(1) port(1) payloadType(1) [seconds(4) ticks(2)] payload(n) checksum(1)
//
// length counts every byte after the length field. Values >= 255 are escaped:
// the length byte is 255 and a little-endian uint16 follows.
const (
	extendedLength = 0xFF
	timestampLen   = 6
	tickMicros     = 32
	ticksPerSecond = 1_000_000 / tickMicros

	// address + port + payloadType + checksum
	minBodyLen = 4
	maxBodyLen = math.MaxUint16
)

// MinFrameLen is the size of the smallest valid frame (a read command).
const MinFrameLen = 2 + minBodyLen

// Encode serializes m into a complete frame with a trailing checksum.
func Encode(m Message) ([]byte, error) {
	if !m.Type.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, uint8(m.Type))
	}
	pt := m.PayloadType.Base()
	if !pt.Valid() {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownPayloadType, uint8(m.PayloadType))
	}
	if len(m.Payload)%pt.Size() != 0 {
		return nil, fmt.Errorf("%w: address=%d %d bytes is not a multiple of %s",
			ErrInvalidPayload, m.Address, len(m.Payload), pt)
	}

	body := minBodyLen + len(m.Payload)
	if m.HasTimestamp {
		body += timestampLen
		pt = pt.Timestamped()
	}
	if body > maxBodyLen {
		return nil, fmt.Errorf("%w: address=%d payload too large (%d bytes)", ErrInvalidPayload, m.Address, len(m.Payload))
	}

	buf := make([]byte, 0, 4+body)
	buf = append(buf, byte(m.Type))
	if body < extendedLength {
		buf = append(buf, byte(body))
	} else {
		buf = append(buf, extendedLength, 0, 0)
		binary.LittleEndian.PutUint16(buf[2:4], uint16(body))
	}
	buf = append(buf, m.Address, m.Port, byte(pt))

	if m.HasTimestamp {
		seconds, ticks, err := splitTimestamp(m.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("address=%d: %w", m.Address, err)
		}
		var ts [timestampLen]byte
		binary.LittleEndian.PutUint32(ts[0:4], seconds)
		binary.LittleEndian.PutUint16(ts[4:6], ticks)
		buf = append(buf, ts[:]...)
	}

	buf = append(buf, m.Payload...)
	buf = append(buf, checksum(buf))
	return buf, nil
}

// Decode parses exactly one frame. It never panics on malformed input.
func Decode(b []byte) (Message, error) {
	if len(b) < 2 {
		return Message{}, ErrTruncated
	}

	hdr := 2
	body := int(b[1])
	if b[1] == extendedLength {
		if len(b) < 4 {
			return Message{}, ErrTruncated
		}
		hdr = 4
		body = int(binary.LittleEndian.Uint16(b[2:4]))
	}

	total := hdr + body
	if len(b) < total {
		return Message{}, ErrTruncated
	}
	if len(b) > total {
		return Message{}, fmt.Errorf("%w: %d trailing bytes", ErrInvalidLength, len(b)-total)
	}
	if body < minBodyLen {
		return Message{}, fmt.Errorf("%w: body of %d bytes", ErrInvalidLength, body)
	}

	m := Message{
		Type:     MessageType(b[0]),
		Address:  b[hdr],
		Port:     b[hdr+1],
		Checksum: b[total-1],
	}

	if sum := checksum(b[:total-1]); sum != m.Checksum {
		return Message{}, &ChecksumError{Address: m.Address, Expected: sum, Observed: m.Checksum}
	}
	if !m.Type.Valid() {
		return Message{}, fmt.Errorf("%w: %d", ErrUnknownMessageType, b[0])
	}

	pt := PayloadType(b[hdr+2])
	if !pt.Valid() {
		return Message{}, fmt.Errorf("%w: address=%d type=0x%02x", ErrUnknownPayloadType, m.Address, uint8(pt))
	}
	m.PayloadType = pt.Base()

	off := hdr + 3
	end := total - 1
	if pt.HasTimestamp() {
		if end-off < timestampLen {
			return Message{}, fmt.Errorf("%w: address=%d timestamp flag without timestamp", ErrInvalidLength, m.Address)
		}
		seconds := binary.LittleEndian.Uint32(b[off : off+4])
		ticks := binary.LittleEndian.Uint16(b[off+4 : off+6])
		m.HasTimestamp = true
		m.Timestamp = joinTimestamp(seconds, ticks)
		off += timestampLen
	}

	payload := b[off:end]
	if len(payload)%m.PayloadType.Size() != 0 {
		return Message{}, fmt.Errorf("%w: address=%d %d payload bytes for %s",
			ErrInvalidLength, m.Address, len(payload), m.PayloadType)
	}
	m.Payload = append([]byte(nil), payload...)
	return m, nil
}

// checksum is the byte-wise sum of b modulo 256.
func checksum(b []byte) uint8 {
	var sum uint8
	for _, c := range b {
		sum += c
	}
	return sum
}

func splitTimestamp(ts float64) (uint32, uint16, error) {
	if math.IsNaN(ts) || ts < 0 || ts >= math.MaxUint32 {
		return 0, 0, fmt.Errorf("%w: timestamp %v out of range", ErrInvalidPayload, ts)
	}
	whole := math.Floor(ts)
	ticks := math.Round((ts - whole) * ticksPerSecond)
	if ticks >= ticksPerSecond {
		whole++
		ticks = 0
	}
	if whole > math.MaxUint32 {
		return 0, 0, fmt.Errorf("%w: timestamp %v out of range", ErrInvalidPayload, ts)
	}
	return uint32(whole), uint16(ticks), nil
}

func joinTimestamp(seconds uint32, ticks uint16) float64 {
	return float64(seconds) + float64(uint32(ticks)*tickMicros)/1e6
}
