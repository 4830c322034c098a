// internal/harp/message.go
package harp

import "fmt"

// MessageType is the first byte of every Harp frame.
type MessageType uint8

const (
	Read  MessageType = 1
	Write MessageType = 2
	Event MessageType = 3

	errorFlag MessageType = 0x08

	ReadError  = Read | errorFlag
	WriteError = Write | errorFlag
)

// IsError reports whether the device flagged the message as a failed command.
func (t MessageType) IsError() bool { return t&errorFlag != 0 }

// Base strips the error flag.
func (t MessageType) Base() MessageType { return t &^ errorFlag }

// Valid reports whether t is Read, Write or Event, with or without the error flag.
func (t MessageType) Valid() bool {
	switch t.Base() {
	case Read, Write, Event:
		return true
	}
	return false
}

func (t MessageType) String() string {
	var name string
	switch t.Base() {
	case Read:
		name = "Read"
	case Write:
		name = "Write"
	case Event:
		name = "Event"
	default:
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
	if t.IsError() {
		return name + "Error"
	}
	return name
}

// DefaultPort addresses the device itself rather than a downstream hub port.
const DefaultPort uint8 = 255

// Message is one Harp frame in memory.
// PayloadType never carries the timestamp flag: HasTimestamp does.
type Message struct {
	Type         MessageType
	Address      uint8
	Port         uint8
	PayloadType  PayloadType
	Payload      []byte
	HasTimestamp bool
	Timestamp    float64 // seconds, device clock
	Checksum     uint8   // filled by Decode and Encode
}

// NewReadCommand builds the host request for reading a register of type t.
func NewReadCommand(address uint8, t PayloadType) Message {
	return Message{
		Type:        Read,
		Address:     address,
		Port:        DefaultPort,
		PayloadType: t.Base(),
	}
}

// NewCommand builds a message carrying v.
func NewCommand(address uint8, t MessageType, v Value) Message {
	return Message{
		Type:        t,
		Address:     address,
		Port:        DefaultPort,
		PayloadType: v.Type(),
		Payload:     v.Bytes(),
	}
}

// NewTimestampedMessage builds a message carrying v sampled at seconds.
func NewTimestampedMessage(address uint8, t MessageType, seconds float64, v Value) Message {
	m := NewCommand(address, t, v)
	m.HasTimestamp = true
	m.Timestamp = seconds
	return m
}

// Count returns the number of payload elements.
func (m Message) Count() int {
	size := m.PayloadType.Size()
	if size == 0 {
		return 0
	}
	return len(m.Payload) / size
}

// Value returns the payload as a Value, failing closed if the declared
// type is not expected.
func (m Message) Value(expected PayloadType) (Value, error) {
	if m.PayloadType.Base() != expected.Base() {
		return Value{}, &TypeMismatchError{
			Address:  m.Address,
			Expected: expected.Base(),
			Observed: m.PayloadType.Base(),
		}
	}
	return ValueOf(m.PayloadType.Base(), m.Payload)
}

// TimestampedValue is Value plus the device timestamp.
func (m Message) TimestampedValue(expected PayloadType) (Timestamped[Value], error) {
	v, err := m.Value(expected)
	if err != nil {
		return Timestamped[Value]{}, err
	}
	if !m.HasTimestamp {
		return Timestamped[Value]{}, fmt.Errorf("%w: address=%d", ErrMissingTimestamp, m.Address)
	}
	return Timestamped[Value]{Seconds: m.Timestamp, Value: v}, nil
}

func (m Message) String() string {
	if m.HasTimestamp {
		return fmt.Sprintf("%s addr=%d port=%d type=%s ts=%.6f len=%d",
			m.Type, m.Address, m.Port, m.PayloadType, m.Timestamp, len(m.Payload))
	}
	return fmt.Sprintf("%s addr=%d port=%d type=%s len=%d",
		m.Type, m.Address, m.Port, m.PayloadType, len(m.Payload))
}
