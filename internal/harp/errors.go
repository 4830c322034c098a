// internal/harp/errors.go
package harp

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated          = errors.New("harp: truncated frame")
	ErrChecksumMismatch   = errors.New("harp: checksum mismatch")
	ErrUnknownPayloadType = errors.New("harp: unknown payload type")
	ErrUnknownMessageType = errors.New("harp: unknown message type")
	ErrInvalidLength      = errors.New("harp: declared length does not match payload")
	ErrInvalidPayload     = errors.New("harp: invalid payload")
	ErrTypeMismatch       = errors.New("harp: payload type mismatch")
	ErrMissingTimestamp   = errors.New("harp: missing timestamp")
)

// ChecksumError reports a frame whose trailing checksum disagrees with its contents.
type ChecksumError struct {
	Address  uint8
	Expected uint8
	Observed uint8
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("harp: checksum mismatch: address=%d expected=0x%02x observed=0x%02x",
		e.Address, e.Expected, e.Observed)
}

func (e *ChecksumError) Is(target error) bool { return target == ErrChecksumMismatch }

// TypeMismatchError reports a payload whose declared type differs from the one required.
type TypeMismatchError struct {
	Address  uint8
	Expected PayloadType
	Observed PayloadType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("harp: payload type mismatch: address=%d expected=%s observed=%s",
		e.Address, e.Expected, e.Observed)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// FrameError is returned by Reader when a frame was delimited but is unusable.
// Type is the frame's first byte. When HasAddress is set, Address is the
// register the frame claimed to carry.
type FrameError struct {
	Type       MessageType
	Address    uint8
	HasAddress bool
	Err        error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("harp: bad frame for address %d: %v", e.Address, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }
