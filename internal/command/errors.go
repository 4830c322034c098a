// internal/command/errors.go
package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/harp-replicator/internal/harp"
)

var (
	ErrTimeout   = errors.New("command: timeout")
	ErrTransport = errors.New("command: transport error")
	ErrDevice    = errors.New("command: device rejected command")
	ErrClosed    = errors.New("command: engine closed")
)

// TimeoutError reports a command that saw no matching reply before its deadline.
type TimeoutError struct {
	Address uint8
	Type    harp.MessageType
	After   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command: %s address=%d: no reply after %s", e.Type, e.Address, e.After)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// TransportError wraps an I/O failure on the underlying connection.
type TransportError struct {
	Address uint8
	Op      string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("command: %s failed (address=%d): %v", e.Op, e.Address, e.Err)
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
func (e *TransportError) Unwrap() error        { return e.Err }

// DeviceError is an error-flagged reply: the device understood the frame but refused it.
type DeviceError struct {
	Address uint8
	Type    harp.MessageType
	Reply   harp.Message
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("command: device replied %s for address %d", e.Type, e.Address)
}

func (e *DeviceError) Is(target error) bool { return target == ErrDevice }
