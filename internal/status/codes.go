// internal/status/codes.go
package status

import (
	"context"
	"errors"

	"github.com/tamzrod/harp-replicator/internal/command"
	"github.com/tamzrod/harp-replicator/internal/device"
	"github.com/tamzrod/harp-replicator/internal/harp"
)

// Error codes written to SlotLastErrorCode. Values are stable.
const (
	CodeNone             uint16 = 0
	CodeGeneric          uint16 = 1
	CodeTimeout          uint16 = 2
	CodeTransport        uint16 = 3
	CodeDeviceRejected   uint16 = 4
	CodeChecksum         uint16 = 5
	CodeTypeMismatch     uint16 = 6
	CodeUnexpectedDevice uint16 = 7
	CodeMalformedFrame   uint16 = 8
	CodeMissingTimestamp uint16 = 9
	CodeDisconnected     uint16 = 10
)

// CodeFor classifies err for the status block.
func CodeFor(err error) uint16 {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, command.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, command.ErrClosed):
		return CodeDisconnected
	case errors.Is(err, command.ErrTransport):
		return CodeTransport
	case errors.Is(err, command.ErrDevice):
		return CodeDeviceRejected
	case errors.Is(err, device.ErrUnexpectedDevice):
		return CodeUnexpectedDevice
	case errors.Is(err, harp.ErrChecksumMismatch):
		return CodeChecksum
	case errors.Is(err, harp.ErrTypeMismatch):
		return CodeTypeMismatch
	case errors.Is(err, harp.ErrMissingTimestamp):
		return CodeMissingTimestamp
	case errors.Is(err, harp.ErrTruncated),
		errors.Is(err, harp.ErrInvalidLength),
		errors.Is(err, harp.ErrUnknownPayloadType),
		errors.Is(err, harp.ErrUnknownMessageType),
		errors.Is(err, harp.ErrInvalidPayload):
		return CodeMalformedFrame
	default:
		return CodeGeneric
	}
}
