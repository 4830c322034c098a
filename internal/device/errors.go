// internal/device/errors.go
package device

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownRegister  = errors.New("device: unknown register")
	ErrNotReadable      = errors.New("device: register is not readable")
	ErrNotWritable      = errors.New("device: register is not writable")
	ErrUnexpectedDevice = errors.New("device: unexpected device")
)

// UnexpectedDeviceError reports a WhoAmI that does not match the driver.
type UnexpectedDeviceError struct {
	Expected uint16
	Observed uint16
}

func (e *UnexpectedDeviceError) Error() string {
	return fmt.Sprintf("device: unexpected device (expected whoAmI %d, observed %d)", e.Expected, e.Observed)
}

func (e *UnexpectedDeviceError) Is(target error) bool { return target == ErrUnexpectedDevice }
