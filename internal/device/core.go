// internal/device/core.go
package device

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tamzrod/harp-replicator/internal/register"
)

// Version is a major.minor pair as stored in the High/Low core registers.
type Version struct {
	Major uint8
	Minor uint8
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

func (d *Device) ReadWhoAmI(ctx context.Context) (uint16, error) {
	return ReadAs[uint16](ctx, d, register.AddrWhoAmI)
}

// ReadDeviceName returns the DeviceName register up to the first NUL.
func (d *Device) ReadDeviceName(ctx context.Context) (string, error) {
	raw, err := ReadSliceAs[uint8](ctx, d, register.AddrDeviceName)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw), nil
}

func (d *Device) ReadFirmwareVersion(ctx context.Context) (Version, error) {
	return d.readVersion(ctx, register.AddrFirmwareVersionHigh, register.AddrFirmwareVersionLow)
}

func (d *Device) ReadHardwareVersion(ctx context.Context) (Version, error) {
	return d.readVersion(ctx, register.AddrHardwareVersionHigh, register.AddrHardwareVersionLow)
}

func (d *Device) readVersion(ctx context.Context, high, low uint8) (Version, error) {
	major, err := ReadAs[uint8](ctx, d, high)
	if err != nil {
		return Version{}, err
	}
	minor, err := ReadAs[uint8](ctx, d, low)
	if err != nil {
		return Version{}, err
	}
	return Version{Major: major, Minor: minor}, nil
}
