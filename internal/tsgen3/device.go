// internal/tsgen3/device.go
package tsgen3

import (
	"context"
	"io"
	"time"

	"github.com/tamzrod/harp-replicator/internal/command"
	"github.com/tamzrod/harp-replicator/internal/device"
	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/transport"
)

// Device is a connected TimestampGeneratorGen3.
type Device struct {
	*device.Device
}

// Options configure Create. Zero values take transport and command defaults.
type Options struct {
	BaudRate    int
	ReadTimeout time.Duration
	Command     command.Config
}

// Create opens the serial port and verifies the device identity.
func Create(ctx context.Context, portName string, opts Options) (*Device, error) {
	port, err := transport.OpenSerial(transport.Config{
		Port:        portName,
		BaudRate:    opts.BaudRate,
		ReadTimeout: opts.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	cfg := opts.Command
	if cfg.Name == "" {
		cfg.Name = portName
	}
	return NewDevice(ctx, port, cfg)
}

// NewDevice connects over any byte stream. rw is closed if the identity check fails.
func NewDevice(ctx context.Context, rw io.ReadWriteCloser, cfg command.Config) (*Device, error) {
	d, err := device.Connect(ctx, rw, Catalog(), WhoAmI, cfg)
	if err != nil {
		return nil, err
	}
	return &Device{Device: d}, nil
}

func (d *Device) ReadConfig(ctx context.Context) (ConfigurationFlags, error) {
	return device.ReadAs[ConfigurationFlags](ctx, d.Device, AddrConfig)
}

func (d *Device) ReadTimestampedConfig(ctx context.Context) (harp.Timestamped[ConfigurationFlags], error) {
	return device.ReadTimestampedAs[ConfigurationFlags](ctx, d.Device, AddrConfig)
}

func (d *Device) WriteConfig(ctx context.Context, v ConfigurationFlags) error {
	return device.WriteAs(ctx, d.Device, AddrConfig, v)
}

// ReadDevicesConnected returns a bitmask with one bit per output port.
func (d *Device) ReadDevicesConnected(ctx context.Context) (uint8, error) {
	return device.ReadAs[uint8](ctx, d.Device, AddrDevicesConnected)
}

func (d *Device) ReadTimestampedDevicesConnected(ctx context.Context) (harp.Timestamped[uint8], error) {
	return device.ReadTimestampedAs[uint8](ctx, d.Device, AddrDevicesConnected)
}

func (d *Device) ReadRepeaterStatus(ctx context.Context) (RepeaterFlags, error) {
	return device.ReadAs[RepeaterFlags](ctx, d.Device, AddrRepeaterStatus)
}

func (d *Device) ReadTimestampedRepeaterStatus(ctx context.Context) (harp.Timestamped[RepeaterFlags], error) {
	return device.ReadTimestampedAs[RepeaterFlags](ctx, d.Device, AddrRepeaterStatus)
}

func (d *Device) WriteRepeaterStatus(ctx context.Context, v RepeaterFlags) error {
	return device.WriteAs(ctx, d.Device, AddrRepeaterStatus, v)
}

func (d *Device) ReadBatteryRate(ctx context.Context) (BatteryRateConfiguration, error) {
	return device.ReadAs[BatteryRateConfiguration](ctx, d.Device, AddrBatteryRate)
}

func (d *Device) ReadTimestampedBatteryRate(ctx context.Context) (harp.Timestamped[BatteryRateConfiguration], error) {
	return device.ReadTimestampedAs[BatteryRateConfiguration](ctx, d.Device, AddrBatteryRate)
}

func (d *Device) WriteBatteryRate(ctx context.Context, v BatteryRateConfiguration) error {
	return device.WriteAs(ctx, d.Device, AddrBatteryRate, v)
}

func (d *Device) ReadBattery(ctx context.Context) (float32, error) {
	return device.ReadAs[float32](ctx, d.Device, AddrBattery)
}

func (d *Device) ReadTimestampedBattery(ctx context.Context) (harp.Timestamped[float32], error) {
	return device.ReadTimestampedAs[float32](ctx, d.Device, AddrBattery)
}

func (d *Device) ReadBatteryThresholdLow(ctx context.Context) (float32, error) {
	return device.ReadAs[float32](ctx, d.Device, AddrBatteryThresholdLow)
}

func (d *Device) ReadTimestampedBatteryThresholdLow(ctx context.Context) (harp.Timestamped[float32], error) {
	return device.ReadTimestampedAs[float32](ctx, d.Device, AddrBatteryThresholdLow)
}

func (d *Device) WriteBatteryThresholdLow(ctx context.Context, v float32) error {
	return device.WriteAs(ctx, d.Device, AddrBatteryThresholdLow, v)
}

func (d *Device) ReadBatteryThresholdHigh(ctx context.Context) (float32, error) {
	return device.ReadAs[float32](ctx, d.Device, AddrBatteryThresholdHigh)
}

func (d *Device) ReadTimestampedBatteryThresholdHigh(ctx context.Context) (harp.Timestamped[float32], error) {
	return device.ReadTimestampedAs[float32](ctx, d.Device, AddrBatteryThresholdHigh)
}

func (d *Device) WriteBatteryThresholdHigh(ctx context.Context, v float32) error {
	return device.WriteAs(ctx, d.Device, AddrBatteryThresholdHigh, v)
}

func (d *Device) ReadBatteryCalibration0(ctx context.Context) (uint16, error) {
	return device.ReadAs[uint16](ctx, d.Device, AddrBatteryCalibration0)
}

func (d *Device) ReadTimestampedBatteryCalibration0(ctx context.Context) (harp.Timestamped[uint16], error) {
	return device.ReadTimestampedAs[uint16](ctx, d.Device, AddrBatteryCalibration0)
}

func (d *Device) WriteBatteryCalibration0(ctx context.Context, v uint16) error {
	return device.WriteAs(ctx, d.Device, AddrBatteryCalibration0, v)
}

func (d *Device) ReadBatteryCalibration1(ctx context.Context) (uint16, error) {
	return device.ReadAs[uint16](ctx, d.Device, AddrBatteryCalibration1)
}

func (d *Device) ReadTimestampedBatteryCalibration1(ctx context.Context) (harp.Timestamped[uint16], error) {
	return device.ReadTimestampedAs[uint16](ctx, d.Device, AddrBatteryCalibration1)
}

func (d *Device) WriteBatteryCalibration1(ctx context.Context, v uint16) error {
	return device.WriteAs(ctx, d.Device, AddrBatteryCalibration1, v)
}
