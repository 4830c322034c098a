// internal/device/device.go
package device

import (
	"context"
	"fmt"
	"io"

	"github.com/tamzrod/harp-replicator/internal/command"
	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/logging"
	"github.com/tamzrod/harp-replicator/internal/register"
)

// Device is the typed register surface of one Harp device.
// It checks access and wire types against the catalog and nothing else:
// register values are passed through without domain validation.
type Device struct {
	engine  *command.Engine
	catalog *register.Catalog
	whoAmI  uint16
}

func New(engine *command.Engine, catalog *register.Catalog) *Device {
	return &Device{engine: engine, catalog: catalog}
}

// Connect starts an engine on rw and checks the device identity once.
// On any failure the engine is closed and no Device is returned.
func Connect(ctx context.Context, rw io.ReadWriteCloser, catalog *register.Catalog, whoAmI uint16, cfg command.Config) (*Device, error) {
	e := command.New(rw, cfg)
	d := New(e, catalog)

	observed, err := d.ReadWhoAmI(ctx)
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("device: identity check: %w", err)
	}
	if observed != whoAmI {
		_ = e.Close()
		return nil, &UnexpectedDeviceError{Expected: whoAmI, Observed: observed}
	}
	d.whoAmI = observed

	log := logging.Component(cfg.Logger, "device")
	log.Info().Str("device", e.Name()).Uint16("who_am_i", observed).Msg("device connected")
	return d, nil
}

func (d *Device) Catalog() *register.Catalog { return d.catalog }

func (d *Device) Name() string { return d.engine.Name() }

// WhoAmI returns the identity verified by Connect, or 0 for a Device built with New.
func (d *Device) WhoAmI() uint16 { return d.whoAmI }

// Events returns unsolicited device messages. See command.Engine.Events.
func (d *Device) Events() <-chan harp.Message { return d.engine.Events() }

// Done is closed when the connection has ended.
func (d *Device) Done() <-chan struct{} { return d.engine.Done() }

func (d *Device) Close() error { return d.engine.Close() }

func (d *Device) descriptor(address uint8) (register.Descriptor, error) {
	desc, ok := d.catalog.Lookup(address)
	if !ok {
		return register.Descriptor{}, fmt.Errorf("%w: %d", ErrUnknownRegister, address)
	}
	return desc, nil
}

func (d *Device) readable(address uint8) (register.Descriptor, error) {
	desc, err := d.descriptor(address)
	if err != nil {
		return desc, err
	}
	if !desc.Access.Readable() {
		return desc, fmt.Errorf("%w: %s", ErrNotReadable, desc.Name)
	}
	return desc, nil
}

// Read returns the current register value.
func (d *Device) Read(ctx context.Context, address uint8) (harp.Value, error) {
	desc, reply, err := d.read(ctx, address)
	if err != nil {
		return harp.Value{}, err
	}
	v, err := reply.Value(desc.Type)
	if err != nil {
		return harp.Value{}, err
	}
	if err := desc.Check(v); err != nil {
		return harp.Value{}, err
	}
	return v, nil
}

// ReadTimestamped is Read plus the device timestamp of the reply.
// A reply without a timestamp fails with harp.ErrMissingTimestamp.
func (d *Device) ReadTimestamped(ctx context.Context, address uint8) (harp.Timestamped[harp.Value], error) {
	desc, reply, err := d.read(ctx, address)
	if err != nil {
		return harp.Timestamped[harp.Value]{}, err
	}
	tv, err := reply.TimestampedValue(desc.Type)
	if err != nil {
		return harp.Timestamped[harp.Value]{}, err
	}
	if err := desc.Check(tv.Value); err != nil {
		return harp.Timestamped[harp.Value]{}, err
	}
	return tv, nil
}

func (d *Device) read(ctx context.Context, address uint8) (register.Descriptor, harp.Message, error) {
	desc, err := d.readable(address)
	if err != nil {
		return desc, harp.Message{}, err
	}
	reply, err := d.engine.Send(ctx, harp.NewReadCommand(address, desc.Type))
	return desc, reply, err
}

// Write stores v in the register. The value must match the register's
// wire type and element count exactly.
func (d *Device) Write(ctx context.Context, address uint8, v harp.Value) error {
	desc, err := d.descriptor(address)
	if err != nil {
		return err
	}
	if !desc.Access.Writable() {
		return fmt.Errorf("%w: %s", ErrNotWritable, desc.Name)
	}
	if err := desc.Check(v); err != nil {
		return err
	}

	reply, err := d.engine.Send(ctx, harp.NewCommand(address, harp.Write, v))
	if err != nil {
		return err
	}
	_, err = reply.Value(desc.Type)
	return err
}

func (d *Device) expect(address uint8, t harp.PayloadType) error {
	desc, err := d.descriptor(address)
	if err != nil {
		return err
	}
	if desc.Type != t {
		return &harp.TypeMismatchError{Address: address, Expected: desc.Type, Observed: t}
	}
	return nil
}

// ReadAs reads a scalar register as T. T must have the register's wire type.
func ReadAs[T harp.Scalar](ctx context.Context, d *Device, address uint8) (T, error) {
	var zero T
	if err := d.expect(address, harp.TypeOf[T]()); err != nil {
		return zero, err
	}
	v, err := d.Read(ctx, address)
	if err != nil {
		return zero, err
	}
	return harp.As[T](v)
}

// ReadSliceAs reads an array register as []T.
func ReadSliceAs[T harp.Scalar](ctx context.Context, d *Device, address uint8) ([]T, error) {
	if err := d.expect(address, harp.TypeOf[T]()); err != nil {
		return nil, err
	}
	v, err := d.Read(ctx, address)
	if err != nil {
		return nil, err
	}
	return harp.AsSlice[T](v)
}

func ReadTimestampedAs[T harp.Scalar](ctx context.Context, d *Device, address uint8) (harp.Timestamped[T], error) {
	if err := d.expect(address, harp.TypeOf[T]()); err != nil {
		return harp.Timestamped[T]{}, err
	}
	tv, err := d.ReadTimestamped(ctx, address)
	if err != nil {
		return harp.Timestamped[T]{}, err
	}
	v, err := harp.As[T](tv.Value)
	if err != nil {
		return harp.Timestamped[T]{}, err
	}
	return harp.Timestamped[T]{Seconds: tv.Seconds, Value: v}, nil
}

func WriteAs[T harp.Scalar](ctx context.Context, d *Device, address uint8, v ...T) error {
	if err := d.expect(address, harp.TypeOf[T]()); err != nil {
		return err
	}
	return d.Write(ctx, address, harp.ValueFrom(v...))
}
