// internal/tsgen3/device_test.go
package tsgen3

import (
	"context"
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/tamzrod/harp-replicator/internal/command"
	"github.com/tamzrod/harp-replicator/internal/device"
	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/simulator"
	"github.com/tamzrod/harp-replicator/internal/testutil/testlog"
)

func open(t *testing.T, opts ...simulator.Option) (*Device, *simulator.Device) {
	t.Helper()
	opts = append([]simulator.Option{simulator.WithWhoAmI(WhoAmI), simulator.WithLogger(testlog.Logger(t))}, opts...)
	sim, host := simulator.Start(Catalog(), opts...)
	d, err := NewDevice(context.Background(), host, command.Config{
		Name:    "tsgen3-test",
		Timeout: time.Second,
		Logger:  testlog.Logger(t),
	})
	assert.NilError(t, err)
	t.Cleanup(func() {
		_ = d.Close()
		_ = sim.Close()
	})
	return d, sim
}

func TestCatalogMatchesWireContract(t *testing.T) {
	cases := []struct {
		name     string
		address  uint8
		typ      harp.PayloadType
		writable bool
	}{
		{"Config", 32, harp.U8, true},
		{"DevicesConnected", 33, harp.U8, false},
		{"RepeaterStatus", 34, harp.U8, true},
		{"BatteryRate", 35, harp.U8, true},
		{"Battery", 36, harp.Float, false},
		{"BatteryThresholdLow", 37, harp.Float, true},
		{"BatteryThresholdHigh", 38, harp.Float, true},
		{"BatteryCalibration0", 39, harp.U16, true},
		{"BatteryCalibration1", 40, harp.U16, true},
	}

	assert.Equal(t, Registers().Len(), len(cases))
	for _, tc := range cases {
		desc, ok := Catalog().Lookup(tc.address)
		assert.Assert(t, ok, tc.name)
		assert.Equal(t, desc.Name, tc.name)
		assert.Equal(t, desc.Type, tc.typ, tc.name)
		assert.Equal(t, desc.Count, 1, tc.name)
		assert.Assert(t, desc.Access.Readable(), tc.name)
		assert.Equal(t, desc.Access.Writable(), tc.writable, tc.name)
	}
}

func TestEveryRegisterRoundTripsOnTheWire(t *testing.T) {
	for _, desc := range Registers().All() {
		var v harp.Value
		switch desc.Type {
		case harp.U8:
			v = harp.Uint8(0xA5)
		case harp.U16:
			v = harp.Uint16(0xBEEF)
		case harp.Float:
			v = harp.Float32(3.3)
		}
		for _, kind := range []harp.MessageType{harp.Read, harp.Write, harp.Event} {
			in := harp.NewTimestampedMessage(desc.Address, kind, 10.5, v)
			b, err := harp.Encode(in)
			assert.NilError(t, err, desc.Name)

			out, err := harp.Decode(b)
			assert.NilError(t, err, desc.Name)
			got, err := out.Value(desc.Type)
			assert.NilError(t, err, desc.Name)
			assert.Assert(t, got.Equal(v), desc.Name)
			assert.Equal(t, out.Timestamp, 10.5)
		}
	}
}

func TestBatteryThresholdRoundTrip(t *testing.T) {
	d, _ := open(t)
	ctx := context.Background()

	assert.NilError(t, d.WriteBatteryThresholdLow(ctx, 3.3))
	got, err := d.ReadBatteryThresholdLow(ctx)
	assert.NilError(t, err)
	assert.Equal(t, got, float32(3.3))

	assert.NilError(t, d.WriteBatteryThresholdHigh(ctx, 4.2))
	ts, err := d.ReadTimestampedBatteryThresholdHigh(ctx)
	assert.NilError(t, err)
	assert.Equal(t, ts.Value, float32(4.2))
}

func TestTypedAccessors(t *testing.T) {
	d, sim := open(t)
	ctx := context.Background()
	assert.NilError(t, sim.Set(AddrDevicesConnected, harp.Uint8(0b101)))
	assert.NilError(t, sim.Set(AddrBattery, harp.Float32(3.85)))

	assert.NilError(t, d.WriteConfig(ctx, ConfigurationFlags(0x01)))
	cfg, err := d.ReadConfig(ctx)
	assert.NilError(t, err)
	assert.Equal(t, cfg, ConfigurationFlags(0x01))

	assert.NilError(t, d.WriteRepeaterStatus(ctx, RepeaterFlags(0x02)))
	rs, err := d.ReadTimestampedRepeaterStatus(ctx)
	assert.NilError(t, err)
	assert.Equal(t, rs.Value, RepeaterFlags(0x02))

	assert.NilError(t, d.WriteBatteryRate(ctx, BatteryRateConfiguration(3)))
	rate, err := d.ReadBatteryRate(ctx)
	assert.NilError(t, err)
	assert.Equal(t, rate, BatteryRateConfiguration(3))

	mask, err := d.ReadDevicesConnected(ctx)
	assert.NilError(t, err)
	assert.Equal(t, mask, uint8(0b101))

	battery, err := d.ReadTimestampedBattery(ctx)
	assert.NilError(t, err)
	assert.Equal(t, battery.Value, float32(3.85))

	assert.NilError(t, d.WriteBatteryCalibration0(ctx, 1000))
	assert.NilError(t, d.WriteBatteryCalibration1(ctx, 2000))
	c0, err := d.ReadBatteryCalibration0(ctx)
	assert.NilError(t, err)
	c1, err := d.ReadTimestampedBatteryCalibration1(ctx)
	assert.NilError(t, err)
	assert.Equal(t, c0, uint16(1000))
	assert.Equal(t, c1.Value, uint16(2000))
}

func TestBatteryIsReadOnly(t *testing.T) {
	d, _ := open(t)

	err := d.Write(context.Background(), AddrBattery, harp.Float32(1))
	assert.Assert(t, errors.Is(err, device.ErrNotWritable))
}

func TestWrongDeviceIsRejected(t *testing.T) {
	sim, host := simulator.Start(Catalog(), simulator.WithWhoAmI(1216))
	defer sim.Close()

	_, err := NewDevice(context.Background(), host, command.Config{Timeout: time.Second})
	var ue *device.UnexpectedDeviceError
	assert.Assert(t, errors.As(err, &ue))
	assert.Equal(t, ue.Expected, WhoAmI)
	assert.Equal(t, ue.Observed, uint16(1216))
}

func TestBatteryEvents(t *testing.T) {
	d, sim := open(t)
	assert.NilError(t, sim.Set(AddrBattery, harp.Float32(3.6)))

	go func() { _ = sim.Emit(AddrBattery) }()

	select {
	case ev := <-d.Events():
		assert.Equal(t, ev.Address, AddrBattery)
		v, err := harp.ExtractTimestamped[float32](ev, harp.Float)
		assert.NilError(t, err)
		assert.Equal(t, v.Value, float32(3.6))
	case <-time.After(time.Second):
		t.Fatalf("no battery event")
	}
}
