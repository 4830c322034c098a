// internal/poller/builder.go
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/harp-replicator/internal/command"
	cfg "github.com/tamzrod/harp-replicator/internal/config"
	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/register"
	"github.com/tamzrod/harp-replicator/internal/simulator"
	"github.com/tamzrod/harp-replicator/internal/tsgen3"
)

// EventBuffer is the capacity of the per-unit event channel.
const EventBuffer = 64

// Unit is a built poller plus the unit's device events.
// Events stays open across reconnects.
type Unit struct {
	Poller *Poller
	Events <-chan harp.Message
}

// Build constructs a Poller and wires the device connection lifecycle.
// Connection is reused while healthy.
// On transport death, Poller discards the client and uses factory on a future tick.
func Build(ctx context.Context, u cfg.UnitConfig, logger *zerolog.Logger) (*Unit, error) {
	reads := make([]register.Descriptor, 0, len(u.Reads))
	for _, name := range u.Reads {
		desc, err := cfg.ResolveRead(name)
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", u.ID, err)
		}
		reads = append(reads, desc)
	}

	events := make(chan harp.Message, EventBuffer)
	timeout := time.Duration(u.Source.TimeoutMs) * time.Millisecond

	// client factory: ONE attempt per call
	factory := func(ctx context.Context) (Client, error) {
		c, err := connect(ctx, u, timeout, logger)
		if err != nil {
			return nil, err
		}
		go forward(c.Events(), events)
		return c, nil
	}

	p, err := New(
		Config{
			UnitID:   u.ID,
			Interval: time.Duration(u.Poll.IntervalMs) * time.Millisecond,
			Reads:    reads,
			Logger:   logger,
		},
		nil,
		factory,
	)
	if err != nil {
		return nil, err
	}

	// initial client (fail fast at startup)
	if p.client, err = factory(ctx); err != nil {
		return nil, fmt.Errorf("unit %s: %w", u.ID, err)
	}
	return &Unit{Poller: p, Events: events}, nil
}

type deviceClient interface {
	Client
	Events() <-chan harp.Message
	Close() error
}

func connect(ctx context.Context, u cfg.UnitConfig, timeout time.Duration, logger *zerolog.Logger) (deviceClient, error) {
	cc := command.Config{
		Name:    u.ID,
		Timeout: timeout,
		Logger:  logger,
	}
	if !u.Source.Simulate {
		d, err := tsgen3.Create(ctx, u.Source.Port, tsgen3.Options{
			BaudRate: u.Source.BaudRate,
			Command:  cc,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	sim, conn := simulator.Start(tsgen3.Catalog(),
		simulator.WithWhoAmI(tsgen3.WhoAmI),
		simulator.WithValue(tsgen3.AddrBattery, harp.Float32(3.7)),
		simulator.WithValue(tsgen3.AddrBatteryThresholdLow, harp.Float32(3.3)),
		simulator.WithValue(tsgen3.AddrBatteryThresholdHigh, harp.Float32(4.2)),
		simulator.WithLogger(logger),
	)
	d, err := tsgen3.NewDevice(ctx, conn, cc)
	if err != nil {
		_ = sim.Close()
		return nil, err
	}
	return &simulated{Device: d, sim: sim}, nil
}

// simulated owns the in-memory peer along with the device.
type simulated struct {
	*tsgen3.Device
	sim *simulator.Device
}

func (s *simulated) Close() error {
	err := s.Device.Close()
	_ = s.sim.Close()
	return err
}

// forward copies device events to the unit channel until the connection ends.
// Events are dropped while the unit channel is full.
func forward(in <-chan harp.Message, out chan<- harp.Message) {
	for m := range in {
		select {
		case out <- m:
		default:
		}
	}
}
