// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/harp-replicator/internal/command"
	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/logging"
	"github.com/tamzrod/harp-replicator/internal/metrics"
	"github.com/tamzrod/harp-replicator/internal/register"
)

// Client is the device surface the poller needs.
type Client interface {
	ReadTimestamped(ctx context.Context, address uint8) (harp.Timestamped[harp.Value], error)
	WhoAmI() uint16
}

// Factory makes one connection attempt.
type Factory func(ctx context.Context) (Client, error)

// Config is the minimal runtime config the poller needs.
type Config struct {
	UnitID   string
	Interval time.Duration
	Reads    []register.Descriptor
	Logger   *zerolog.Logger
}

// Poller is a clock-driven reader of one device.
type Poller struct {
	cfg     Config
	client  Client
	factory Factory
	log     zerolog.Logger
}

// New creates a poller with immutable config. client may be nil when
// factory is set; the first cycle then connects.
func New(cfg Config, client Client, factory Factory) (*Poller, error) {
	if cfg.UnitID == "" {
		return nil, errors.New("poller: unit id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if len(cfg.Reads) == 0 {
		return nil, errors.New("poller: at least one read required")
	}
	if client == nil && factory == nil {
		return nil, errors.New("poller: client or factory required")
	}
	log := logging.Component(cfg.Logger, "poller")
	return &Poller{
		cfg:     cfg,
		client:  client,
		factory: factory,
		log:     log.With().Str("unit", cfg.UnitID).Logger(),
	}, nil
}

// PollOnce performs exactly one poll cycle.
// All-or-nothing: any failure aborts the cycle.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	start := time.Now()
	res := PollResult{
		UnitID: p.cfg.UnitID,
		At:     start,
	}
	defer func() {
		metrics.RecordPoll(p.cfg.UnitID, res.Err == nil, time.Since(start))
	}()

	if p.client == nil {
		c, err := p.factory(ctx)
		if err != nil {
			res.Err = fmt.Errorf("poller: connect: %w", err)
			return res
		}
		p.client = c
	}
	res.WhoAmI = p.client.WhoAmI()

	samples := make([]Sample, 0, len(p.cfg.Reads))
	for _, desc := range p.cfg.Reads {
		tv, err := p.client.ReadTimestamped(ctx, desc.Address)
		if err != nil {
			if connectionLost(err) {
				p.drop()
				res.WhoAmI = 0
			}
			res.Err = fmt.Errorf("poller: read %s: %w", desc.Name, err)
			return res
		}
		samples = append(samples, Sample{Register: desc, Seconds: tv.Seconds, Value: tv.Value})
	}

	// Commit only if all reads succeeded
	res.Samples = samples
	return res
}

// Close releases the current connection, if any.
func (p *Poller) Close() error {
	c := p.client
	p.client = nil
	if cl, ok := c.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// drop discards a dead connection. Without a factory the client is kept.
func (p *Poller) drop() {
	if p.factory == nil {
		return
	}
	p.log.Warn().Msg("device connection lost, reconnecting on next tick")
	_ = p.Close()
}

func connectionLost(err error) bool {
	return errors.Is(err, command.ErrTransport) || errors.Is(err, command.ErrClosed)
}
