// internal/replicator/orchestrator.go

// Package replicator joins one unit's poller to its writers.
package replicator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/logging"
	"github.com/tamzrod/harp-replicator/internal/poller"
	"github.com/tamzrod/harp-replicator/internal/register"
	"github.com/tamzrod/harp-replicator/internal/status"
	"github.com/tamzrod/harp-replicator/internal/writer"
)

// Orchestrator owns the status state of one unit. It is not safe for
// concurrent use; Run is its only caller in production.
type Orchestrator struct {
	unitID  string
	data    writer.Writer
	status  []writer.StatusWriter
	tracker *status.Tracker
	log     zerolog.Logger
}

func NewOrchestrator(unitID string, data writer.Writer, sws []writer.StatusWriter, logger *zerolog.Logger) *Orchestrator {
	log := logging.Component(logger, "replicator")
	return &Orchestrator{
		unitID:  unitID,
		data:    data,
		status:  sws,
		tracker: status.NewTracker(),
		log:     log.With().Str("unit", unitID).Logger(),
	}
}

// Snapshot returns the current status block contents.
func (o *Orchestrator) Snapshot() status.Snapshot { return o.tracker.Snapshot() }

// Start writes the initial status block (identity re-assert).
func (o *Orchestrator) Start() {
	o.writeStatus("start")
}

// Handle delivers one poll result and updates status.
func (o *Orchestrator) Handle(res poller.PollResult) {
	if err := o.data.Write(res); err != nil {
		o.log.Warn().Err(err).Msg("writer error")
	}

	changed := false
	if res.WhoAmI != 0 {
		changed = o.tracker.Connected(res.WhoAmI)
	}
	if o.tracker.Observe(res.Err) {
		changed = true
		if res.Err != nil {
			o.log.Error().Err(res.Err).Uint16("code", status.CodeFor(res.Err)).Msg("poll failed")
		} else {
			o.log.Info().Msg("poll healthy")
		}
	}
	if changed {
		o.writeStatus("poll")
	}
}

// Tick is called at 1 Hz.
func (o *Orchestrator) Tick() {
	if o.tracker.Tick() {
		o.writeStatus("tick")
	}
}

func (o *Orchestrator) writeStatus(reason string) {
	s := o.tracker.Snapshot()
	for _, sw := range o.status {
		if err := sw.WriteStatus(s); err != nil {
			o.log.Warn().Err(err).Str("reason", reason).Msg("status write failed")
		}
	}
}

// Run consumes poll results until ctx ends.
func (o *Orchestrator) Run(ctx context.Context, results <-chan poller.PollResult) {
	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	o.Start()
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-results:
			o.Handle(res)
		case <-secTicker.C:
			o.Tick()
		}
	}
}

// LogEvents logs device events when no publisher is configured.
func LogEvents(ctx context.Context, unitID string, cat *register.Catalog, in <-chan harp.Message, logger *zerolog.Logger) {
	log := logging.Component(logger, "events")
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			ev := log.Info().Str("unit", unitID).Uint8("address", m.Address)
			if reg, known := cat.Lookup(m.Address); known {
				if v, err := m.Value(reg.Type); err == nil {
					ev = ev.Str("register", reg.Name).Str("value", v.Format())
				}
			}
			if m.HasTimestamp {
				ev = ev.Float64("timestamp", m.Timestamp)
			}
			ev.Msg("device event")
		}
	}
}
