// cmd/replicator/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/harp-replicator/internal/config"
	"github.com/tamzrod/harp-replicator/internal/events"
	"github.com/tamzrod/harp-replicator/internal/logging"
	"github.com/tamzrod/harp-replicator/internal/metrics"
	"github.com/tamzrod/harp-replicator/internal/poller"
	"github.com/tamzrod/harp-replicator/internal/replicator"
	"github.com/tamzrod/harp-replicator/internal/tsgen3"
	"github.com/tamzrod/harp-replicator/internal/writer"
)

func main() {
	logger := logging.Init("harp-replicator")

	if len(os.Args) < 2 {
		logger.Fatal().Msg("usage: replicator <config.yaml>")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], &logger); err != nil {
		logger.Error().Err(err).Msg("replicator stopped")
		stop()
		os.Exit(1)
	}
	logger.Info().Msg("replicator stopped")
}

func run(ctx context.Context, cfgPath string, logger *zerolog.Logger) error {
	// --------------------
	// Load + validate config
	// --------------------
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	// --------------------
	// Shared outputs
	// --------------------
	if addr := cfg.Replicator.Metrics.Listen; addr != "" {
		srv := &http.Server{Addr: addr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info().Str("listen", addr).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer srv.Close()
	}

	var sink *events.Sink
	if ec := cfg.Replicator.Events; ec.NatsURL != "" {
		s, drain, err := events.Dial(ec.NatsURL, ec.Subject, "harp-replicator", logger)
		if err != nil {
			return err
		}
		defer drain()
		sink = s
	}

	// --------------------
	// Build per-unit pipelines
	// --------------------
	for _, u := range cfg.Replicator.Units {
		// ---- poller ----
		unit, err := poller.Build(ctx, u, logger)
		if err != nil {
			return fmt.Errorf("poller build failed (unit=%s): %w", u.ID, err)
		}

		// ---- writer plan ----
		plan, err := writer.BuildPlan(u, cfg.Replicator.StatusMemory.Endpoint)
		if err != nil {
			return fmt.Errorf("writer plan failed (unit=%s): %w", u.ID, err)
		}

		// ---- writer clients (DATA + STATUS) ----
		clients, closeWriters, err := writer.BuildEndpointClients(plan, time.Duration(u.Source.TimeoutMs)*time.Millisecond)
		if err != nil {
			_ = unit.Poller.Close()
			return fmt.Errorf("writer clients failed (unit=%s): %w", u.ID, err)
		}
		defer closeWriters()

		orch := replicator.NewOrchestrator(u.ID, writer.New(plan, clients), writer.NewStatusWriters(plan, clients), logger)

		// ---- channel between poller and writer ----
		out := make(chan poller.PollResult)
		go orch.Run(ctx, out)
		go unit.Poller.Run(ctx, out)

		// ---- device events ----
		if sink != nil {
			go sink.Forward(ctx, u.ID, tsgen3.Catalog(), unit.Events)
		} else {
			go replicator.LogEvents(ctx, u.ID, tsgen3.Catalog(), unit.Events, logger)
		}

		logger.Info().
			Str("unit", u.ID).
			Int("reads", len(u.Reads)).
			Int("targets", len(plan.Targets)).
			Int("status_blocks", len(plan.Status)).
			Msg("unit started")
	}

	<-ctx.Done()
	return nil
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
