// internal/writer/builder.go
package writer

import (
	"errors"
	"fmt"
	"time"

	cfg "github.com/tamzrod/harp-replicator/internal/config"
	wingest "github.com/tamzrod/harp-replicator/internal/writer/ingest"
	wmodbus "github.com/tamzrod/harp-replicator/internal/writer/modbus"
)

// BuildPlan converts one unit config into a Writer Plan.
// Assumes config has already passed conflict validation.
func BuildPlan(u cfg.UnitConfig, statusEndpoint string) (Plan, error) {
	if u.ID == "" {
		return Plan{}, errors.New("writer: unit.id required")
	}

	plan := Plan{UnitID: u.ID}
	seen := map[uint8]bool{}

	for _, t := range u.Targets {
		plan.Targets = append(plan.Targets, Target{
			TargetID: t.ID,
			Endpoint: t.Endpoint,
			Protocol: t.Protocol,
			Offset:   t.Offset,
		})

		// status block is opt-in per unit and per target
		if u.Source.StatusSlot == nil || t.StatusUnitID == nil || seen[*t.StatusUnitID] {
			continue
		}
		seen[*t.StatusUnitID] = true
		plan.Status = append(plan.Status, StatusPlan{
			Endpoint:   statusEndpoint,
			UnitID:     *t.StatusUnitID,
			BaseSlot:   *u.Source.StatusSlot,
			DeviceName: u.Source.DeviceName,
		})
	}

	return plan, nil
}

type closer interface {
	endpointClient
	Close() error
}

// BuildEndpointClients creates one client per unique protocol and endpoint,
// including the status memory endpoint when the plan uses it.
func BuildEndpointClients(plan Plan, timeout time.Duration) (map[string]endpointClient, func() error, error) {
	unique := map[string]Target{}
	for _, t := range plan.Targets {
		unique[clientKey(t.Protocol, t.Endpoint)] = t
	}
	for _, sp := range plan.Status {
		unique[clientKey(cfg.ProtocolModbus, sp.Endpoint)] = Target{Endpoint: sp.Endpoint, Protocol: cfg.ProtocolModbus}
	}

	clients := make(map[string]endpointClient)
	var closers []func() error

	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	for key, t := range unique {
		c, err := dial(t, timeout)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		clients[key] = c
		closers = append(closers, c.Close)
	}

	return clients, closeAll, nil
}

func dial(t Target, timeout time.Duration) (closer, error) {
	switch t.Protocol {
	case cfg.ProtocolIngest:
		c, err := wingest.NewEndpointClient(wingest.Config{Endpoint: t.Endpoint, Timeout: timeout})
		if err != nil {
			return nil, err
		}
		return c, nil
	case cfg.ProtocolModbus, "":
		c, err := wmodbus.NewEndpointClient(wmodbus.Config{Endpoint: t.Endpoint, Timeout: timeout})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("writer: unsupported protocol %q", t.Protocol)
}
