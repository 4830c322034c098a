// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/tamzrod/harp-replicator/internal/register"
	"github.com/tamzrod/harp-replicator/internal/status"
	"github.com/tamzrod/harp-replicator/internal/tsgen3"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	if len(cfg.Replicator.Units) == 0 {
		return fmt.Errorf("config: at least one unit is required")
	}

	seen := make(map[string]bool)
	for _, u := range cfg.Replicator.Units {
		if strings.TrimSpace(u.ID) == "" {
			return fmt.Errorf("config: unit id is required")
		}
		if seen[u.ID] {
			return fmt.Errorf("config: duplicate unit id %q", u.ID)
		}
		seen[u.ID] = true

		if err := validateUnit(u); err != nil {
			return err
		}
	}

	if err := validateStatus(cfg); err != nil {
		return err
	}
	return validateSpans(cfg)
}

func validateUnit(u UnitConfig) error {
	if u.Source.Port == "" && !u.Source.Simulate {
		return fmt.Errorf("unit %q: source.port is required", u.ID)
	}
	if u.Source.BaudRate < 0 || u.Source.TimeoutMs < 0 || u.Poll.IntervalMs < 0 {
		return fmt.Errorf("unit %q: baud_rate, timeout_ms and interval_ms must not be negative", u.ID)
	}

	// device_name sanity (ASCII only)
	for i := 0; i < len(u.Source.DeviceName); i++ {
		if u.Source.DeviceName[i] > 0x7F {
			return fmt.Errorf("unit %q: device_name must contain ASCII characters only", u.ID)
		}
	}

	if len(u.Reads) == 0 {
		return fmt.Errorf("unit %q: at least one read is required", u.ID)
	}
	names := make(map[uint8]string)
	for _, name := range u.Reads {
		desc, err := ResolveRead(name)
		if err != nil {
			return fmt.Errorf("unit %q: %w", u.ID, err)
		}
		if prev, dup := names[desc.Address]; dup {
			return fmt.Errorf("unit %q: register %s listed twice (%q, %q)", u.ID, desc.Name, prev, name)
		}
		names[desc.Address] = name
	}

	for _, t := range u.Targets {
		if t.Endpoint == "" {
			return fmt.Errorf("unit %q: target %d has no endpoint", u.ID, t.ID)
		}
		if t.ID > 255 {
			return fmt.Errorf("unit %q: target id %d out of range (0-255)", u.ID, t.ID)
		}
		switch t.Protocol {
		case "", ProtocolModbus, ProtocolIngest:
		default:
			return fmt.Errorf("unit %q: target %s: unknown protocol %q", u.ID, t.Endpoint, t.Protocol)
		}
	}
	return nil
}

// ResolveRead maps a configured register name to its descriptor.
// Only readable registers can be mirrored.
func ResolveRead(name string) (register.Descriptor, error) {
	desc, ok := tsgen3.Catalog().ByName(name)
	if !ok {
		return register.Descriptor{}, fmt.Errorf("unknown register %q", name)
	}
	if !desc.Access.Readable() {
		return register.Descriptor{}, fmt.Errorf("register %s is not readable", desc.Name)
	}
	return desc, nil
}

// ------------------------------------------------------------
// DEVICE STATUS BLOCK VALIDATION (PER-TARGET, OPT-IN)
// ------------------------------------------------------------
func validateStatus(cfg *Config) error {
	// key = endpoint | status_unit_id | status_slot
	statusOwner := make(map[string]string)

	for _, u := range cfg.Replicator.Units {
		if u.Source.StatusSlot == nil {
			continue
		}

		if cfg.Replicator.StatusMemory.Endpoint == "" {
			return fmt.Errorf("unit %q: status_slot is set but replicator.status_memory.endpoint is empty", u.ID)
		}
		if len(u.Targets) == 0 {
			return fmt.Errorf("unit %q: status_slot is set but no targets are defined", u.ID)
		}

		slot := *u.Source.StatusSlot
		if last := (int(slot)+1)*status.SlotsPerDevice - 1; last > 0xFFFF {
			return fmt.Errorf("unit %q: status_slot %d puts its block past register 65535 (last=%d)", u.ID, slot, last)
		}
		for _, t := range u.Targets {
			if t.StatusUnitID == nil {
				return fmt.Errorf("unit %q: status_slot is set but target %q has no status_unit_id", u.ID, t.Endpoint)
			}

			key := fmt.Sprintf("%s|%d|%d", cfg.Replicator.StatusMemory.Endpoint, *t.StatusUnitID, slot)
			if prev, exists := statusOwner[key]; exists && prev != u.ID {
				return fmt.Errorf(
					"status_slot collision: endpoint=%s status_unit_id=%d slot=%d used by units %q and %q",
					cfg.Replicator.StatusMemory.Endpoint, *t.StatusUnitID, slot, prev, u.ID,
				)
			}
			statusOwner[key] = u.ID
		}
	}
	return nil
}

// ------------------------------------------------------------
// DESTINATION MEMORY GEOMETRY VALIDATION
// ------------------------------------------------------------
func validateSpans(cfg *Config) error {
	type span struct {
		start uint32
		end   uint32
		unit  string
	}

	// key = endpoint | unit id
	spans := make(map[string][]span)

	for _, u := range cfg.Replicator.Units {
		words := 0
		for _, name := range u.Reads {
			desc, _ := ResolveRead(name)
			words += desc.Words()
		}

		for _, t := range u.Targets {
			start := uint32(t.Offset)
			end := start + uint32(words) - 1
			if end > 0xFFFF {
				return fmt.Errorf("unit %q: target %s offset %d + %d words exceeds the register space", u.ID, t.Endpoint, t.Offset, words)
			}

			key := fmt.Sprintf("%s|%d", t.Endpoint, t.ID)
			for _, s := range spans[key] {
				// overlap check (inclusive)
				if !(end < s.start || start > s.end) {
					return fmt.Errorf(
						"memory overlap: endpoint=%s unit_id=%d range=%d-%d overlaps with unit=%s range=%d-%d",
						t.Endpoint, t.ID, start, end, s.unit, s.start, s.end,
					)
				}
			}
			spans[key] = append(spans[key], span{start: start, end: end, unit: u.ID})
		}
	}
	return nil
}
