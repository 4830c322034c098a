// internal/config/normalize.go
package config

import (
	"github.com/tamzrod/harp-replicator/internal/status"
	"github.com/tamzrod/harp-replicator/internal/transport"
)

const (
	DefaultTimeoutMs    = 500
	DefaultIntervalMs   = 1000
	DefaultEventSubject = "harp"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Replicator.Events.NatsURL != "" && cfg.Replicator.Events.Subject == "" {
		cfg.Replicator.Events.Subject = DefaultEventSubject
	}

	for ui := range cfg.Replicator.Units {
		u := &cfg.Replicator.Units[ui]

		if u.Source.BaudRate == 0 {
			u.Source.BaudRate = transport.DefaultBaudRate
		}
		if u.Source.TimeoutMs == 0 {
			u.Source.TimeoutMs = DefaultTimeoutMs
		}
		if u.Poll.IntervalMs == 0 {
			u.Poll.IntervalMs = DefaultIntervalMs
		}
		for ti := range u.Targets {
			if u.Targets[ti].Protocol == "" {
				u.Targets[ti].Protocol = ProtocolModbus
			}
		}

		// device_name: ASCII already validated, truncate to what the status block holds
		if len(u.Source.DeviceName) > status.DeviceNameMaxChars {
			u.Source.DeviceName = u.Source.DeviceName[:status.DeviceNameMaxChars]
		}
	}
}
