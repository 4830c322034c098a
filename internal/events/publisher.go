// internal/events/publisher.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/logging"
	"github.com/tamzrod/harp-replicator/internal/register"
)

// Publisher is the subset of *nats.Conn used here.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Event is the JSON document published for each device message.
type Event struct {
	Session   string  `json:"session"`
	Unit      string  `json:"unit"`
	Address   uint8   `json:"address"`
	Register  string  `json:"register"`
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp,omitempty"`
	Value     any     `json:"value"`
}

// Sink publishes device messages under <subject>.<unit>.<register>.
type Sink struct {
	pub     Publisher
	subject string
	session uuid.UUID
	log     zerolog.Logger
}

func NewSink(pub Publisher, subject string, logger *zerolog.Logger) *Sink {
	session := uuid.New()
	log := logging.Component(logger, "events")
	return &Sink{
		pub:     pub,
		subject: strings.TrimSuffix(subject, "."),
		session: session,
		log:     log.With().Str("session", session.String()).Logger(),
	}
}

// Dial connects to NATS and returns a Sink plus a function that drains the connection.
func Dial(url, subject, name string, logger *zerolog.Logger) (*Sink, func(), error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("events: connect %s: %w", url, err)
	}
	s := NewSink(nc, subject, logger)
	s.log.Info().Str("url", nc.ConnectedUrl()).Msg("publishing device events")
	return s, func() { _ = nc.Drain() }, nil
}

func (s *Sink) Session() uuid.UUID { return s.session }

// Subject returns the subject a message for reg on unit is published to.
func (s *Sink) Subject(unit string, reg register.Descriptor) string {
	return s.subject + "." + token(unit) + "." + token(reg.Name)
}

func (s *Sink) Publish(unit string, reg register.Descriptor, m harp.Message) error {
	v, err := m.Value(reg.Type)
	if err != nil {
		return err
	}
	ev := Event{
		Session:  s.session.String(),
		Unit:     unit,
		Address:  m.Address,
		Register: reg.Name,
		Type:     m.Type.String(),
		Value:    v.Interface(),
	}
	if m.HasTimestamp {
		ev.Timestamp = m.Timestamp
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: encode: %w", err)
	}
	return s.pub.Publish(s.Subject(unit, reg), data)
}

// Forward publishes every message from in until it closes or ctx is done.
// Messages for registers outside cat are logged and skipped.
func (s *Sink) Forward(ctx context.Context, unit string, cat *register.Catalog, in <-chan harp.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			reg, known := cat.Lookup(m.Address)
			if !known {
				s.log.Debug().Str("unit", unit).Uint8("address", m.Address).Msg("event for unknown register")
				continue
			}
			if err := s.Publish(unit, reg, m); err != nil {
				s.log.Warn().Err(err).Str("unit", unit).Str("register", reg.Name).Msg("publish failed")
			}
		}
	}
}

// token makes s safe as a single NATS subject token.
func token(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, s)
}
