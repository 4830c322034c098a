// internal/events/publisher_test.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/register"
	"github.com/tamzrod/harp-replicator/internal/testutil/testlog"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, data: data})
	return nil
}

var battery = register.Descriptor{Name: "Battery", Address: 36, Type: harp.Float, Count: 1, Access: register.ReadOnly | register.Event}

func TestPublishEncodesEvent(t *testing.T) {
	pub := &fakePublisher{}
	s := NewSink(pub, "harp.", testlog.Logger(t))

	m := harp.NewTimestampedMessage(36, harp.Event, 12.5, harp.Float32(3.5))
	assert.NilError(t, s.Publish("tsgen.a", battery, m))

	assert.Equal(t, len(pub.msgs), 1)
	assert.Equal(t, pub.msgs[0].subject, "harp.tsgen_a.Battery")

	var got Event
	assert.NilError(t, json.Unmarshal(pub.msgs[0].data, &got))
	assert.Equal(t, got.Session, s.Session().String())
	assert.Equal(t, got.Unit, "tsgen.a")
	assert.Equal(t, got.Address, uint8(36))
	assert.Equal(t, got.Type, "Event")
	assert.Equal(t, got.Timestamp, 12.5)
	assert.Equal(t, got.Value, 3.5)
}

func TestPublishRejectsWrongType(t *testing.T) {
	s := NewSink(&fakePublisher{}, "harp", nil)

	err := s.Publish("u", battery, harp.NewCommand(36, harp.Event, harp.Uint16(1)))
	assert.Assert(t, errors.Is(err, harp.ErrTypeMismatch))
}

func TestForwardSkipsUnknownAndStopsOnClose(t *testing.T) {
	pub := &fakePublisher{}
	s := NewSink(pub, "harp", testlog.Logger(t))
	cat := register.MustNew(battery)

	in := make(chan harp.Message, 3)
	in <- harp.NewCommand(36, harp.Event, harp.Float32(1))
	in <- harp.NewCommand(99, harp.Event, harp.Uint8(1))
	in <- harp.NewCommand(36, harp.Event, harp.Float32(2))
	close(in)

	s.Forward(context.Background(), "unit", cat, in)
	assert.Equal(t, len(pub.msgs), 2)
}

func TestForwardKeepsGoingOnPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	s := NewSink(pub, "harp", testlog.Logger(t))

	in := make(chan harp.Message, 1)
	in <- harp.NewCommand(36, harp.Event, harp.Float32(1))
	close(in)

	s.Forward(context.Background(), "unit", register.MustNew(battery), in)
	assert.Equal(t, len(pub.msgs), 0)
}
