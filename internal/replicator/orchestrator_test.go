// internal/replicator/orchestrator_test.go
package replicator

import (
	"context"
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/tamzrod/harp-replicator/internal/command"
	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/poller"
	"github.com/tamzrod/harp-replicator/internal/status"
	"github.com/tamzrod/harp-replicator/internal/testutil/testlog"
	"github.com/tamzrod/harp-replicator/internal/tsgen3"
	"github.com/tamzrod/harp-replicator/internal/writer"
)

type fakeData struct {
	results []poller.PollResult
	err     error
}

func (f *fakeData) Write(res poller.PollResult) error {
	f.results = append(f.results, res)
	return f.err
}

type fakeStatus struct {
	snaps []status.Snapshot
}

func (f *fakeStatus) WriteStatus(s status.Snapshot) error {
	f.snaps = append(f.snaps, s)
	return nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeData, *fakeStatus) {
	data := &fakeData{}
	st := &fakeStatus{}
	return NewOrchestrator("u1", data, []writer.StatusWriter{st}, testlog.Logger(t)), data, st
}

func TestStartWritesUnknown(t *testing.T) {
	o, _, st := newTestOrchestrator(t)
	o.Start()
	assert.Equal(t, len(st.snaps), 1)
	assert.Equal(t, st.snaps[0].Health, status.HealthUnknown)
}

func TestHandleTracksHealth(t *testing.T) {
	o, data, st := newTestOrchestrator(t)

	o.Handle(poller.PollResult{WhoAmI: tsgen3.WhoAmI})
	assert.Equal(t, len(data.results), 1)
	assert.DeepEqual(t, st.snaps[len(st.snaps)-1], status.Snapshot{Health: status.HealthOK, WhoAmI: tsgen3.WhoAmI})

	// unchanged state writes nothing
	o.Handle(poller.PollResult{WhoAmI: tsgen3.WhoAmI})
	assert.Equal(t, len(st.snaps), 1)

	o.Handle(poller.PollResult{Err: &command.TimeoutError{Address: 36, Type: harp.Read, After: time.Second}})
	last := st.snaps[len(st.snaps)-1]
	assert.Equal(t, last.Health, status.HealthError)
	assert.Equal(t, last.LastErrorCode, status.CodeTimeout)
	// identity survives a failed cycle
	assert.Equal(t, last.WhoAmI, tsgen3.WhoAmI)
}

func TestTickCountsWhileInError(t *testing.T) {
	o, _, st := newTestOrchestrator(t)

	o.Handle(poller.PollResult{WhoAmI: tsgen3.WhoAmI})
	o.Tick()
	assert.Equal(t, len(st.snaps), 1, "healthy unit must not tick")

	o.Handle(poller.PollResult{Err: errors.New("poller: connect: no such device")})
	o.Tick()
	o.Tick()
	assert.Equal(t, o.Snapshot().SecondsInError, uint16(2))
	assert.Equal(t, o.Snapshot().LastErrorCode, status.CodeGeneric)

	o.Handle(poller.PollResult{WhoAmI: tsgen3.WhoAmI})
	assert.Equal(t, o.Snapshot().SecondsInError, uint16(0))
}

func TestRunStopsOnCancel(t *testing.T) {
	o, data, _ := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan poller.PollResult)
	done := make(chan struct{})

	go func() {
		o.Run(ctx, in)
		close(done)
	}()
	in <- poller.PollResult{WhoAmI: tsgen3.WhoAmI}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, len(data.results), 1)
}

func TestLogEventsStopsOnClose(t *testing.T) {
	in := make(chan harp.Message, 2)
	in <- harp.NewTimestampedMessage(tsgen3.AddrBattery, harp.Event, 12.5, harp.Float32(3.6))
	in <- harp.NewCommand(99, harp.Event, harp.Uint8(1))
	close(in)

	LogEvents(context.Background(), "u1", tsgen3.Catalog(), in, testlog.Logger(t))
}
