// internal/command/engine.go
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/logging"
	"github.com/tamzrod/harp-replicator/internal/metrics"
)

// Config is the engine runtime config.
type Config struct {
	// Name labels logs and metrics for this connection.
	Name        string
	Timeout     time.Duration
	EventBuffer int
	Logger      *zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		Name:        "harp",
		Timeout:     time.Second,
		EventBuffer: 256,
	}
}

// Engine sends commands over one connection and correlates replies.
//
// A single write loop serializes outbound frames. A single read loop
// demultiplexes inbound frames: replies resolve the oldest pending command
// with the same address and message type, everything else is forwarded on
// Events.
type Engine struct {
	cfg Config
	log zerolog.Logger
	rw  io.ReadWriteCloser

	writes chan *outbound

	mu       sync.Mutex
	pending  map[uint8][]*pending
	closed   bool
	closeErr error

	events    chan harp.Message
	done      chan struct{}
	closeOnce sync.Once
}

// New starts the read loop on rw. Zero config fields take DefaultConfig values.
func New(rw io.ReadWriteCloser, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}

	log := logging.Component(cfg.Logger, "command")
	e := &Engine{
		cfg:     cfg,
		log:     log.With().Str("device", cfg.Name).Logger(),
		rw:      rw,
		writes:  make(chan *outbound),
		pending: make(map[uint8][]*pending),
		events:  make(chan harp.Message, cfg.EventBuffer),
		done:    make(chan struct{}),
	}
	go e.readLoop()
	go e.writeLoop()
	return e
}

// outbound is one frame handed to the write loop.
type outbound struct {
	frame    []byte
	deadline time.Time
	err      chan error
}

// writeDeadliner is implemented by net.Conn.
type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Name returns the connection label.
func (e *Engine) Name() string { return e.cfg.Name }

// Events delivers device events and replies no command was waiting for.
// The channel is closed when the connection ends.
func (e *Engine) Events() <-chan harp.Message { return e.events }

// Done is closed once the read loop has stopped.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Pending returns the number of commands awaiting a reply.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, q := range e.pending {
		n += len(q)
	}
	return n
}

// Send writes req and blocks until its reply, the command timeout, ctx
// cancellation or a transport failure. There are no retries.
func (e *Engine) Send(ctx context.Context, req harp.Message) (harp.Message, error) {
	kind := req.Type.Base()
	if kind != harp.Read && kind != harp.Write || req.Type.IsError() {
		return harp.Message{}, fmt.Errorf("command: cannot send %s", req.Type)
	}

	frame, err := harp.Encode(req)
	if err != nil {
		return harp.Message{}, err
	}

	start := time.Now()
	p, err := e.register(req.Address, kind)
	if err != nil {
		return harp.Message{}, err
	}

	// The command deadline covers the write as well as the reply.
	timer := time.NewTimer(e.cfg.Timeout)
	defer timer.Stop()

	timeout := &TimeoutError{Address: req.Address, Type: kind, After: e.cfg.Timeout}
	out := &outbound{frame: frame, deadline: start.Add(e.cfg.Timeout), err: make(chan error, 1)}
	var expired error = timeout
	if d, ok := ctx.Deadline(); ok && d.Before(out.deadline) {
		out.deadline = d
		expired = context.DeadlineExceeded
	}

	queue := e.writes
	var written <-chan error
	for {
		select {
		case queue <- out:
			queue, written = nil, out.err

		case err := <-written:
			written = nil
			if err == nil {
				continue
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return e.abandon(p, kind, start, "timeout", expired)
			}
			e.log.Warn().Err(err).Uint8("address", req.Address).Msg("command write failed")
			return e.abandon(p, kind, start, "transport", &TransportError{Address: req.Address, Op: "write", Err: err})

		case r := <-p.result:
			e.record(kind, resultLabel(r.err), start)
			return r.msg, r.err

		case <-timer.C:
			e.log.Debug().Uint8("address", req.Address).Stringer("type", kind).Msg("command timed out")
			return e.abandon(p, kind, start, "timeout", timeout)

		case <-ctx.Done():
			return e.abandon(p, kind, start, "cancelled", ctx.Err())
		}
	}
}

// abandon drops p and returns err. If a reply already took p, the reply wins.
func (e *Engine) abandon(p *pending, kind harp.MessageType, start time.Time, label string, err error) (harp.Message, error) {
	if e.remove(p) {
		e.record(kind, label, start)
		return harp.Message{}, err
	}
	r := <-p.result
	e.record(kind, resultLabel(r.err), start)
	return r.msg, r.err
}

// Close closes the transport and waits for the read loop to exit.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		err = e.rw.Close()
		<-e.done
	})
	return err
}

// writeLoop owns the transport's write side until the read loop stops.
// A frame is only taken off the queue when it can be written right away,
// so a sender that gives up while queued never reaches the wire.
func (e *Engine) writeLoop() {
	for {
		select {
		case <-e.done:
			return
		case out := <-e.writes:
			out.err <- e.write(out.frame, out.deadline)
		}
	}
}

func (e *Engine) write(frame []byte, deadline time.Time) error {
	if wd, ok := e.rw.(writeDeadliner); ok {
		if err := wd.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	for len(frame) > 0 {
		n, err := e.rw.Write(frame)
		if err != nil {
			return err
		}
		frame = frame[n:]
	}
	return nil
}

func (e *Engine) readLoop() {
	defer close(e.done)

	r := harp.NewReader(e.rw)
	for {
		m, err := r.Next()
		if err != nil {
			var fe *harp.FrameError
			if errors.As(err, &fe) {
				e.badFrame(fe)
				continue
			}
			e.shutdown(err)
			return
		}
		e.dispatch(m)
	}
}

func (e *Engine) dispatch(m harp.Message) {
	if m.Type.Base() != harp.Event {
		if p := e.take(m.Address, m.Type.Base()); p != nil {
			if m.Type.IsError() {
				p.resolve(m, &DeviceError{Address: m.Address, Type: m.Type, Reply: m})
			} else {
				p.resolve(m, nil)
			}
			return
		}
		e.log.Debug().Stringer("msg", m).Msg("unmatched reply")
	}

	select {
	case e.events <- m:
		metrics.RecordEvent(e.cfg.Name, "forwarded")
	default:
		metrics.RecordEvent(e.cfg.Name, "dropped")
		e.log.Debug().Stringer("msg", m).Msg("event buffer full, dropping")
	}
}

// badFrame fails the oldest command that the frame could have answered.
// A corrupt event answers nothing.
func (e *Engine) badFrame(fe *harp.FrameError) {
	metrics.RecordDecodeError(e.cfg.Name, decodeKind(fe.Err))
	e.log.Warn().Err(fe.Err).Uint8("address", fe.Address).Bool("has_address", fe.HasAddress).
		Stringer("type", fe.Type).Msg("bad inbound frame")

	if !fe.HasAddress || fe.Type.Base() == harp.Event {
		return
	}
	if p := e.take(fe.Address, fe.Type.Base()); p != nil {
		p.resolve(harp.Message{}, fe.Err)
	}
}

// shutdown fails every in-flight command once the connection is gone.
func (e *Engine) shutdown(cause error) {
	e.mu.Lock()
	e.closed = true
	e.closeErr = cause
	all := e.pending
	e.pending = make(map[uint8][]*pending)
	e.mu.Unlock()

	for addr, q := range all {
		for _, p := range q {
			p.resolve(harp.Message{}, &TransportError{Address: addr, Op: "read", Err: cause})
		}
	}
	close(e.events)

	if errors.Is(cause, io.EOF) || errors.Is(cause, io.ErrClosedPipe) || errors.Is(cause, net.ErrClosed) {
		e.log.Info().Msg("connection closed")
	} else {
		e.log.Error().Err(cause).Msg("read loop stopped")
	}
}

func (e *Engine) record(kind harp.MessageType, result string, start time.Time) {
	metrics.RecordCommand(e.cfg.Name, kind.String(), result, time.Since(start))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDevice):
		return "device_error"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "decode_error"
	}
}

func decodeKind(err error) string {
	switch {
	case errors.Is(err, harp.ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, harp.ErrUnknownPayloadType):
		return "payload_type"
	case errors.Is(err, harp.ErrUnknownMessageType):
		return "message_type"
	case errors.Is(err, harp.ErrTruncated):
		return "truncated"
	default:
		return "length"
	}
}
