// internal/simulator/simulator.go

// Package simulator runs an in-memory Harp device over net.Pipe.
//
// The device answers reads and writes for every register in its catalog the
// way firmware does: replies are timestamped, writes to read-only registers
// or with the wrong payload type are answered with an error-flagged reply.
package simulator

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/logging"
	"github.com/tamzrod/harp-replicator/internal/register"
)

type Option func(*Device)

// WithWhoAmI sets the identity reported at register 0.
func WithWhoAmI(id uint16) Option {
	return func(d *Device) { d.values[register.AddrWhoAmI] = harp.Uint16(id) }
}

// WithSilenced makes the device swallow commands for the given addresses.
func WithSilenced(addrs ...uint8) Option {
	return func(d *Device) {
		for _, a := range addrs {
			d.silenced[a] = true
		}
	}
}

// WithValue presets a register.
func WithValue(address uint8, v harp.Value) Option {
	return func(d *Device) { d.values[address] = v }
}

func WithLogger(l *zerolog.Logger) Option {
	return func(d *Device) { d.log = logging.Component(l, "simulator") }
}

// Device is the simulated peer. It owns the device end of the pipe.
type Device struct {
	cat   *register.Catalog
	log   zerolog.Logger
	start time.Time

	conn    net.Conn
	writeMu sync.Mutex

	mu       sync.Mutex
	values   map[uint8]harp.Value
	silenced map[uint8]bool

	done chan struct{}
}

// Start launches a device serving cat and returns it with the host end of the pipe.
func Start(cat *register.Catalog, opts ...Option) (*Device, net.Conn) {
	host, dev := net.Pipe()
	d := &Device{
		cat:      cat,
		log:      zerolog.Nop(),
		start:    time.Now(),
		conn:     dev,
		values:   make(map[uint8]harp.Value),
		silenced: make(map[uint8]bool),
		done:     make(chan struct{}),
	}
	for _, desc := range cat.All() {
		d.values[desc.Address] = zeroValue(desc)
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.serve()
	return d, host
}

func zeroValue(desc register.Descriptor) harp.Value {
	v, _ := harp.ValueOf(desc.Type, make([]byte, desc.Type.Size()*desc.Count))
	return v
}

// Value returns the current contents of a register.
func (d *Device) Value(address uint8) (harp.Value, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.values[address]
	return v, ok
}

// Set changes a register as the firmware would, without a host command.
func (d *Device) Set(address uint8, v harp.Value) error {
	desc, ok := d.cat.Lookup(address)
	if !ok {
		return fmt.Errorf("simulator: unknown register %d", address)
	}
	if err := desc.Check(v); err != nil {
		return err
	}
	d.mu.Lock()
	d.values[address] = v
	d.mu.Unlock()
	return nil
}

// Emit pushes an unsolicited timestamped event carrying the register's value.
func (d *Device) Emit(address uint8) error {
	v, ok := d.Value(address)
	if !ok {
		return fmt.Errorf("simulator: unknown register %d", address)
	}
	return d.send(harp.NewTimestampedMessage(address, harp.Event, d.now(), v))
}

// Close drops the connection.
func (d *Device) Close() error {
	err := d.conn.Close()
	<-d.done
	return err
}

func (d *Device) serve() {
	defer close(d.done)

	r := harp.NewReader(d.conn)
	for {
		m, err := r.Next()
		if err != nil {
			var fe *harp.FrameError
			if errors.As(err, &fe) {
				d.log.Warn().Err(err).Msg("dropping bad command")
				continue
			}
			return
		}
		if err := d.handle(m); err != nil {
			d.log.Debug().Err(err).Msg("reply failed")
			return
		}
	}
}

func (d *Device) handle(m harp.Message) error {
	d.mu.Lock()
	silent := d.silenced[m.Address]
	d.mu.Unlock()
	if silent {
		d.log.Debug().Uint8("address", m.Address).Msg("silenced")
		return nil
	}

	switch m.Type {
	case harp.Read:
		return d.send(d.read(m))
	case harp.Write:
		return d.send(d.write(m))
	default:
		d.log.Debug().Stringer("type", m.Type).Msg("ignoring message")
		return nil
	}
}

func (d *Device) read(m harp.Message) harp.Message {
	desc, ok := d.cat.Lookup(m.Address)
	if !ok || !desc.Access.Readable() || desc.Type != m.PayloadType {
		return d.reject(harp.ReadError, m, desc, ok)
	}
	v, _ := d.Value(m.Address)
	return harp.NewTimestampedMessage(m.Address, harp.Read, d.now(), v)
}

func (d *Device) write(m harp.Message) harp.Message {
	desc, ok := d.cat.Lookup(m.Address)
	if !ok || !desc.Access.Writable() {
		return d.reject(harp.WriteError, m, desc, ok)
	}
	v, err := harp.ValueOf(m.PayloadType, m.Payload)
	if err != nil || desc.Check(v) != nil {
		return d.reject(harp.WriteError, m, desc, ok)
	}

	d.mu.Lock()
	d.values[m.Address] = v
	d.mu.Unlock()
	return harp.NewTimestampedMessage(m.Address, harp.Write, d.now(), v)
}

// reject answers with the error flag set, carrying the register's current
// contents when the register exists.
func (d *Device) reject(t harp.MessageType, m harp.Message, desc register.Descriptor, known bool) harp.Message {
	d.log.Debug().Stringer("type", t).Uint8("address", m.Address).Msg("rejecting command")
	if known {
		v, _ := d.Value(desc.Address)
		return harp.NewTimestampedMessage(m.Address, t, d.now(), v)
	}
	reply := harp.NewTimestampedMessage(m.Address, t, d.now(), harp.Uint8())
	reply.PayloadType = m.PayloadType
	return reply
}

func (d *Device) send(m harp.Message) error {
	b, err := harp.Encode(m)
	if err != nil {
		return err
	}
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	_, err = d.conn.Write(b)
	return err
}

// now is the device clock, whole 32 us ticks since Start.
func (d *Device) now() float64 {
	ticks := time.Since(d.start).Microseconds() / 32
	return float64(ticks*32) / 1e6
}
