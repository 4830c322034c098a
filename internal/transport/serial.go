// internal/transport/serial.go
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/goburrow/serial"
)

const (
	DefaultBaudRate    = 1000000
	DefaultReadTimeout = 100 * time.Millisecond
)

// ErrClosed is returned by I/O after Close. It matches net.ErrClosed.
var ErrClosed = fmt.Errorf("transport: port closed: %w", net.ErrClosed)

// Config describes a Harp serial link. Harp devices run 8N1.
type Config struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

func (c Config) normalized() Config {
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}

// Port is a serial connection whose reads block until data arrives or the
// port is closed. Driver read timeouts never surface to the caller.
type Port struct {
	name string
	port io.ReadWriteCloser

	mu     sync.Mutex
	closed bool
}

// OpenSerial opens cfg.Port.
func OpenSerial(cfg Config) (*Port, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("transport: port name is required")
	}
	cfg = cfg.normalized()

	p, err := serial.Open(&serial.Config{
		Address:  cfg.Port,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", cfg.Port, err)
	}
	return wrap(cfg.Port, p), nil
}

func wrap(name string, rw io.ReadWriteCloser) *Port {
	return &Port{name: name, port: rw}
}

func (p *Port) Name() string { return p.name }

func (p *Port) Read(b []byte) (int, error) {
	for {
		n, err := p.port.Read(b)
		if n > 0 {
			return n, nil
		}
		if p.isClosed() {
			return 0, ErrClosed
		}
		if err == nil || errors.Is(err, serial.ErrTimeout) {
			continue
		}
		return 0, err
	}
}

func (p *Port) Write(b []byte) (int, error) {
	if p.isClosed() {
		return 0, ErrClosed
	}
	return p.port.Write(b)
}

func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	return p.port.Close()
}

func (p *Port) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
