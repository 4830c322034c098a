// internal/writer/ingest/client.go
package ingest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Raw Ingest v1 wire constants.
const (
	Magic     = "RI"
	VersionV1 = 0x01
	HeaderLen = 10

	StatusOK       byte = 0x00
	StatusRejected byte = 0x01
)

const defaultTimeout = 2 * time.Second

// ErrRejected is returned when the endpoint refuses a packet.
var ErrRejected = errors.New("writer ingest: rejected")

// Packet is one Raw Ingest v1 write.
//
//	0-1  magic "RI"
//	2    version
//	3    area
//	4-5  unit id
//	6-7  address
//	8-9  register count
//	10+  registers, big-endian
type Packet struct {
	Area      byte
	UnitID    uint8
	Address   uint16
	Registers []uint16
}

func (p Packet) MarshalBinary() ([]byte, error) {
	if len(p.Registers) > 0xFFFF {
		return nil, fmt.Errorf("writer ingest: %d registers exceed packet limit", len(p.Registers))
	}
	b := make([]byte, HeaderLen, HeaderLen+2*len(p.Registers))
	copy(b, Magic)
	b[2] = VersionV1
	b[3] = p.Area
	binary.BigEndian.PutUint16(b[4:], uint16(p.UnitID))
	binary.BigEndian.PutUint16(b[6:], p.Address)
	binary.BigEndian.PutUint16(b[8:], uint16(len(p.Registers)))
	for _, r := range p.Registers {
		b = binary.BigEndian.AppendUint16(b, r)
	}
	return b, nil
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// EndpointClient is stateless: every packet uses its own connection.
type EndpointClient struct {
	endpoint string
	timeout  time.Duration
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer ingest: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &EndpointClient{endpoint: cfg.Endpoint, timeout: cfg.Timeout}, nil
}

func (c *EndpointClient) Close() error { return nil }

// WriteRegisters sends one register image. Implements writer.endpointClient.
func (c *EndpointClient) WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error {
	return c.Send(Packet{Area: area, UnitID: unitID, Address: addr, Registers: regs})
}

func (c *EndpointClient) Send(p Packet) error {
	pkt, err := p.MarshalBinary()
	if err != nil {
		return err
	}

	conn, err := net.DialTimeout("tcp", c.endpoint, c.timeout)
	if err != nil {
		return fmt.Errorf("writer ingest: dial: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(c.timeout))
	if _, err := conn.Write(pkt); err != nil {
		return fmt.Errorf("writer ingest: write: %w", err)
	}

	var resp [1]byte
	if _, err := io.ReadFull(conn, resp[:]); err != nil {
		return fmt.Errorf("writer ingest: read status: %w", err)
	}

	switch resp[0] {
	case StatusOK:
		return nil
	case StatusRejected:
		return ErrRejected
	default:
		return fmt.Errorf("writer ingest: unknown status 0x%02x", resp[0])
	}
}
