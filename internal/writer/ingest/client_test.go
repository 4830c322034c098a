// internal/writer/ingest/client_test.go
package ingest

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestPacketLayout(t *testing.T) {
	b, err := Packet{Area: 3, UnitID: 7, Address: 100, Registers: []uint16{0x406C, 0xCCCD}}.MarshalBinary()
	assert.NilError(t, err)
	assert.DeepEqual(t, b, []byte{
		'R', 'I', 0x01, 0x03,
		0x00, 0x07,
		0x00, 0x64,
		0x00, 0x02,
		0x40, 0x6C, 0xCC, 0xCD,
	})
}

// serveOnce accepts one connection, captures the packet and answers with status.
func serveOnce(t *testing.T, status byte) (string, <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	got := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		hdr := make([]byte, HeaderLen)
		if _, err := io.ReadFull(conn, hdr); err != nil {
			return
		}
		body := make([]byte, 2*(int(hdr[8])<<8|int(hdr[9])))
		if _, err := io.ReadFull(conn, body); err != nil {
			return
		}
		got <- append(hdr, body...)
		_, _ = conn.Write([]byte{status})
	}()
	return ln.Addr().String(), got
}

func TestWriteRegistersAccepted(t *testing.T) {
	addr, got := serveOnce(t, StatusOK)
	c, err := NewEndpointClient(Config{Endpoint: addr, Timeout: time.Second})
	assert.NilError(t, err)

	assert.NilError(t, c.WriteRegisters(3, 1, 20, []uint16{1, 2, 3}))
	pkt := <-got
	assert.Equal(t, len(pkt), HeaderLen+6)
	assert.Equal(t, pkt[7], byte(20))
}

func TestWriteRegistersRejected(t *testing.T) {
	addr, _ := serveOnce(t, StatusRejected)
	c, err := NewEndpointClient(Config{Endpoint: addr, Timeout: time.Second})
	assert.NilError(t, err)

	err = c.WriteRegisters(3, 1, 0, []uint16{1})
	assert.Assert(t, errors.Is(err, ErrRejected))
}

func TestEndpointRequired(t *testing.T) {
	_, err := NewEndpointClient(Config{})
	assert.ErrorContains(t, err, "endpoint required")
}
