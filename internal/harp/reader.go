// internal/harp/reader.go
package harp

import (
	"bufio"
	"encoding/binary"
	"io"
)

// Reader splits a byte stream into Harp frames.
type Reader struct {
	br        *bufio.Reader
	discarded int
}

func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// Discarded returns how many bytes were skipped while resynchronizing.
func (r *Reader) Discarded() int { return r.discarded }

// Next returns the next frame.
//
// Bytes that cannot start a frame are skipped. A frame that was delimited but
// fails validation is consumed and reported as *FrameError; the stream stays
// usable. Any other error comes from the underlying reader and is final.
func (r *Reader) Next() (Message, error) {
	for {
		first, err := r.br.ReadByte()
		if err != nil {
			return Message{}, err
		}
		if !MessageType(first).Valid() {
			r.discarded++
			continue
		}

		frame := []byte{first, 0}
		if frame[1], err = r.br.ReadByte(); err != nil {
			return Message{}, eof(err)
		}

		body := int(frame[1])
		if frame[1] == extendedLength {
			var ext [2]byte
			if _, err := io.ReadFull(r.br, ext[:]); err != nil {
				return Message{}, eof(err)
			}
			frame = append(frame, ext[:]...)
			body = int(binary.LittleEndian.Uint16(ext[:]))
		}

		start := len(frame)
		frame = append(frame, make([]byte, body)...)
		if _, err := io.ReadFull(r.br, frame[start:]); err != nil {
			return Message{}, eof(err)
		}

		m, err := Decode(frame)
		if err != nil {
			fe := &FrameError{Type: MessageType(first), Err: err}
			if body > 0 {
				fe.Address = frame[start]
				fe.HasAddress = true
			}
			return Message{}, fe
		}
		return m, nil
	}
}

func eof(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
