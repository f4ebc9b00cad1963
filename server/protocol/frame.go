// Package protocol implements the framed wire format and the command-line
// tokenizer. Both are stateless; per-connection buffers live with the caller.
package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
)

// ErrPayloadTooLarge is returned when a peer declares a frame larger than
// the configured cap. Sessions treat it like any other read error and close
// without replying; it exists so a scanner spraying garbage headers cannot
// induce a huge allocation.
var ErrPayloadTooLarge = errors.New("declared payload exceeds maximum size")

const headerSize = 8

// WriteFrame writes one message: an 8-byte big-endian payload length
// followed by the payload bytes. Empty payloads are legal.
func WriteFrame(conn io.Writer, payload []byte) error {
	var header [headerSize]byte
	binary.BigEndian.PutUint64(header[:], uint64(len(payload)))

	if w, ok := conn.(net.Conn); ok {
		b := net.Buffers{header[:], payload}
		_, err := b.WriteTo(w)
		return err
	}
	if _, err := conn.Write(header[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := conn.Write(payload)
	return err
}

// ReadFrame reads one message. Partial reads are looped until complete via
// io.ReadFull; a short read or a declared length above maxPayload yields an
// error and the caller terminates the session.
func ReadFrame(conn io.Reader, maxPayload uint64) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint64(header[:])
	if length > maxPayload {
		return nil, ErrPayloadTooLarge
	}
	if length == 0 {
		return []byte{}, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
