// Package protocol owns the wire format: length-prefixed frames carrying a
// JSON envelope with a command tag. Peers exchange plain records only —
// room descriptors and identifiers, never internal objects.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Each frame is a 4-byte big-endian payload length followed by the payload.
const lengthSize = 4

// WriteFrame writes one frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	var hdr [lengthSize]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// EncodeFrame returns the frame as a single byte slice.
func EncodeFrame(payload []byte) []byte {
	out := make([]byte, lengthSize+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	copy(out[lengthSize:], payload)
	return out
}

// ReadFrame reads one frame from r. Frames longer than limit fail with
// ErrFrameTooLarge; a zero-length frame is ErrMalformedFrame. Both leave
// the stream positioned at the next frame (the oversize payload is
// drained), so the caller can report the violation and keep reading.
// Transport errors (timeouts, EOF, resets) pass through untouched so the
// caller can tell retry from teardown.
func ReadFrame(r io.Reader, limit int) ([]byte, error) {
	var hdr [lengthSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 {
		return nil, ErrMalformedFrame
	}
	if limit > 0 && n > uint32(limit) {
		if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
