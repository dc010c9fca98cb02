package novacolwire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// MaxFrameSize limits memory usage on malformed input.
const MaxFrameSize = 8 << 20 // 8 MiB

var (
	ErrEmptyFrame    = errors.New("novacolwire: empty frame")
	ErrFrameTooLarge = errors.New("novacolwire: frame too large")
)

// ReadFrame reads a single length-prefixed JSON frame. Numbers decode as
// json.Number so int64 results survive the round trip.
func ReadFrame(r io.Reader, v any) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 {
		return ErrEmptyFrame
	}
	if n > MaxFrameSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, MaxFrameSize)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("novacolwire: bad json: %w", err)
	}
	return nil
}

// WriteFrame writes v as a length-prefixed JSON frame.
func WriteFrame(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("novacolwire: marshal: %w", err)
	}
	if len(b) > MaxFrameSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(b), MaxFrameSize)
	}

	frame := make([]byte, 4+len(b))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(b)))
	copy(frame[4:], b)

	_, err = w.Write(frame)
	return err
}
