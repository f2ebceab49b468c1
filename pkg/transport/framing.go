package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	// headerSize is the length of the big-endian uint16 size header that
	// precedes every frame on a hub connection.
	headerSize = 2

	// DefaultMaxMessageSize bounds a single bus frame.
	DefaultMaxMessageSize = 4096

	maxEncodableSize = 1<<16 - 1
)

// Framing errors.
var (
	ErrMessageTooLarge = errors.New("message too large")
	ErrMessageEmpty    = errors.New("message is empty")
	ErrFrameTruncated  = errors.New("frame truncated")
)

// Framer reads and writes size-prefixed frames on a stream. Writes may
// come from several goroutines; reads must come from one.
type Framer struct {
	rw      io.ReadWriter
	maxSize int

	wmu  sync.Mutex
	rhdr [headerSize]byte
}

// NewFramer wraps rw. maxSize of 0, or above what the header can encode,
// selects DefaultMaxMessageSize.
func NewFramer(rw io.ReadWriter, maxSize int) *Framer {
	if maxSize <= 0 || maxSize > maxEncodableSize {
		maxSize = DefaultMaxMessageSize
	}
	return &Framer{rw: rw, maxSize: maxSize}
}

func (f *Framer) checkSize(n int) error {
	if n == 0 {
		return ErrMessageEmpty
	}
	if n > f.maxSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLarge, n, f.maxSize)
	}
	return nil
}

// WriteFrame sends data as one frame.
func (f *Framer) WriteFrame(data []byte) error {
	if err := f.checkSize(len(data)); err != nil {
		return err
	}
	buf := binary.BigEndian.AppendUint16(make([]byte, 0, headerSize+len(data)), uint16(len(data)))
	buf = append(buf, data...)

	f.wmu.Lock()
	_, err := f.rw.Write(buf)
	f.wmu.Unlock()
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame returns the next frame payload. io.EOF means the stream ended
// on a frame boundary.
func (f *Framer) ReadFrame() ([]byte, error) {
	if err := f.readFull(f.rhdr[:], true); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(f.rhdr[:]))
	if err := f.checkSize(n); err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if err := f.readFull(payload, false); err != nil {
		return nil, err
	}
	return payload, nil
}

func (f *Framer) readFull(p []byte, atBoundary bool) error {
	_, err := io.ReadFull(f.rw, p)
	switch {
	case err == nil:
		return nil
	case err == io.EOF && atBoundary:
		return io.EOF
	case err == io.EOF, errors.Is(err, io.ErrUnexpectedEOF):
		return ErrFrameTruncated
	default:
		return fmt.Errorf("read frame: %w", err)
	}
}
