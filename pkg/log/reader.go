package log

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
)

// Filter selects events. Nil or zero fields match everything.
type Filter struct {
	NodeID    *nodeid.NodeID
	Layer     *Layer
	Category  *Category
	Code      *TraceCode
	TimeStart *time.Time
	TimeEnd   *time.Time
}

func (f *Filter) matches(event Event) bool {
	if f.NodeID != nil && event.NodeID != *f.NodeID {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.Code != nil && (event.Trace == nil || event.Trace.Code != *f.Code) {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// Reader streams events from a trace file.
type Reader struct {
	file      *os.File
	decoder   *cbor.Decoder
	filter    Filter
	truncated bool
}

// NewReader opens a trace file and reads all events.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a trace file and reads events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: newEventDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next matching event, or io.EOF. A partially written
// last event, as left by a killed process, also ends the stream; see
// Truncated.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		err := r.decoder.Decode(&event)
		switch {
		case errors.Is(err, io.ErrUnexpectedEOF):
			r.truncated = true
			return Event{}, io.EOF
		case errors.Is(err, io.EOF):
			return Event{}, io.EOF
		case err != nil:
			return Event{}, err
		}
		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// Truncated reports whether the file ended in the middle of an event.
func (r *Reader) Truncated() bool { return r.truncated }

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
