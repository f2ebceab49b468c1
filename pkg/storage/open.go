package storage

import (
	"fmt"
	"io"
)

// Kind names a backend implementation.
type Kind string

const (
	KindMemory Kind = "memory"
	KindDir    Kind = "dir"
	KindBolt   Kind = "bolt"
	KindSQLite Kind = "sqlite"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open creates a backend of the given kind at path. The returned Closer
// releases the backend's resources.
func Open(kind Kind, path string) (Backend, io.Closer, error) {
	switch kind {
	case KindMemory:
		return NewMemory(), nopCloser{}, nil
	case KindDir:
		d, err := NewDir(path)
		if err != nil {
			return nil, nil, err
		}
		return d, nopCloser{}, nil
	case KindBolt:
		b, err := OpenBolt(path)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case KindSQLite:
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage kind %q", kind)
	}
}
