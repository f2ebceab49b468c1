package raft

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/storage"
)

const keyLogLastIndex = "log_last_index"

func logKey(index uint32, field string) string {
	return fmt.Sprintf("log%d_%s", index, field)
}

// Log is the persistent allocation log. Index 0 is an empty sentinel
// entry with term 0; real entries start at 1.
type Log struct {
	backend storage.Backend
	entries []nodeid.Entry
}

// NewLog creates a log on backend. Call Init before use.
func NewLog(backend storage.Backend) *Log {
	return &Log{backend: backend, entries: []nodeid.Entry{{}}}
}

// Init loads the log from storage.
func (l *Log) Init() error {
	l.entries = []nodeid.Entry{{}}

	last, err := readUint(l.backend, keyLogLastIndex, 32)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for i := uint32(1); i <= uint32(last); i++ {
		e, err := l.readEntry(i)
		if err != nil {
			return fmt.Errorf("log entry %d: %w", i, err)
		}
		l.entries = append(l.entries, e)
	}
	return nil
}

func (l *Log) readEntry(index uint32) (nodeid.Entry, error) {
	term, err := readUint(l.backend, logKey(index, "term"), 32)
	if err != nil {
		return nodeid.Entry{}, err
	}
	uidHex, err := l.backend.Get(logKey(index, "unique_id"))
	if err != nil {
		return nodeid.Entry{}, err
	}
	uid, err := nodeid.ParseUniqueID(uidHex)
	if err != nil {
		return nodeid.Entry{}, err
	}
	id, err := readUint(l.backend, logKey(index, "node_id"), 8)
	if err != nil {
		return nodeid.Entry{}, err
	}
	return nodeid.Entry{Term: uint32(term), UniqueID: uid, NodeID: nodeid.NodeID(id)}, nil
}

// LastIndex returns the index of the last entry (0 if empty).
func (l *Log) LastIndex() uint32 {
	return uint32(len(l.entries) - 1)
}

// EntryAt returns the entry at index.
func (l *Log) EntryAt(index uint32) (nodeid.Entry, bool) {
	if index > l.LastIndex() {
		return nodeid.Entry{}, false
	}
	return l.entries[index], true
}

// LastTerm returns the term of the last entry.
func (l *Log) LastTerm() uint32 {
	return l.entries[len(l.entries)-1].Term
}

// Append persists e at LastIndex()+1. The entry fields are written before
// the new last index, so a crash in between leaves the log unchanged.
func (l *Log) Append(e nodeid.Entry) error {
	index := l.LastIndex() + 1
	if err := l.backend.Set(logKey(index, "term"), strconv.FormatUint(uint64(e.Term), 10)); err != nil {
		return err
	}
	if err := l.backend.Set(logKey(index, "unique_id"), e.UniqueID.String()); err != nil {
		return err
	}
	if err := l.backend.Set(logKey(index, "node_id"), strconv.FormatUint(uint64(e.NodeID), 10)); err != nil {
		return err
	}
	if err := l.backend.Set(keyLogLastIndex, strconv.FormatUint(uint64(index), 10)); err != nil {
		return err
	}
	l.entries = append(l.entries, e)
	return nil
}

// RemoveEntriesFrom drops entries at index and after. Index 0 cannot be
// removed.
func (l *Log) RemoveEntriesFrom(index uint32) error {
	if index == 0 {
		return fmt.Errorf("cannot remove the sentinel entry")
	}
	if index > l.LastIndex() {
		return nil
	}
	if err := l.backend.Set(keyLogLastIndex, strconv.FormatUint(uint64(index-1), 10)); err != nil {
		return err
	}
	l.entries = l.entries[:index]
	return nil
}

// IsOtherLogUpToDate reports whether a log ending at (lastTerm, lastIndex)
// is at least as up to date as this one.
func (l *Log) IsOtherLogUpToDate(lastTerm, lastIndex uint32) bool {
	if lastTerm != l.LastTerm() {
		return lastTerm > l.LastTerm()
	}
	return lastIndex >= l.LastIndex()
}

func readUint(b storage.Backend, key string, bits int) (uint64, error) {
	s, err := b.Get(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("key %s: %w", key, err)
	}
	return v, nil
}
