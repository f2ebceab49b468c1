package raft

import (
	"errors"
	"strconv"

	"github.com/dynalloc/dynalloc-go/pkg/nodeid"
	"github.com/dynalloc/dynalloc-go/pkg/storage"
)

const (
	keyCurrentTerm = "current_term"
	keyVotedFor    = "voted_for"
)

// PersistentState is the state Raft requires to survive restarts: the
// current term, the vote cast in it and the log. Every setter writes
// through to storage before updating memory.
type PersistentState struct {
	backend     storage.Backend
	currentTerm uint32
	votedFor    nodeid.NodeID
	log         *Log
}

// NewPersistentState creates the state on backend. Call Init before use.
func NewPersistentState(backend storage.Backend) *PersistentState {
	return &PersistentState{backend: backend, log: NewLog(backend)}
}

// Init loads the state from storage. Missing keys mean a fresh server.
func (s *PersistentState) Init() error {
	if err := s.log.Init(); err != nil {
		return err
	}

	term, err := readUint(s.backend, keyCurrentTerm, 32)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		term = 0
	case err != nil:
		return err
	}
	if uint32(term) < s.log.LastTerm() {
		// The log cannot be ahead of the term it was written in.
		return errors.New("persistent state: current term is older than the last log entry")
	}
	s.currentTerm = uint32(term)

	vote, err := readUint(s.backend, keyVotedFor, 8)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		vote = 0
	case err != nil:
		return err
	}
	s.votedFor = nodeid.NodeID(vote)
	return nil
}

// CurrentTerm returns the current term.
func (s *PersistentState) CurrentTerm() uint32 {
	return s.currentTerm
}

// SetCurrentTerm persists a new current term.
func (s *PersistentState) SetCurrentTerm(term uint32) error {
	if err := s.backend.Set(keyCurrentTerm, strconv.FormatUint(uint64(term), 10)); err != nil {
		return err
	}
	s.currentTerm = term
	return nil
}

// VotedFor returns the node voted for in the current term (0 = none).
func (s *PersistentState) VotedFor() nodeid.NodeID {
	return s.votedFor
}

// IsVotedForSet reports whether a vote was cast in the current term.
func (s *PersistentState) IsVotedForSet() bool {
	return s.votedFor != nodeid.Broadcast
}

// SetVotedFor persists a vote.
func (s *PersistentState) SetVotedFor(id nodeid.NodeID) error {
	if err := s.backend.Set(keyVotedFor, strconv.FormatUint(uint64(id), 10)); err != nil {
		return err
	}
	s.votedFor = id
	return nil
}

// ResetVotedFor clears the vote.
func (s *PersistentState) ResetVotedFor() error {
	return s.SetVotedFor(nodeid.Broadcast)
}

// Log returns the persistent log.
func (s *PersistentState) Log() *Log {
	return s.log
}
