// Package storage provides key/value backends for the consensus engine's
// persistent state.
//
// Keys are short ASCII strings and values are their string encodings, so
// any backend able to store strings durably works. Four backends are
// provided: Memory (tests and simulation), Dir (one file per key),
// Bolt (single bbolt database file) and SQLite.
package storage
