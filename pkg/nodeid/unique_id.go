package nodeid

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// UniqueIDLength is the size of a UniqueID in bytes.
const UniqueIDLength = 16

// ErrInvalidUniqueID is returned when a UniqueID cannot be parsed.
var ErrInvalidUniqueID = errors.New("invalid unique ID")

// UniqueID identifies a physical device. It is supplied by the device
// itself and never changes over the device's lifetime.
type UniqueID [UniqueIDLength]byte

// IsZero reports whether all bytes are zero.
func (u UniqueID) IsZero() bool {
	return u == UniqueID{}
}

// String returns the lowercase hex encoding.
func (u UniqueID) String() string {
	return hex.EncodeToString(u[:])
}

// Short returns the first 8 hex digits, for log output.
func (u UniqueID) Short() string {
	return hex.EncodeToString(u[:4])
}

// Bytes returns a copy of the ID as a slice.
func (u UniqueID) Bytes() []byte {
	b := make([]byte, UniqueIDLength)
	copy(b, u[:])
	return b
}

// ParseUniqueID parses 32 hex digits. Dashes, colons and spaces between
// digits are ignored, so UUID notation is accepted as well.
func ParseUniqueID(s string) (UniqueID, error) {
	var u UniqueID
	clean := strings.NewReplacer("-", "", ":", "", " ", "").Replace(s)
	if len(clean) != 2*UniqueIDLength {
		return u, fmt.Errorf("%w: %q has %d hex digits, want %d", ErrInvalidUniqueID, s, len(clean), 2*UniqueIDLength)
	}
	if _, err := hex.Decode(u[:], []byte(clean)); err != nil {
		return u, fmt.Errorf("%w: %v", ErrInvalidUniqueID, err)
	}
	return u, nil
}

// UniqueIDFromBytes copies b into a UniqueID. b must be exactly 16 bytes.
func UniqueIDFromBytes(b []byte) (UniqueID, error) {
	var u UniqueID
	if len(b) != UniqueIDLength {
		return u, fmt.Errorf("%w: length %d", ErrInvalidUniqueID, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// UniqueIDFromUUID converts a UUID into a UniqueID.
func UniqueIDFromUUID(id uuid.UUID) UniqueID {
	return UniqueID(id)
}

// NewRandomUniqueID returns a random (version 4 UUID) UniqueID.
// Useful for simulated devices that lack a hardware identity.
func NewRandomUniqueID() UniqueID {
	return UniqueIDFromUUID(uuid.New())
}

// DeriveUniqueID derives a stable UniqueID from a vendor string and a
// device serial number using HKDF-SHA256. The same inputs always yield
// the same ID.
func DeriveUniqueID(vendor, serial string) (UniqueID, error) {
	var u UniqueID
	if serial == "" {
		return u, fmt.Errorf("%w: empty serial number", ErrInvalidUniqueID)
	}
	r := hkdf.New(sha256.New, []byte(serial), []byte(vendor), []byte("dynalloc unique-id"))
	if _, err := io.ReadFull(r, u[:]); err != nil {
		return u, fmt.Errorf("derive unique ID: %w", err)
	}
	return u, nil
}
