package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashParts hashes the parts joined with a separator so that
// ("AB","C") and ("A","BC") never collide.
func HashParts(parts ...string) Hash {
	return NewHash([]byte(strings.Join(parts, "\x1f")))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Domain-specific hash types
type (
	// TextHash identifies a ciphertext by content.
	TextHash Hash
	// ConfigHash identifies a search/gate configuration by content.
	ConfigHash Hash
	// Fingerprint identifies a full run (inputs + seed + config).
	Fingerprint Hash
)

// Constructors
func NewTextHash(data []byte) TextHash     { return TextHash(NewHash(data)) }
func NewConfigHash(data []byte) ConfigHash { return ConfigHash(NewHash(data)) }

// NewFingerprint derives a run fingerprint from its labelled parts.
func NewFingerprint(parts ...string) Fingerprint { return Fingerprint(HashParts(parts...)) }

// String conversions
func (h TextHash) String() string    { return Hash(h).String() }
func (h ConfigHash) String() string  { return Hash(h).String() }
func (h Fingerprint) String() string { return Hash(h).String() }
