package id

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID returns a random (v4) UUID in canonical lowercase form.
func NewID() string { return uuid.NewString() }

// Valid reports whether s is a canonical UUID.
func Valid(s string) bool {
	u, err := uuid.Parse(s)
	return err == nil && u.String() == s
}

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
// Used for opaque tokens where a UUID shape is not wanted.
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
