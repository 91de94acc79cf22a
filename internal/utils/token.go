package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// sessionTokenBytes is the entropy of an admin session token (64 hex chars).
const sessionTokenBytes = 32

// NewSessionToken returns a random opaque token for an admin session.
func NewSessionToken() (string, error) {
	return randomHex(sessionTokenBytes)
}

// HashToken returns the hex SHA-256 digest of a raw token. Only digests are
// stored, so a leaked sessions table cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
