// Package apikey generates and digests bearer keys. Raw keys leave the
// service exactly once, in the creation response; only digests are stored.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const rawKeyBytes = 32

// Generate returns a fresh raw key, e.g. "aw_dGhpcyBpcyBub3QgYSBrZXk".
func Generate(prefix string) (string, error) {
	buf := make([]byte, rawKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash returns the hex SHA-256 digest of a raw key; this is the stored and
// looked-up form.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
