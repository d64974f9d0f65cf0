// Package cryptox implements the cryptographic core of sharelink: generation
// of high-entropy secrets and the authenticated envelope format used for all
// content at rest.
package cryptox

import (
	"crypto/rand"
	"fmt"
)

// KeySize is the length in bytes of content encryption keys and link
// identifiers. 32 bytes gives 256 bits of entropy.
const KeySize = 32

// NewKey returns a fresh 256-bit content encryption key from the platform
// CSPRNG. The key is handed to the link recipient and is never persisted
// server-side.
func NewKey() ([]byte, error) {
	return randBytes(KeySize)
}

// NewLinkID returns a fresh public link identifier: 32 random bytes encoded
// as unpadded base64url (43 characters), safe to use as a URL path segment.
func NewLinkID() (string, error) {
	b, err := randBytes(KeySize)
	if err != nil {
		return "", err
	}
	return b64.EncodeToString(b), nil
}

// ValidLinkID reports whether s has the exact shape NewLinkID produces.
// Lookups reject anything else up front so a malformed id is
// indistinguishable from an unassigned one.
func ValidLinkID(s string) bool {
	if len(s) != b64.EncodedLen(KeySize) {
		return false
	}
	b, err := b64.DecodeString(s)
	return err == nil && len(b) == KeySize
}

func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("rng unavailable: %w", err)
	}
	return b, nil
}
