// Package storage persists encrypted artifacts in an S3-compatible object
// store and produces short-lived signed fetch URLs.
package storage

import (
	"context"
	"time"
)

// EnvelopeContentType is the at-rest media type of every stored object. The
// plaintext's media type lives inside the envelope header, not on the blob.
const EnvelopeContentType = "application/jose"

// Store is the artifact storage collaborator. Only storage keys are ever
// persisted; signed URLs are minted fresh per request and expire on the
// order of an hour.
type Store interface {
	// Put uploads one encrypted artifact and returns its stable storage key.
	Put(ctx context.Context, linkID, role string, ciphertext []byte) (string, error)

	// SignedURL returns a fresh pre-authorized GET URL for a stored key.
	SignedURL(ctx context.Context, storageKey string, ttl time.Duration) (string, error)

	// Delete removes an artifact; used for best-effort rollback of a
	// failed issuance.
	Delete(ctx context.Context, storageKey string) error
}
