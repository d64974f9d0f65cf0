// Package models defines the persistent entities of the sharing service:
// links, their encrypted artifacts, and the append-only access events.
package models

import "time"

// LinkState is the lifecycle state of a share link. Revoked and expired are
// terminal; expired is derived from the clock and only materialized lazily
// on the first access attempt after expiry.
type LinkState string

const (
	LinkStateActive  LinkState = "active"
	LinkStateRevoked LinkState = "revoked"
	LinkStateExpired LinkState = "expired"
)

// Link is the registry record for one issued share link. The content
// encryption key is deliberately absent: it is generated at issuance, handed
// to the recipient inside the link payload, and never stored.
type Link struct {
	// ID is the public, unguessable manifest path segment
	// (32 random bytes, base64url).
	ID string

	SubjectID    string
	SubjectName  string
	SubjectPhone string
	SubjectEmail string

	IssuerID   string
	IssuerName string

	Label string

	State     LinkState
	CreatedAt time.Time
	ExpiresAt time.Time

	RevokedAt *time.Time
	RevokedBy string

	AccessCount    int64
	LastAccessedAt *time.Time
}

// Expired reports whether the link is past its expiry at the given instant,
// independent of the stored State. Listings apply this check themselves
// because the stored state is only updated lazily.
func (l *Link) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// EffectiveState resolves the display state at the given instant: a stored
// terminal state wins, otherwise expiry is derived from the clock.
func (l *Link) EffectiveState(now time.Time) LinkState {
	if l.State == LinkStateRevoked || l.State == LinkStateExpired {
		return l.State
	}
	if l.Expired(now) {
		return LinkStateExpired
	}
	return l.State
}

// Artifact roles within a link's storage prefix.
const (
	RoleBundle    = "bundle"
	RoleDocPrefix = "doc-"
)

// DocumentRole returns the artifact role for an individual encrypted
// document.
func DocumentRole(documentID string) string {
	return RoleDocPrefix + documentID
}

// Artifact is one immutable encrypted blob belonging to a link: exactly one
// bundle plus zero or more documents, written at issuance.
type Artifact struct {
	LinkID string
	// Role is "bundle" or "doc-<documentID>".
	Role string
	// StorageKey is the stable object-store key; signed URLs are derived
	// from it fresh on every request and never persisted.
	StorageKey string
	// ContentType is the declared media type of the decrypted payload.
	ContentType string
	ByteSize    int64
}
