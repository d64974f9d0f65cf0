package links

import (
	"context"
	"time"

	"github.com/carebridge/sharelink/internal/server/models"
)

// Repository is the durable registry of issued links.
type Repository interface {
	// Create inserts a new link record in state active.
	Create(ctx context.Context, link *models.Link) error

	// GetByID returns the link or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Link, error)

	// ListBySubject returns all links owned by a clinical subject, newest
	// first.
	ListBySubject(ctx context.Context, subjectID string) ([]*models.Link, error)

	// RecordAccess atomically increments the access counter and stamps
	// last_accessed_at, but only while the link is still active and
	// unexpired at the given instant. It returns the new counter value,
	// or common.ErrorNotFound if the guarded update matched no row.
	RecordAccess(ctx context.Context, id string, now time.Time) (int64, error)

	// MarkExpired materializes the derived expired state. Idempotent:
	// only an active row is updated.
	MarkExpired(ctx context.Context, id string) error

	// Revoke terminally revokes the link, stamping time and actor.
	// Returns common.ErrorAlreadyRevoked if the link is already revoked.
	Revoke(ctx context.Context, id string, actorID string, at time.Time) error
}
