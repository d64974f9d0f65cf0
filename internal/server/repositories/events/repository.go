package events

import (
	"context"

	"github.com/carebridge/sharelink/internal/server/models"
)

// Repository is the append-only audit trail.
type Repository interface {
	// Append writes one immutable event. The caller is responsible for
	// running it in the same transaction as the state change it records.
	Append(ctx context.Context, event *models.AccessEvent) error

	// ListByLink returns a link's events ordered by occurrence time.
	ListByLink(ctx context.Context, linkID string) ([]*models.AccessEvent, error)
}
