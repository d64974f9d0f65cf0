package artifacts

import (
	"context"

	"github.com/carebridge/sharelink/internal/server/models"
)

// Repository persists the storage references of a link's encrypted blobs.
// Artifacts are written once at issuance and immutable thereafter.
type Repository interface {
	// CreateBatch inserts all artifact references for one link.
	CreateBatch(ctx context.Context, items []*models.Artifact) error

	// GetBundle returns the bundle artifact for a link, or
	// common.ErrorNotFound.
	GetBundle(ctx context.Context, linkID string) (*models.Artifact, error)

	// ListByLink returns every artifact reference for a link, bundle first.
	ListByLink(ctx context.Context, linkID string) ([]*models.Artifact, error)
}
