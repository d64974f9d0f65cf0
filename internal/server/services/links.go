package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/sharelink/internal/common"
	"github.com/carebridge/sharelink/internal/dbx"
	"github.com/carebridge/sharelink/internal/logging"
	"github.com/carebridge/sharelink/internal/server/models"
	"github.com/carebridge/sharelink/internal/server/shared/db"
)

// LinkStatus is a registry row prepared for display: State is the effective
// state at read time, derived from the clock rather than trusting the lazily
// updated stored value.
type LinkStatus struct {
	Link  *models.Link
	State models.LinkState
}

// LinkAdminService provides the issuing application's operational controls:
// listing a subject's links, revoking, and reading audit history.
type LinkAdminService struct {
	repos  db.RepositoryManager
	logger logging.Logger
	now    func() time.Time
}

// NewLinkAdminService wires the administrative operations.
func NewLinkAdminService(repos db.RepositoryManager, logger logging.Logger) *LinkAdminService {
	return &LinkAdminService{
		repos:  repos,
		logger: logger.With("module", "link_admin"),
		now:    time.Now,
	}
}

// List returns a subject's links newest first, each with its effective
// state at the current instant.
func (s *LinkAdminService) List(ctx context.Context, subjectID string) ([]*LinkStatus, error) {
	items, err := s.repos.Links(s.repos.Conn()).ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := make([]*LinkStatus, 0, len(items))
	for _, l := range items {
		result = append(result, &LinkStatus{Link: l, State: l.EffectiveState(now)})
	}
	return result, nil
}

// Revoke terminally revokes a link and appends the revoked event in the
// same transaction. Revoking an already-revoked link is a no-op error.
func (s *LinkAdminService) Revoke(ctx context.Context, linkID string, actor Actor) error {
	link, err := s.repos.Links(s.repos.Conn()).GetByID(ctx, linkID)
	if err != nil {
		return err
	}
	if link.State == models.LinkStateRevoked {
		return common.ErrorAlreadyRevoked
	}

	now := s.now().UTC()
	return dbx.WithTx(ctx, s.repos.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Links(tx).Revoke(ctx, linkID, actor.ID, now); err != nil {
			return err
		}
		return s.repos.Events(tx).Append(ctx, &models.AccessEvent{
			ID:         uuid.NewString(),
			LinkID:     linkID,
			Type:       models.EventRevoked,
			OccurredAt: now,
			ActorID:    actor.ID,
			ActorName:  actor.Name,
		})
	})
}

// History returns the link's audit trail ordered by occurrence time.
func (s *LinkAdminService) History(ctx context.Context, linkID string) ([]*models.AccessEvent, error) {
	// Existence check first so an unknown link is a NotFound, not an
	// empty history.
	if _, err := s.repos.Links(s.repos.Conn()).GetByID(ctx, linkID); err != nil {
		return nil, err
	}
	return s.repos.Events(s.repos.Conn()).ListByLink(ctx, linkID)
}
