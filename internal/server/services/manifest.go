package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/sharelink/internal/common"
	"github.com/carebridge/sharelink/internal/cryptox"
	"github.com/carebridge/sharelink/internal/dbx"
	"github.com/carebridge/sharelink/internal/logging"
	sc "github.com/carebridge/sharelink/internal/server/config"
	"github.com/carebridge/sharelink/internal/server/geoip"
	"github.com/carebridge/sharelink/internal/server/models"
	"github.com/carebridge/sharelink/internal/server/notify"
	"github.com/carebridge/sharelink/internal/server/shared/db"
	"github.com/carebridge/sharelink/internal/server/storage"
)

// geoLookupTimeout bounds the best-effort location lookup; the manifest
// response never waits longer than this on geolocation.
const geoLookupTimeout = 2 * time.Second

// AccessorContext is what the public endpoint knows about the caller.
// Everything is self-reported or network-derived, none of it trusted.
type AccessorContext struct {
	RemoteAddr string
	UserAgent  string
	Recipient  string
}

// ManifestFile is one entry of the manifest response.
type ManifestFile struct {
	ContentType string `json:"contentType"`
	Location    string `json:"location"`
}

// Manifest is the public manifest response: exactly one reference to the
// encrypted bundle, resolved to a fresh signed URL.
type Manifest struct {
	Files []ManifestFile `json:"files"`
}

// ManifestService serves the public, unauthenticated manifest endpoint. It
// is the system's primary attack surface: it never learns the decryption
// key, and it answers identically for malformed and unassigned ids.
type ManifestService struct {
	repos    db.RepositoryManager
	store    storage.Store
	locator  geoip.Locator
	notifier notify.Notifier
	config   *sc.Config
	logger   logging.Logger
	now      func() time.Time
}

// NewManifestService wires the manifest read path.
func NewManifestService(repos db.RepositoryManager, store storage.Store, locator geoip.Locator,
	notifier notify.Notifier, config *sc.Config, logger logging.Logger) *ManifestService {
	return &ManifestService{
		repos:    repos,
		store:    store,
		locator:  locator,
		notifier: notifier,
		config:   config,
		logger:   logger.With("module", "manifest_service"),
		now:      time.Now,
	}
}

// Resolve handles one manifest request. On success the access has already
// been recorded durably: the audit write happens before the response, so an
// aborted request still counts as an access.
func (s *ManifestService) Resolve(ctx context.Context, linkID string, accessor AccessorContext) (*Manifest, error) {

	// A malformed id takes the same path as an unknown one.
	if !cryptox.ValidLinkID(linkID) {
		return nil, common.ErrorNotFound
	}

	link, err := s.repos.Links(s.repos.Conn()).GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}

	if err := s.checkState(ctx, link); err != nil {
		return nil, err
	}

	location := s.lookupLocation(ctx, accessor.RemoteAddr)

	if err := s.recordAccess(ctx, link.ID, accessor, location); err != nil {
		return nil, err
	}

	go s.notifyAccess(context.WithoutCancel(ctx), link, accessor, location)

	bundleRef, err := s.repos.Artifacts(s.repos.Conn()).GetBundle(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("bundle reference: %w", err)
	}
	signedURL, err := s.store.SignedURL(ctx, bundleRef.StorageKey, s.config.SignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("bundle signing: %w", err)
	}

	s.logger.Debug(ctx, "manifest resolved", "link_id", link.ID)

	return &Manifest{Files: []ManifestFile{{
		ContentType: bundleRef.ContentType,
		Location:    signedURL,
	}}}, nil
}

// checkState enforces the terminal states, materializing lazy expiry on
// first observation.
func (s *ManifestService) checkState(ctx context.Context, link *models.Link) error {
	switch link.State {
	case models.LinkStateRevoked:
		return common.ErrorLinkRevoked
	case models.LinkStateExpired:
		return common.ErrorLinkExpired
	}

	if link.Expired(s.now()) {
		// Idempotent write; losing a race with another request is fine.
		if err := s.repos.Links(s.repos.Conn()).MarkExpired(ctx, link.ID); err != nil {
			s.logger.Error(ctx, "lazy expiry write failed", "link_id", link.ID, "error", err.Error())
		}
		return common.ErrorLinkExpired
	}
	return nil
}

// recordAccess appends the accessed event and bumps the counter in one
// transaction. The guarded UPDATE hitting no row means the link went
// terminal between the read and the write; the request is re-judged against
// the fresh state. The transaction runs on a detached context so a caller
// abort cannot undo an access that already happened.
func (s *ManifestService) recordAccess(ctx context.Context, linkID string, accessor AccessorContext, location string) error {
	txCtx := context.WithoutCancel(ctx)
	now := s.now().UTC()

	err := dbx.WithTx(txCtx, s.repos.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repos.Links(tx).RecordAccess(ctx, linkID, now); err != nil {
			return err
		}
		return s.repos.Events(tx).Append(ctx, &models.AccessEvent{
			ID:         uuid.NewString(),
			LinkID:     linkID,
			Type:       models.EventAccessed,
			OccurredAt: now,
			RemoteAddr: accessor.RemoteAddr,
			UserAgent:  accessor.UserAgent,
			Location:   location,
			Recipient:  accessor.Recipient,
		})
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("access accounting: %w", err)
	}

	// Lost a race with revocation or expiry: report the current state.
	link, getErr := s.repos.Links(s.repos.Conn()).GetByID(txCtx, linkID)
	if getErr != nil {
		return getErr
	}
	if stateErr := s.checkState(txCtx, link); stateErr != nil {
		return stateErr
	}
	return fmt.Errorf("access accounting: %w", err)
}

func (s *ManifestService) lookupLocation(ctx context.Context, remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, geoLookupTimeout)
	defer cancel()

	location, err := s.locator.Lookup(ctx, remoteAddr)
	if err != nil {
		s.logger.Warn(ctx, "geoip lookup failed", "error", err.Error())
		return ""
	}
	return location
}

// notifyAccess tells the subject their records were viewed. Best-effort:
// never blocks the response, never fails the request.
func (s *ManifestService) notifyAccess(ctx context.Context, link *models.Link, accessor AccessorContext, location string) {
	ctx, cancel := context.WithTimeout(ctx, s.config.CollaboratorTimeout)
	defer cancel()

	who := accessor.Recipient
	if who == "" {
		who = "Someone"
	}
	body := who + " viewed your shared medical records"
	if location != "" {
		body += " from " + location
	}
	body += "."

	if link.SubjectPhone != "" {
		if err := s.notifier.SendSMS(ctx, link.SubjectPhone, body); err != nil {
			s.logger.Warn(ctx, "access notification failed", "link_id", link.ID, "channel", "sms", "error", err.Error())
		}
	}
	if link.SubjectEmail != "" {
		if err := s.notifier.SendEmail(ctx, link.SubjectEmail, "Your records were accessed", body); err != nil {
			s.logger.Warn(ctx, "access notification failed", "link_id", link.ID, "channel", "email", "error", err.Error())
		}
	}
}
