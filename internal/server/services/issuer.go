// Package services implements the core workflows of the sharing system:
// link issuance, public manifest resolution, and link administration.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/sharelink/internal/common"
	"github.com/carebridge/sharelink/internal/cryptox"
	"github.com/carebridge/sharelink/internal/dbx"
	"github.com/carebridge/sharelink/internal/logging"
	"github.com/carebridge/sharelink/internal/server/bundle"
	sc "github.com/carebridge/sharelink/internal/server/config"
	"github.com/carebridge/sharelink/internal/server/documents"
	"github.com/carebridge/sharelink/internal/server/models"
	"github.com/carebridge/sharelink/internal/server/notify"
	"github.com/carebridge/sharelink/internal/server/shared/db"
	"github.com/carebridge/sharelink/internal/server/storage"
)

// IssueRequest is one sharing action: which subject, which documents, how
// long, and where to deliver the link.
type IssueRequest struct {
	SubjectID    string
	SubjectName  string
	SubjectPhone string
	SubjectEmail string

	DocumentIDs []string
	ExpiryDays  int
	Label       string
}

// IssuedLink is what the issuing caller gets back. Key is returned exactly
// once and is never persisted server-side.
type IssuedLink struct {
	LinkID      string
	ManifestURL string
	Key         []byte
	ExpiresAt   time.Time
	Label       string
	// Payload is the self-contained "shlink:/..." value handed to the
	// recipient.
	Payload string
}

// Actor identifies the issuing provider, taken from verified token claims.
type Actor struct {
	ID   string
	Name string
}

// LinkIssuer orchestrates key generation, document encryption, artifact
// storage, and the atomic registry commit for one sharing action.
type LinkIssuer struct {
	repos    db.RepositoryManager
	store    storage.Store
	source   documents.Source
	notifier notify.Notifier
	config   *sc.Config
	logger   logging.Logger
	now      func() time.Time
}

// NewLinkIssuer wires the issuance workflow.
func NewLinkIssuer(repos db.RepositoryManager, store storage.Store, source documents.Source,
	notifier notify.Notifier, config *sc.Config, logger logging.Logger) *LinkIssuer {
	return &LinkIssuer{
		repos:    repos,
		store:    store,
		source:   source,
		notifier: notifier,
		config:   config,
		logger:   logger.With("module", "link_issuer"),
		now:      time.Now,
	}
}

// Issue runs the single forward pass of link issuance. Any failure after
// artifacts were uploaded but before the registry commit triggers
// best-effort cleanup of the uploads; nothing partial ever becomes visible.
func (s *LinkIssuer) Issue(ctx context.Context, actor Actor, req *IssueRequest) (*IssuedLink, error) {

	expiryDays, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	key, err := cryptox.NewKey()
	if err != nil {
		return nil, err
	}
	linkID, err := cryptox.NewLinkID()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	expiresAt := now.Add(time.Duration(expiryDays) * 24 * time.Hour)

	var uploaded []string
	cleanup := func() {
		for _, storageKey := range uploaded {
			if err := s.store.Delete(context.WithoutCancel(ctx), storageKey); err != nil {
				s.logger.Error(ctx, "issuance rollback: artifact cleanup failed",
					"storage_key", storageKey, "error", err.Error())
			}
		}
	}

	// Fetch, seal, and store each requested document.
	var (
		refs      []bundle.DocumentRef
		artifacts []*models.Artifact
	)
	for _, docID := range req.DocumentIDs {
		doc, err := s.fetchDocument(ctx, docID)
		if err != nil {
			cleanup()
			return nil, err
		}

		envelope, err := cryptox.Seal(doc.Content, key, doc.ContentType)
		if err != nil {
			cleanup()
			return nil, err
		}

		role := models.DocumentRole(doc.ID)
		storageKey, err := s.store.Put(ctx, linkID, role, []byte(envelope))
		if err != nil {
			cleanup()
			return nil, err
		}
		uploaded = append(uploaded, storageKey)

		// The reference URL is signed at issuance for prompt first use;
		// long-lived access always goes back through the manifest.
		signedURL, err := s.store.SignedURL(ctx, storageKey, s.config.SignedURLTTL)
		if err != nil {
			cleanup()
			return nil, err
		}

		refs = append(refs, bundle.DocumentRef{
			ID:          doc.ID,
			Name:        doc.Name,
			Category:    doc.Category,
			Date:        doc.Date,
			ContentType: doc.ContentType,
			ByteSize:    int64(len(doc.Content)),
			URL:         signedURL,
		})
		artifacts = append(artifacts, &models.Artifact{
			LinkID:      linkID,
			Role:        role,
			StorageKey:  storageKey,
			ContentType: doc.ContentType,
			ByteSize:    int64(len(doc.Content)),
		})
	}

	// Assemble and store the bundle, sealed with the same key.
	subject := bundle.Subject{
		ID:    req.SubjectID,
		Name:  req.SubjectName,
		Phone: req.SubjectPhone,
		Email: req.SubjectEmail,
	}
	plainBundle, err := bundle.Assemble(subject, refs, now)
	if err != nil {
		cleanup()
		return nil, err
	}
	bundleEnvelope, err := cryptox.Seal(plainBundle, key, bundle.ContentType)
	if err != nil {
		cleanup()
		return nil, err
	}
	bundleKey, err := s.store.Put(ctx, linkID, models.RoleBundle, []byte(bundleEnvelope))
	if err != nil {
		cleanup()
		return nil, err
	}
	uploaded = append(uploaded, bundleKey)

	artifacts = append(artifacts, &models.Artifact{
		LinkID:      linkID,
		Role:        models.RoleBundle,
		StorageKey:  bundleKey,
		ContentType: bundle.ContentType,
		ByteSize:    int64(len(plainBundle)),
	})

	link := &models.Link{
		ID:           linkID,
		SubjectID:    req.SubjectID,
		SubjectName:  req.SubjectName,
		SubjectPhone: req.SubjectPhone,
		SubjectEmail: req.SubjectEmail,
		IssuerID:     actor.ID,
		IssuerName:   actor.Name,
		Label:        truncateLabel(req.Label),
		State:        models.LinkStateActive,
		CreatedAt:    now,
		ExpiresAt:    expiresAt,
	}

	// The registry commit is the visibility point: link, artifact
	// references, and the created event land in one transaction.
	err = dbx.WithTx(ctx, s.repos.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Links(tx).Create(ctx, link); err != nil {
			return err
		}
		if err := s.repos.Artifacts(tx).CreateBatch(ctx, artifacts); err != nil {
			return err
		}
		return s.repos.Events(tx).Append(ctx, &models.AccessEvent{
			ID:         uuid.NewString(),
			LinkID:     linkID,
			Type:       models.EventCreated,
			OccurredAt: now,
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			Detail:     map[string]string{"documents": fmt.Sprint(len(req.DocumentIDs))},
		})
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("registry commit error: %w", err)
	}

	manifestURL := s.config.PublicBaseURL + "/shl/" + linkID
	payload, err := composeLinkPayload(manifestURL, key, expiresAt, req.Label)
	if err != nil {
		return nil, err
	}

	issued := &IssuedLink{
		LinkID:      linkID,
		ManifestURL: manifestURL,
		Key:         key,
		ExpiresAt:   expiresAt,
		Label:       truncateLabel(req.Label),
		Payload:     payload,
	}

	s.logger.Info(ctx, "link issued", "link_id", linkID, "documents", len(req.DocumentIDs))

	s.deliver(ctx, link, payload)

	return issued, nil
}

func (s *LinkIssuer) validate(req *IssueRequest) (int, error) {
	if len(req.DocumentIDs) == 0 {
		return 0, fmt.Errorf("%w: at least one document required", common.ErrorValidation)
	}
	if req.SubjectPhone == "" && req.SubjectEmail == "" {
		return 0, fmt.Errorf("%w: at least one contact channel required", common.ErrorValidation)
	}

	days := req.ExpiryDays
	if days == 0 {
		days = s.config.DefaultExpiryDays
	}
	if days < 1 {
		days = 1
	}
	if days > s.config.MaxExpiryDays {
		days = s.config.MaxExpiryDays
	}
	return days, nil
}

func (s *LinkIssuer) fetchDocument(ctx context.Context, id string) (*documents.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.CollaboratorTimeout)
	defer cancel()

	doc, err := s.source.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: document %s: %v", common.ErrorCollaborator, id, err)
	}
	return doc, nil
}

// deliver sends the link over every configured contact channel and records
// one delivery event per attempt. Failures are events and log lines, never
// issuance errors.
func (s *LinkIssuer) deliver(ctx context.Context, link *models.Link, payload string) {
	body := "You have been sent secure medical records. Open: " + payload
	if link.Label != "" {
		body = link.Label + "\n" + body
	}

	if link.SubjectPhone != "" {
		err := s.notify(ctx, func(ctx context.Context) error {
			return s.notifier.SendSMS(ctx, link.SubjectPhone, body)
		})
		s.recordDelivery(ctx, link.ID, "sms", models.EventDeliveredSMS, err)
	}
	if link.SubjectEmail != "" {
		err := s.notify(ctx, func(ctx context.Context) error {
			return s.notifier.SendEmail(ctx, link.SubjectEmail, "Your shared medical records", body)
		})
		s.recordDelivery(ctx, link.ID, "email", models.EventDeliveredEmail, err)
	}
}

func (s *LinkIssuer) notify(ctx context.Context, send func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.CollaboratorTimeout)
	defer cancel()
	return send(ctx)
}

func (s *LinkIssuer) recordDelivery(ctx context.Context, linkID, channel string, ok models.EventType, sendErr error) {
	event := &models.AccessEvent{
		ID:         uuid.NewString(),
		LinkID:     linkID,
		Type:       ok,
		OccurredAt: s.now().UTC(),
		Detail:     map[string]string{"channel": channel},
	}
	if sendErr != nil {
		event.Type = models.EventDeliveryFailed
		event.Detail["error"] = sendErr.Error()
		s.logger.Warn(ctx, "link delivery failed", "link_id", linkID, "channel", channel, "error", sendErr.Error())
	}

	if err := s.repos.Events(s.repos.Conn()).Append(ctx, event); err != nil {
		s.logger.Error(ctx, "delivery event write failed", "link_id", linkID, "error", err.Error())
	}
}
