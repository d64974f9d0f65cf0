package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/carebridge/sharelink/internal/common"
	"github.com/carebridge/sharelink/internal/dbx"
	"github.com/carebridge/sharelink/internal/logging"
	sc "github.com/carebridge/sharelink/internal/server/config"
	"github.com/carebridge/sharelink/internal/server/documents"
	"github.com/carebridge/sharelink/internal/server/models"
	"github.com/carebridge/sharelink/internal/server/repositories/artifacts"
	"github.com/carebridge/sharelink/internal/server/repositories/events"
	"github.com/carebridge/sharelink/internal/server/repositories/links"
)

// -------- test clock and config --------

var testNow = time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC)

func testConfig() *sc.Config {
	cfg := &sc.Config{}
	cfg.LoadDefaults()
	cfg.PublicBaseURL = "https://share.example.org"
	cfg.DefaultExpiryDays = 30
	cfg.MaxExpiryDays = 365
	cfg.CollaboratorTimeout = time.Second
	return cfg
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// -------- in-memory repositories --------

type fakeLinksRepo struct {
	mu        sync.Mutex
	items     map[string]*models.Link
	createErr error
}

func newFakeLinksRepo() *fakeLinksRepo {
	return &fakeLinksRepo{items: map[string]*models.Link{}}
}

func (f *fakeLinksRepo) Create(ctx context.Context, link *models.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *link
	f.items[link.ID] = &cp
	return nil
}

func (f *fakeLinksRepo) GetByID(ctx context.Context, id string) (*models.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLinksRepo) ListBySubject(ctx context.Context, subjectID string) ([]*models.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Link
	for _, l := range f.items {
		if l.SubjectID == subjectID {
			cp := *l
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (f *fakeLinksRepo) RecordAccess(ctx context.Context, id string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.items[id]
	if !ok || l.State != models.LinkStateActive || !l.ExpiresAt.After(now) {
		return 0, common.ErrorNotFound
	}
	l.AccessCount++
	t := now
	l.LastAccessedAt = &t
	return l.AccessCount, nil
}

func (f *fakeLinksRepo) MarkExpired(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.items[id]; ok && l.State == models.LinkStateActive {
		l.State = models.LinkStateExpired
	}
	return nil
}

func (f *fakeLinksRepo) Revoke(ctx context.Context, id string, actorID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.items[id]
	if !ok || l.State == models.LinkStateRevoked {
		return common.ErrorAlreadyRevoked
	}
	l.State = models.LinkStateRevoked
	l.RevokedAt = &at
	l.RevokedBy = actorID
	return nil
}

type fakeArtifactsRepo struct {
	mu    sync.Mutex
	items []*models.Artifact
}

func (f *fakeArtifactsRepo) CreateBatch(ctx context.Context, items []*models.Artifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeArtifactsRepo) GetBundle(ctx context.Context, linkID string) (*models.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.items {
		if a.LinkID == linkID && a.Role == models.RoleBundle {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeArtifactsRepo) ListByLink(ctx context.Context, linkID string) ([]*models.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.Artifact
	for _, a := range f.items {
		if a.LinkID == linkID {
			cp := *a
			result = append(result, &cp)
		}
	}
	return result, nil
}

type fakeEventsRepo struct {
	mu    sync.Mutex
	items []*models.AccessEvent
}

func (f *fakeEventsRepo) Append(ctx context.Context, event *models.AccessEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *event
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeEventsRepo) ListByLink(ctx context.Context, linkID string) ([]*models.AccessEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.AccessEvent
	for _, e := range f.items {
		if e.LinkID == linkID {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (f *fakeEventsRepo) byType(t models.EventType) []*models.AccessEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.AccessEvent
	for _, e := range f.items {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// -------- repository manager over the fakes --------

type fakeRepoManager struct {
	db        *sql.DB
	links     *fakeLinksRepo
	artifacts *fakeArtifactsRepo
	events    *fakeEventsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context) error     { return nil }
func (m *fakeRepoManager) Conn() *sql.DB                           { return m.db }
func (m *fakeRepoManager) Links(dbx.DBTX) links.Repository         { return m.links }
func (m *fakeRepoManager) Artifacts(dbx.DBTX) artifacts.Repository { return m.artifacts }
func (m *fakeRepoManager) Events(dbx.DBTX) events.Repository       { return m.events }

// newFakeRepoManager backs Conn() with sqlmock so dbx.WithTx sees real
// Begin/Commit semantics; txs is how many successful transactions the test
// expects, rollbacks how many aborted ones.
func newFakeRepoManager(t *testing.T, txs, rollbacks int) *fakeRepoManager {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < txs; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
	for i := 0; i < rollbacks; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}
	t.Cleanup(func() { sqldb.Close() })

	return &fakeRepoManager{
		db:        sqldb,
		links:     newFakeLinksRepo(),
		artifacts: &fakeArtifactsRepo{},
		events:    &fakeEventsRepo{},
	}
}

// -------- collaborator fakes --------

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	signed  int
	// putFailsOnRole aborts the upload of one specific role.
	putFailsOnRole string
	signErr        error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) key(linkID, role string) string {
	return fmt.Sprintf("links/%s/%s.jwe", linkID, role)
}

func (f *fakeStore) Put(ctx context.Context, linkID, role string, ciphertext []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putFailsOnRole != "" && role == f.putFailsOnRole {
		return "", fmt.Errorf("storage put error: injected fault on %s", role)
	}
	k := f.key(linkID, role)
	f.objects[k] = append([]byte(nil), ciphertext...)
	return k, nil
}

func (f *fakeStore) SignedURL(ctx context.Context, storageKey string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signErr != nil {
		return "", f.signErr
	}
	f.signed++
	return fmt.Sprintf("https://signed.example/%s?sig=%d", storageKey, f.signed), nil
}

func (f *fakeStore) Delete(ctx context.Context, storageKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, storageKey)
	f.deleted = append(f.deleted, storageKey)
	return nil
}

func (f *fakeStore) storedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		keys = append(keys, k)
	}
	return keys
}

type fakeSource struct {
	docs   map[string]*documents.Document
	getErr error
}

func (f *fakeSource) Get(ctx context.Context, id string) (*documents.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	d, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("document source: unexpected status 404")
	}
	cp := *d
	return &cp, nil
}

type sentMessage struct {
	channel string
	to      string
	body    string
}

type fakeNotifier struct {
	mu       sync.Mutex
	sent     []sentMessage
	smsErr   error
	emailErr error
}

func (f *fakeNotifier) SendSMS(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.smsErr != nil {
		return f.smsErr
	}
	f.sent = append(f.sent, sentMessage{channel: "sms", to: to, body: body})
	return nil
}

func (f *fakeNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emailErr != nil {
		return f.emailErr
	}
	f.sent = append(f.sent, sentMessage{channel: "email", to: to, body: body})
	return nil
}

func (f *fakeNotifier) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeLocator struct {
	location string
	err      error
}

func (f *fakeLocator) Lookup(ctx context.Context, ip string) (string, error) {
	return f.location, f.err
}

// -------- helpers --------

func testSource() *fakeSource {
	return &fakeSource{docs: map[string]*documents.Document{
		"d1": {
			ID: "d1", Name: "Discharge Summary", Category: "summary",
			Date:        time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC),
			ContentType: "application/pdf",
			Content:     []byte("%PDF-1.7 fake discharge summary"),
		},
		"d2": {
			ID: "d2", Name: "Lab Results", Category: "laboratory",
			Date:        time.Date(2025, 11, 3, 14, 0, 0, 0, time.UTC),
			ContentType: "application/fhir+json",
			Content:     []byte(`{"resourceType":"Observation"}`),
		},
	}}
}

func validRequest() *IssueRequest {
	return &IssueRequest{
		SubjectID:    "p-1",
		SubjectName:  "Jordan Smith",
		SubjectPhone: "+15550100",
		SubjectEmail: "jordan@example.org",
		DocumentIDs:  []string{"d1", "d2"},
		ExpiryDays:   90,
		Label:        "Discharge records",
	}
}

func bundleKeyOf(keys []string) (string, bool) {
	for _, k := range keys {
		if strings.HasSuffix(k, "/bundle.jwe") {
			return k, true
		}
	}
	return "", false
}
