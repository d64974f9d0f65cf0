// Package documents adapts the clinical document source. The EHR exposes
// "fetch document bytes by id"; failures here are fatal to the issuance
// that requested them.
package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Document is one clinical document: display metadata plus plaintext bytes.
type Document struct {
	ID          string
	Name        string
	Category    string
	Date        time.Time
	ContentType string
	Content     []byte
}

// Source fetches clinical documents by id.
type Source interface {
	Get(ctx context.Context, id string) (*Document, error)
}

// HTTPSource fetches documents from the EHR document endpoint using the
// clinical session's bearer token.
type HTTPSource struct {
	baseURL string
	token   func() string
	client  *http.Client
}

// NewHTTPSource constructs a source for the given endpoint. token is called
// per request so a refreshed session token is picked up automatically.
func NewHTTPSource(baseURL string, token func() string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// documentMeta is the metadata header returned alongside the content, as the
// EHR serves it.
type documentMeta struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	ContentType string    `json:"contentType"`
}

func (s *HTTPSource) Get(ctx context.Context, id string) (*Document, error) {
	meta, err := s.getJSON(ctx, "/documents/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	content, contentType, err := s.getBytes(ctx, "/documents/"+url.PathEscape(id)+"/content")
	if err != nil {
		return nil, err
	}
	if meta.ContentType == "" {
		meta.ContentType = contentType
	}

	return &Document{
		ID:          meta.ID,
		Name:        meta.Name,
		Category:    meta.Category,
		Date:        meta.Date,
		ContentType: meta.ContentType,
		Content:     content,
	}, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, path string) (*documentMeta, error) {
	body, _, err := s.do(ctx, path)
	if err != nil {
		return nil, err
	}
	var meta documentMeta
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("document source: bad metadata: %w", err)
	}
	return &meta, nil
}

func (s *HTTPSource) getBytes(ctx context.Context, path string) ([]byte, string, error) {
	return s.do(ctx, path)
}

func (s *HTTPSource) do(ctx context.Context, path string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.token())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("document source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("document source: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("document source: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
