// Package geoip resolves a coarse location for an IP address. Lookups are
// best-effort: any failure degrades to an empty location.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Locator resolves a human-readable coarse location ("City, CC") for an IP.
type Locator interface {
	Lookup(ctx context.Context, ip string) (string, error)
}

// NoopLocator always returns an empty location. Used when no geolocation
// endpoint is configured.
type NoopLocator struct{}

func (NoopLocator) Lookup(ctx context.Context, ip string) (string, error) {
	return "", nil
}

// HTTPLocator queries an ip-api style JSON endpoint:
// GET <endpoint>/<ip> -> {"city": "...", "countryCode": "..."}.
type HTTPLocator struct {
	endpoint string
	client   *http.Client
}

func NewHTTPLocator(endpoint string, timeout time.Duration) *HTTPLocator {
	return &HTTPLocator{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

func (l *HTTPLocator) Lookup(ctx context.Context, ip string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return "", err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geoip: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geoip: status %d", resp.StatusCode)
	}

	var body struct {
		City        string `json:"city"`
		CountryCode string `json:"countryCode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("geoip: %w", err)
	}

	switch {
	case body.City != "" && body.CountryCode != "":
		return body.City + ", " + body.CountryCode, nil
	case body.CountryCode != "":
		return body.CountryCode, nil
	default:
		return body.City, nil
	}
}
