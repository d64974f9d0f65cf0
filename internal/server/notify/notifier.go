// Package notify adapts the SMS/email delivery collaborators. Delivery is
// fire-and-forget: a failed send is recorded and logged, never surfaced to
// the caller of the sharing flow.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier sends messages to a recipient's contact channels.
type Notifier interface {
	SendSMS(ctx context.Context, to, body string) error
	SendEmail(ctx context.Context, to, subject, body string) error
}

// WebhookNotifier posts messages to gateway endpoints. An empty endpoint
// disables that channel.
type WebhookNotifier struct {
	smsEndpoint   string
	emailEndpoint string
	client        *http.Client
}

// ErrChannelDisabled is returned when the requested channel has no endpoint
// configured.
var ErrChannelDisabled = fmt.Errorf("notify: channel disabled")

func NewWebhookNotifier(smsEndpoint, emailEndpoint string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		smsEndpoint:   smsEndpoint,
		emailEndpoint: emailEndpoint,
		client:        &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) SendSMS(ctx context.Context, to, body string) error {
	if n.smsEndpoint == "" {
		return ErrChannelDisabled
	}
	return n.post(ctx, n.smsEndpoint, map[string]string{"to": to, "body": body})
}

func (n *WebhookNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	if n.emailEndpoint == "" {
		return ErrChannelDisabled
	}
	return n.post(ctx, n.emailEndpoint, map[string]string{"to": to, "subject": subject, "body": body})
}

func (n *WebhookNotifier) post(ctx context.Context, endpoint string, payload map[string]string) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: gateway status %d", resp.StatusCode)
	}
	return nil
}
