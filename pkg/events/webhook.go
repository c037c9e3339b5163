package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/platinummonkey/hubcap/pkg/observability"
)

// WebhookEmitter POSTs events to a consumer endpoint with an HMAC-SHA256
// signature header
type WebhookEmitter struct {
	url    string
	secret string
	client *http.Client
	logger *observability.Logger
}

// NewWebhookEmitter creates a webhook emitter with a bounded timeout
func NewWebhookEmitter(url, secret string, timeout time.Duration, logger *observability.Logger) *WebhookEmitter {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookEmitter{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Emit delivers the event, logging failures instead of returning them
func (e *WebhookEmitter) Emit(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.WithError(err).WithField("event_id", event.ID).Error("failed to marshal event")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		e.logger.WithError(err).WithField("event_id", event.ID).Error("failed to build event request")
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hubcap-Event", string(event.Kind))
	req.Header.Set("X-Hubcap-Event-ID", event.ID)
	req.Header.Set("X-Hubcap-Delivery", time.Now().Format(time.RFC3339))
	if e.secret != "" {
		req.Header.Set("X-Hubcap-Signature", Sign(payload, e.secret))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.WithError(err).WithField("event_id", event.ID).Warn("event delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.logger.WithField("event_id", event.ID).
			WithField("status", resp.StatusCode).
			Warn("event consumer returned non-2xx status")
	}
}

// Sign generates the HMAC-SHA256 signature header value for a payload
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a payload against its signature header value
func VerifySignature(payload []byte, signature, secret string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}
