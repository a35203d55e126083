package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/paisaflow/paisaflow/pkg/models"
)

// WebhookSink POSTs events as JSON to a configured URL with optional
// HMAC-SHA256 signing. Delivery failures are logged, never surfaced:
// the event stream is best-effort by contract.
type WebhookSink struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookSink creates the sink. secret may be empty to skip signing.
func NewWebhookSink(url, secret string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Emit implements contracts.EventSink. Called from the dispatcher's
// worker goroutine, so the bounded retries here never block an agent.
func (s *WebhookSink) Emit(event models.Event) {
	if err := s.send(event); err != nil {
		log.Warn().
			Err(err).
			Str("event", string(event.Type)).
			Str("url", s.url).
			Msg("Webhook event delivery failed")
	}
}

func (s *WebhookSink) send(event models.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "PaisaFlow-Webhook/1.0")
		req.Header.Set("X-PaisaFlow-Event", string(event.Type))

		if s.secret != "" {
			mac := hmac.New(sha256.New, []byte(s.secret))
			mac.Write(body)
			sig := hex.EncodeToString(mac.Sum(nil))
			req.Header.Set("X-PaisaFlow-Signature", "sha256="+sig)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook HTTP %d from %s", resp.StatusCode, s.url)
	}
	return fmt.Errorf("webhook failed after 3 attempts: %w", lastErr)
}
