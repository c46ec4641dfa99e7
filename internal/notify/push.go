package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// PushMessage is one mobile push addressed to a device token.
type PushMessage struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// PushSender delivers mobile pushes. Failures are reported to the caller
// but never undo the stored notification.
type PushSender interface {
	Send(ctx context.Context, msg PushMessage) error
}

// LogSender records pushes in the log instead of sending them. It is used
// when no push backend is configured.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "push").Logger()}
}

// Send logs msg and reports success.
func (s *LogSender) Send(_ context.Context, msg PushMessage) error {
	s.logger.Info().
		Str("title", msg.Title).
		Int("data_keys", len(msg.Data)).
		Msg("push backend not configured, skipping delivery")
	return nil
}

// WebhookSender posts pushes as JSON to a relay that talks to the mobile
// push provider.
type WebhookSender struct {
	url    string
	key    string
	client *http.Client
}

// NewWebhookSender creates a sender for url. key, when set, is sent as a
// bearer token.
func NewWebhookSender(url, key string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		key:    key,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Send posts msg to the relay. Any non-2xx reply is an error.
func (s *WebhookSender) Send(ctx context.Context, msg PushMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "encode push")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build push request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.key != "" {
		req.Header.Set("Authorization", "Bearer "+s.key)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post push")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("push relay returned %d", resp.StatusCode)
	}
	return nil
}

// stringData flattens a notification payload to the string map mobile push
// providers accept.
func stringData(data map[string]any) map[string]string {
	if len(data) == 0 {
		return nil
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		default:
			if b, err := json.Marshal(val); err == nil {
				out[k] = string(b)
			} else {
				out[k] = fmt.Sprint(val)
			}
		}
	}
	return out
}
