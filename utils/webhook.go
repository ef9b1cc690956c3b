package utils

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"lms/logger"

	"github.com/go-resty/resty/v2"
)

const (
	HeaderEventID   = "X-Event-ID"
	HeaderEventName = "X-Event-Name"
	HeaderSignature = "X-Signature-256"
)

// WebhookChannel posts events as JSON to a single endpoint.
type WebhookChannel struct {
	client *resty.Client
	url    string
	secret string
	log    *logger.Logger
}

func NewWebhookChannel(url, secret string, timeout time.Duration, log *logger.Logger) *WebhookChannel {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &WebhookChannel{client: client, url: url, secret: secret, log: log.With("channel", "webhook")}
}

func (w *WebhookChannel) Name() string { return "webhook" }

func (w *WebhookChannel) Deliver(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(HeaderEventID, ev.ID).
		SetHeader(HeaderEventName, ev.Name).
		SetBody(body)
	if w.secret != "" {
		req.SetHeader(HeaderSignature, "sha256="+Sign(w.secret, body))
	}

	resp, err := req.Post(w.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook responded %d", resp.StatusCode())
	}
	w.log.Debug("webhook delivered", "event", ev.Name, "id", ev.ID, "status", resp.StatusCode())
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
