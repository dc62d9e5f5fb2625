package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/notification"
)

// DefaultWebhookTimeout bounds one callback delivery
const DefaultWebhookTimeout = 10 * time.Second

// Webhook POSTs completion events as JSON. A per-request callback URL takes
// precedence over the configured default.
type Webhook struct {
	defaultURL string
	timeout    time.Duration
	userAgent  string
}

// NewWebhook creates a webhook notifier. defaultURL may be empty, in which
// case only events carrying a callback URL are delivered.
func NewWebhook(defaultURL string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &Webhook{defaultURL: defaultURL, timeout: timeout, userAgent: "n8n-video-renderer"}
}

// Name implements notification.Named
func (w *Webhook) Name() string { return "webhook" }

// Notify implements notification.Notifier
func (w *Webhook) Notify(ctx context.Context, evt *notification.CompletionEvent) error {
	target := evt.CallbackURL
	if target == "" {
		target = w.defaultURL
	}
	if target == "" {
		return nil
	}

	timeout := w.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return ctx.Err()
	}

	agent := fiber.Post(target).
		JSON(evt).
		UserAgent(w.userAgent).
		Timeout(timeout)
	if err := agent.Parse(); err != nil {
		return fmt.Errorf("webhook %s: %w", target, err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook %s: %w", target, errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("webhook %s: status %d: %s", target, code, truncate(string(body), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ notification.Notifier = (*Webhook)(nil)
