package notify

import (
	"context"
	"net/mail"
	"strings"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/notification"
)

// Email sends completion events to a fixed recipient list
type Email struct {
	sender notification.EmailSender
	to     []notification.Recipient
}

// NewEmail creates an email notifier
func NewEmail(sender notification.EmailSender, to []notification.Recipient) *Email {
	return &Email{sender: sender, to: to}
}

// Name implements notification.Named
func (e *Email) Name() string { return "email" }

// Notify implements notification.Notifier
func (e *Email) Notify(ctx context.Context, evt *notification.CompletionEvent) error {
	return e.sender.Send(ctx, &notification.EmailRequest{
		To:    e.to,
		Event: evt,
	})
}

// ParseRecipients turns "Name <addr>" or bare addresses into recipients
func ParseRecipients(list []string) []notification.Recipient {
	var out []notification.Recipient
	for _, s := range list {
		if r, ok := parseRecipient(s); ok {
			out = append(out, r)
		}
	}
	return out
}

func parseRecipient(s string) (notification.Recipient, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return notification.Recipient{}, false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return notification.Recipient{}, false
	}
	return notification.Recipient{Name: addr.Name, Address: addr.Address}, true
}

var _ notification.Notifier = (*Email)(nil)
