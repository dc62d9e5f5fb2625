package notification

import "context"

// Recipient represents an email recipient with name and address
type Recipient struct {
	Name    string
	Address string
}

// EmailRequest contains all the data needed to send a render notification
type EmailRequest struct {
	To    []Recipient      // Primary recipients
	CC    []Recipient      // Carbon copy recipients
	Event *CompletionEvent // The finished render
}

// Validate checks that the email request has all required fields
func (r *EmailRequest) Validate() error {
	if len(r.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range r.To {
		if to.Address == "" {
			return ErrInvalidRecipient
		}
	}
	if r.Event == nil || r.Event.JobID == "" {
		return ErrNoEvent
	}
	return nil
}

// EmailSender defines the interface for sending emails
type EmailSender interface {
	Send(ctx context.Context, req *EmailRequest) error
}
