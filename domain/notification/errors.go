package notification

import "errors"

var (
	// ErrNoRecipients is returned when no To recipients are provided
	ErrNoRecipients = errors.New("at least one recipient is required")

	// ErrInvalidRecipient is returned when a recipient has no email address
	ErrInvalidRecipient = errors.New("recipient must have an email address")

	// ErrNoEvent is returned when there is no finished job to report
	ErrNoEvent = errors.New("completion event is required")

	// ErrSendFailed is returned when a notification fails to send
	ErrSendFailed = errors.New("failed to send notification")
)

var (
	// ErrRecipientNotFound is returned when a recipient lookup has no match
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrAmbiguousRecipient is returned when a lookup matches several recipients
	ErrAmbiguousRecipient = errors.New("ambiguous recipient")
)
