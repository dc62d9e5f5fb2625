package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/notification"
)

// Service reports finished renders to every configured channel
type Service struct {
	notifiers []notification.Notifier
	logger    zerolog.Logger
}

// NewService creates a new notification service
func NewService(logger zerolog.Logger, notifiers ...notification.Notifier) *Service {
	return &Service{
		notifiers: notifiers,
		logger:    logger,
	}
}

// Len returns the number of configured notifiers
func (s *Service) Len() int {
	return len(s.notifiers)
}

// Notify delivers the event to all notifiers. A failing notifier does not
// stop the others; all failures are logged and returned joined.
func (s *Service) Notify(ctx context.Context, evt *notification.CompletionEvent) error {
	var errs []error
	for i, n := range s.notifiers {
		name := fmt.Sprintf("notifier[%d]", i)
		if named, ok := n.(notification.Named); ok {
			name = named.Name()
		}

		if err := n.Notify(ctx, evt); err != nil {
			s.logger.Warn().Err(err).Str("notifier", name).Str("job_id", evt.JobID).Msg("notification failed")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		s.logger.Debug().Str("notifier", name).Str("job_id", evt.JobID).Msg("notification sent")
	}
	return errors.Join(errs...)
}
