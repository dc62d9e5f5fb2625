package render

import (
	"context"
	"errors"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/jobs"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/notification"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/render"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/logging"
)

// Process runs a queued job. It implements jobs.Handler. Render failures are
// recorded on the job and only returned when the queue will retry.
func (s *Service) Process(ctx context.Context, p jobs.RenderPayload) error {
	job, err := s.store.Get(ctx, p.JobID)
	if errors.Is(err, render.ErrJobNotFound) {
		l := logging.FromCtx(ctx)
		l.Warn().Str("job_id", p.JobID).Msg("job expired before it ran")
		return nil
	}
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}

	_, err = s.Execute(ctx, job, false)
	if err != nil && !jobs.IsFinalAttempt(ctx) {
		return err
	}
	return nil
}

// Execute renders a stored job, tracks its status and notifies. With
// keepBytes the MP4 is returned in the result.
func (s *Service) Execute(ctx context.Context, job *render.Job, keepBytes bool) (*Result, error) {
	ctx = logging.WithJob(ctx, job.ID, job.Symbol)
	logger := logging.FromCtx(ctx)

	job.Status = render.StatusRunning
	job.Error = ""
	job.UpdatedAt = s.now()
	if err := s.store.Update(ctx, job); err != nil {
		logger.Warn().Err(err).Msg("could not mark job running")
	}

	var res *Result
	var err error
	if keepBytes {
		res, err = s.RenderFile(ctx, job)
	} else {
		res, err = s.Render(ctx, job)
	}

	job.UpdatedAt = s.now()
	final := err == nil || jobs.IsFinalAttempt(ctx)
	switch {
	case err == nil:
		job.Status = render.StatusSucceeded
		job.Filename = res.Filename
		job.URL = res.URL
		logger.Info().Str("url", res.URL).Msgf("DONE: %s -> %s", job.Symbol, res.URL)
	case final:
		job.Status = render.StatusFailed
		job.Error = err.Error()
		logger.Error().Err(err).Msgf("FAILED: %s", job.Symbol)
	default:
		job.Status = render.StatusQueued
		job.Error = err.Error()
		logger.Warn().Err(err).Msgf("RETRY: %s", job.Symbol)
	}

	// Finished jobs keep only their outcome, never the scene payload
	var evt *notification.CompletionEvent
	if final {
		evt = s.event(job)
		job.Request = nil
	}

	if uerr := s.store.Update(ctx, job); uerr != nil {
		logger.Error().Err(uerr).Msg("could not record job result")
	}

	if final && s.notifier != nil {
		_ = s.notifier.Notify(ctx, evt)
	}

	return res, err
}

func (s *Service) event(job *render.Job) *notification.CompletionEvent {
	evt := &notification.CompletionEvent{
		JobID:      job.ID,
		Symbol:     job.Symbol,
		Status:     string(job.Status),
		URL:        job.URL,
		Error:      job.Error,
		Filename:   job.Filename,
		SceneCount: job.SceneCount,
		FinishedAt: job.UpdatedAt,
	}
	if job.Request != nil {
		evt.TradeSetup = job.Request.TradeSetup
		evt.CallbackURL = job.Request.CallbackURL
	}
	return evt
}
