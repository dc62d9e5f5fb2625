package render

import (
	"context"
	"fmt"
	"time"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/jobs"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/render"
)

// Accepted is the response to a background render request
type Accepted struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Bucket  string `json:"bucket"`
	JobID   string `json:"job_id"`
}

// Submitter validates requests and hands them to the queue
type Submitter struct {
	store   render.JobStore
	queue   jobs.Queue
	service *Service
	bucket  string
	now     func() time.Time
}

// NewSubmitter creates a submitter. bucket is echoed back to callers.
func NewSubmitter(store render.JobStore, queue jobs.Queue, service *Service, bucket string) *Submitter {
	return &Submitter{
		store:   store,
		queue:   queue,
		service: service,
		bucket:  bucket,
		now:     time.Now,
	}
}

// prepare normalizes, validates and stores a new job
func (s *Submitter) prepare(ctx context.Context, req *render.Request) (*render.Job, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	job := render.NewJob(req, s.now())
	job.Filename = req.OutputFilename(render.NewSuffix())
	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// Submit queues a render and returns immediately
func (s *Submitter) Submit(ctx context.Context, req *render.Request) (*Accepted, error) {
	job, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.queue.Enqueue(ctx, jobs.RenderPayload{JobID: job.ID}); err != nil {
		job.Status = render.StatusFailed
		job.Error = err.Error()
		job.UpdatedAt = s.now()
		_ = s.store.Update(ctx, job)
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	return &Accepted{
		OK:      true,
		Message: fmt.Sprintf("Rendering %s in background. Check your GCS Bucket in 3-5 mins.", req.StockSymbol),
		Bucket:  s.bucket,
		JobID:   job.ID,
	}, nil
}

// RenderNow renders in the caller's goroutine. The job is still stored so
// it can be polled, and notifiers still run.
func (s *Submitter) RenderNow(ctx context.Context, req *render.Request, keepBytes bool) (*render.Job, *Result, error) {
	job, err := s.prepare(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.service.Execute(ctx, job, keepBytes)
	return job, res, err
}
