package render

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status is the lifecycle state of a render job
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// IsTerminal returns true once the job will not change again
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job tracks one submitted render request
type Job struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"stock_symbol"`
	Status     Status    `json:"status"`
	SceneCount int       `json:"scene_count"`
	Filename   string    `json:"filename,omitempty"`
	URL        string    `json:"url,omitempty"`
	Error      string    `json:"error,omitempty"`
	Request    *Request  `json:"request,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewJob creates a queued job for a validated request
func NewJob(req *Request, now time.Time) *Job {
	return &Job{
		ID:         NewJobID(now),
		Symbol:     req.StockSymbol,
		Status:     StatusQueued,
		SceneCount: len(req.Data),
		Request:    req,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Public returns a copy without the request payload, which can be megabytes
// of base64 image data
func (j *Job) Public() *Job {
	cp := *j
	cp.Request = nil
	return &cp
}

// NewJobID returns a lexically sortable job ID. IDs minted in the same
// millisecond still differ: the shared entropy source is monotonic and safe
// for concurrent use.
func NewJobID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

// JobStore persists jobs so their status can be polled
type JobStore interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, job *Job) error
}
