package notification

import (
	"context"
	"time"
)

// CompletionEvent describes how a render job ended
type CompletionEvent struct {
	JobID      string         `json:"job_id"`
	Symbol     string         `json:"stock_symbol"`
	Status     string         `json:"status"`
	URL        string         `json:"url,omitempty"`
	Error      string         `json:"error,omitempty"`
	Filename   string         `json:"filename,omitempty"`
	SceneCount int            `json:"scene_count"`
	TradeSetup map[string]any `json:"trade_setup,omitempty"`
	FinishedAt time.Time      `json:"finished_at"`

	// CallbackURL is the per-request webhook, if the caller supplied one
	CallbackURL string `json:"-"`
}

// Succeeded reports whether the render produced a video
func (e *CompletionEvent) Succeeded() bool {
	return e.Error == ""
}

// Notifier reports a finished render to some channel
type Notifier interface {
	Notify(ctx context.Context, evt *CompletionEvent) error
}

// Named is implemented by notifiers that want a label in logs
type Named interface {
	Name() string
}
