package jobs

import (
	"context"
	"errors"
)

// ErrQueueFull is returned when the in-process queue cannot take more work
var ErrQueueFull = errors.New("render queue is full")

// ErrQueueClosed is returned when enqueueing after shutdown has started
var ErrQueueClosed = errors.New("render queue is closed")

// Queue hands render tasks to workers
type Queue interface {
	Enqueue(ctx context.Context, p RenderPayload) error
}

// Handler processes one render task
type Handler func(ctx context.Context, p RenderPayload) error

type attemptKey struct{}

// WithFinalAttempt records on ctx whether a failed handler will be retried
func WithFinalAttempt(ctx context.Context, final bool) context.Context {
	return context.WithValue(ctx, attemptKey{}, final)
}

// IsFinalAttempt reports whether this delivery is the last one. Queues that
// never retry leave it unset, which counts as final.
func IsFinalAttempt(ctx context.Context) bool {
	final, ok := ctx.Value(attemptKey{}).(bool)
	return !ok || final
}
