package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/jobs"
)

// DefaultTaskTimeout bounds one render attempt
const DefaultTaskTimeout = 30 * time.Minute

// Enqueuer is the subset of asynq.Client used for publishing
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Redis publishes render tasks to asynq
type Redis struct {
	client   Enqueuer
	maxRetry int
	timeout  time.Duration
}

// NewRedis creates a Redis-backed queue producer
func NewRedis(client Enqueuer, maxRetry int, timeout time.Duration) *Redis {
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	return &Redis{client: client, maxRetry: maxRetry, timeout: timeout}
}

// NewTask encodes a render payload as an asynq task
func NewTask(p jobs.RenderPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(jobs.TaskRender, b), nil
}

// Enqueue implements jobs.Queue
func (q *Redis) Enqueue(ctx context.Context, p jobs.RenderPayload) error {
	task, err := NewTask(p)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(q.maxRetry),
		asynq.Timeout(q.timeout),
		asynq.TaskID(p.JobID),
	)
	if err != nil {
		return fmt.Errorf("asynq enqueue %s failed: %w", jobs.TaskRender, err)
	}
	return nil
}

// HandleTask adapts a jobs.Handler to asynq
func HandleTask(h jobs.Handler) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p jobs.RenderPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
		}
		return h(jobs.WithFinalAttempt(ctx, finalAttempt(ctx)), p)
	}
}

// finalAttempt reports whether asynq will give up if this attempt fails
func finalAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}

// NewServeMux routes render tasks to h
func NewServeMux(h jobs.Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TaskRender, HandleTask(h))
	return mux
}

// NewServer creates an asynq worker server
func NewServer(redisOpt asynq.RedisClientOpt, concurrency int, logger zerolog.Logger) *asynq.Server {
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Logger:      NewAsynqLogger(logger),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error().Err(err).Str("task", task.Type()).Msg("asynq task failed")
		}),
	})
}

// AsynqLogger routes asynq's internal logging through zerolog
type AsynqLogger struct {
	l zerolog.Logger
}

// NewAsynqLogger wraps a zerolog logger for asynq
func NewAsynqLogger(l zerolog.Logger) *AsynqLogger {
	return &AsynqLogger{l: l.With().Str("component", "asynq").Logger()}
}

func (a *AsynqLogger) Debug(args ...interface{}) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a *AsynqLogger) Info(args ...interface{})  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a *AsynqLogger) Warn(args ...interface{})  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a *AsynqLogger) Error(args ...interface{}) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a *AsynqLogger) Fatal(args ...interface{}) { a.l.Fatal().Msg(fmt.Sprint(args...)) }

var (
	_ jobs.Queue   = (*Redis)(nil)
	_ asynq.Logger = (*AsynqLogger)(nil)
)
