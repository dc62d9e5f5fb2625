package queue

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/jobs"
)

func TestMemory_ProcessesTasks(t *testing.T) {
	q := NewMemory(10, 2, zerolog.Nop())

	var mu sync.Mutex
	var seen []string
	q.Start(context.Background(), func(ctx context.Context, p jobs.RenderPayload) error {
		mu.Lock()
		seen = append(seen, p.JobID)
		mu.Unlock()
		return nil
	})

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(context.Background(), jobs.RenderPayload{JobID: id}); err != nil {
			t.Fatalf("Enqueue(%s) error = %v", id, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Errorf("processed %v, want 3 tasks", seen)
	}
}

func TestMemory_Full(t *testing.T) {
	q := NewMemory(1, 1, zerolog.Nop())

	if err := q.Enqueue(context.Background(), jobs.RenderPayload{JobID: "a"}); err != nil {
		t.Fatalf("first Enqueue() error = %v", err)
	}
	if err := q.Enqueue(context.Background(), jobs.RenderPayload{JobID: "b"}); !errors.Is(err, jobs.ErrQueueFull) {
		t.Errorf("second Enqueue() error = %v, want ErrQueueFull", err)
	}
	if q.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", q.Pending())
	}
}

func TestMemory_ClosedAfterShutdown(t *testing.T) {
	q := NewMemory(1, 1, zerolog.Nop())
	if err := q.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(context.Background(), jobs.RenderPayload{JobID: "a"}); !errors.Is(err, jobs.ErrQueueClosed) {
		t.Errorf("Enqueue() error = %v, want ErrQueueClosed", err)
	}
	// Second shutdown is a no-op
	if err := q.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestMemory_RecoversFromPanic(t *testing.T) {
	var buf bytes.Buffer
	q := NewMemory(2, 1, zerolog.New(&buf))

	done := make(chan struct{})
	q.Start(context.Background(), func(ctx context.Context, p jobs.RenderPayload) error {
		if p.JobID == "boom" {
			panic("kaboom")
		}
		close(done)
		return nil
	})

	_ = q.Enqueue(context.Background(), jobs.RenderPayload{JobID: "boom"})
	_ = q.Enqueue(context.Background(), jobs.RenderPayload{JobID: "ok"})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive panic")
	}
	_ = q.Shutdown(context.Background())
	if !strings.Contains(buf.String(), "kaboom") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  []asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = opts
	return &asynq.TaskInfo{ID: "x", Type: task.Type()}, nil
}

func TestRedis_Enqueue(t *testing.T) {
	fe := &fakeEnqueuer{}
	q := NewRedis(fe, 0, 0)

	if err := q.Enqueue(context.Background(), jobs.RenderPayload{JobID: "01JOB"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if len(fe.tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(fe.tasks))
	}
	task := fe.tasks[0]
	if task.Type() != jobs.TaskRender {
		t.Errorf("task type = %q", task.Type())
	}
	if string(task.Payload()) != `{"job_id":"01JOB"}` {
		t.Errorf("payload = %s", task.Payload())
	}
	if len(fe.opts) != 3 {
		t.Errorf("expected MaxRetry, Timeout and TaskID options, got %d", len(fe.opts))
	}
}

func TestRedis_EnqueueError(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	q := NewRedis(&fakeEnqueuer{err: boom}, 0, time.Minute)
	if err := q.Enqueue(context.Background(), jobs.RenderPayload{JobID: "x"}); !errors.Is(err, boom) {
		t.Errorf("Enqueue() error = %v, want %v", err, boom)
	}
}

func TestHandleTask(t *testing.T) {
	var got jobs.RenderPayload
	var final bool
	h := HandleTask(func(ctx context.Context, p jobs.RenderPayload) error {
		got = p
		final = jobs.IsFinalAttempt(ctx)
		return nil
	})

	task, err := NewTask(jobs.RenderPayload{JobID: "01ABC"})
	if err != nil {
		t.Fatal(err)
	}
	if err := h(context.Background(), task); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got.JobID != "01ABC" {
		t.Errorf("payload = %+v", got)
	}
	if !final {
		t.Error("attempt outside an asynq server should be final")
	}

	err = h(context.Background(), asynq.NewTask(jobs.TaskRender, []byte("{bad")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("malformed payload error = %v, want SkipRetry", err)
	}
}

func TestAsynqLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewAsynqLogger(zerolog.New(&buf))
	l.Info("starting ", "processor")
	if !strings.Contains(buf.String(), `"message":"starting processor"`) || !strings.Contains(buf.String(), `"component":"asynq"`) {
		t.Errorf("log = %s", buf.String())
	}
}
