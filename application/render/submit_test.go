package render

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/jobs"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/render"
)

type mockQueue struct {
	payloads []jobs.RenderPayload
	err      error
}

func (m *mockQueue) Enqueue(ctx context.Context, p jobs.RenderPayload) error {
	if m.err != nil {
		return m.err
	}
	m.payloads = append(m.payloads, p)
	return nil
}

func TestSubmitter_Submit(t *testing.T) {
	f := newFixture(t, true)
	q := &mockQueue{}
	sub := NewSubmitter(f.store, q, f.svc, "my-bucket")

	acc, err := sub.Submit(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if !acc.OK || acc.Bucket != "my-bucket" || acc.JobID == "" {
		t.Errorf("accepted = %+v", acc)
	}
	if acc.Message != "Rendering NVDA in background. Check your GCS Bucket in 3-5 mins." {
		t.Errorf("message = %q", acc.Message)
	}
	if len(q.payloads) != 1 || q.payloads[0].JobID != acc.JobID {
		t.Errorf("queued = %+v", q.payloads)
	}

	job, err := f.store.Get(context.Background(), acc.JobID)
	if err != nil {
		t.Fatalf("job not stored: %v", err)
	}
	if job.Status != render.StatusQueued || job.SceneCount != 2 {
		t.Errorf("job = %+v", job)
	}
	if !regexp.MustCompile(`^NVDA_[0-9a-f]{6}\.mp4$`).MatchString(job.Filename) {
		t.Errorf("filename = %q", job.Filename)
	}
}

func TestSubmitter_Submit_DefaultSymbol(t *testing.T) {
	f := newFixture(t, true)
	sub := NewSubmitter(f.store, &mockQueue{}, f.svc, "")

	req := sampleRequest()
	req.StockSymbol = ""
	acc, err := sub.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if acc.Message != "Rendering UNKNOWN in background. Check your GCS Bucket in 3-5 mins." {
		t.Errorf("message = %q", acc.Message)
	}
}

func TestSubmitter_Submit_Invalid(t *testing.T) {
	f := newFixture(t, true)
	q := &mockQueue{}
	sub := NewSubmitter(f.store, q, f.svc, "")

	req := sampleRequest()
	req.Data = nil
	if _, err := sub.Submit(context.Background(), req); !errors.Is(err, render.ErrEmptyData) {
		t.Errorf("Submit() error = %v, want ErrEmptyData", err)
	}
	if len(q.payloads) != 0 {
		t.Error("invalid request must not be queued")
	}
}

func TestSubmitter_Submit_QueueFull(t *testing.T) {
	f := newFixture(t, true)
	sub := NewSubmitter(f.store, &mockQueue{err: jobs.ErrQueueFull}, f.svc, "")

	if _, err := sub.Submit(context.Background(), sampleRequest()); !errors.Is(err, jobs.ErrQueueFull) {
		t.Errorf("Submit() error = %v, want ErrQueueFull", err)
	}
}

func TestSubmitter_RenderNow(t *testing.T) {
	f := newFixture(t, true)
	sub := NewSubmitter(f.store, &mockQueue{}, f.svc, "bucket")

	job, res, err := sub.RenderNow(context.Background(), sampleRequest(), true)
	if err != nil {
		t.Fatalf("RenderNow() error = %v", err)
	}
	if string(res.Video) != "final-mp4" {
		t.Errorf("video = %q", res.Video)
	}
	if job.Status != render.StatusSucceeded {
		t.Errorf("status = %s", job.Status)
	}
	stored, _ := f.store.Get(context.Background(), job.ID)
	if stored.Status != render.StatusSucceeded {
		t.Errorf("stored status = %s", stored.Status)
	}
	if len(f.notifier.events) != 1 {
		t.Errorf("events = %d, want 1", len(f.notifier.events))
	}
}
