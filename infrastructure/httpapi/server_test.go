package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apprender "github.com/ROJSUWAN/n8n-video-renderer/application/render"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/jobs"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/render"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/jobstore"
)

// mockSubmitter validates like the real submitter and records calls
type mockSubmitter struct {
	submitErr error
	renderErr error
	video     []byte
	submitted []*render.Request
}

func (m *mockSubmitter) Submit(ctx context.Context, req *render.Request) (*apprender.Accepted, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	m.submitted = append(m.submitted, req)
	return &apprender.Accepted{
		OK:      true,
		Message: fmt.Sprintf("Rendering %s in background. Check your GCS Bucket in 3-5 mins.", req.StockSymbol),
		Bucket:  "renders",
		JobID:   "job-1",
	}, nil
}

func (m *mockSubmitter) RenderNow(ctx context.Context, req *render.Request, keepBytes bool) (*render.Job, *apprender.Result, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	job := &render.Job{ID: "job-2", Symbol: req.StockSymbol}
	if m.renderErr != nil {
		return job, nil, m.renderErr
	}
	return job, &apprender.Result{
		Filename: req.StockSymbol + "_abc123.mp4",
		URL:      "https://storage.googleapis.com/renders/x.mp4",
		Video:    m.video,
	}, nil
}

func newTestServer(t *testing.T, sub Submitter, checks ...NamedCheck) (*Server, *jobstore.Memory) {
	t.Helper()
	store := jobstore.NewMemory(time.Hour)
	s := New(Config{}, sub, store, checks, zerolog.Nop())
	return s, store
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("invalid JSON %q: %v", raw, err)
		}
	}
	return resp, out
}

const validBody = `{"stock_symbol":"PTT","data":[{"scene_number":1,"script":"hello","image_base64":"aGVsbG8="}]}`

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t, &mockSubmitter{})
	resp, body := doJSON(t, s, http.MethodGet, "/", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["app"] != AppName || body["ok"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestPostRender_Accepted(t *testing.T) {
	sub := &mockSubmitter{}
	s, _ := newTestServer(t, sub)

	resp, body := doJSON(t, s, http.MethodPost, "/render", validBody)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["ok"] != true || body["bucket"] != "renders" || body["job_id"] != "job-1" {
		t.Errorf("body = %v", body)
	}
	if body["message"] != "Rendering PTT in background. Check your GCS Bucket in 3-5 mins." {
		t.Errorf("message = %v", body["message"])
	}
	if len(sub.submitted) != 1 {
		t.Errorf("submitted %d requests", len(sub.submitted))
	}
}

func TestPostRender_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		submitErr  error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "empty data",
			body:       `{"stock_symbol":"PTT","data":[]}`,
			wantStatus: http.StatusBadRequest,
			wantDetail: "Data is empty",
		},
		{
			name:       "missing data",
			body:       `{"stock_symbol":"PTT"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "data: field required",
		},
		{
			name:       "null data",
			body:       `{"stock_symbol":"PTT","data":null}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "data: field required",
		},
		{
			name:       "malformed json",
			body:       `{"stock_symbol":`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "wrong type",
			body:       `{"data":[{"scene_number":"one","script":"x","image_base64":"eA=="}]}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "missing script",
			body:       `{"data":[{"scene_number":1,"image_base64":"eA=="}]}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "duplicate scene",
			body:       `{"data":[{"scene_number":1,"script":"a","image_base64":"eA=="},{"scene_number":1,"script":"b","image_base64":"eA=="}]}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "queue full",
			body:       validBody,
			submitErr:  fmt.Errorf("enqueue job: %w", jobs.ErrQueueFull),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "store failure",
			body:       validBody,
			submitErr:  errors.New("redis down"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, &mockSubmitter{submitErr: tt.submitErr})
			resp, body := doJSON(t, s, http.MethodPost, "/render", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %v)", resp.StatusCode, tt.wantStatus, body)
			}
			d, ok := body["detail"].(string)
			if !ok || d == "" {
				t.Fatalf("missing detail in %v", body)
			}
			if tt.wantDetail != "" && d != tt.wantDetail {
				t.Errorf("detail = %q, want %q", d, tt.wantDetail)
			}
		})
	}
}

func TestPostRender_ReturnFile(t *testing.T) {
	sub := &mockSubmitter{video: []byte("mp4-bytes")}
	s, _ := newTestServer(t, sub)

	body := `{"stock_symbol":"PTT","return_file":true,"data":[{"scene_number":1,"script":"hello","image_base64":"aGVsbG8="}]}`
	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="PTT_abc123.mp4"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if resp.Header.Get("X-Job-ID") != "job-2" {
		t.Errorf("X-Job-ID = %q", resp.Header.Get("X-Job-ID"))
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "mp4-bytes" {
		t.Errorf("body = %q", data)
	}
	if len(sub.submitted) != 0 {
		t.Error("return_file requests must not be queued")
	}
}

func TestPostRender_ReturnFileFailure(t *testing.T) {
	s, _ := newTestServer(t, &mockSubmitter{renderErr: errors.New("ffmpeg error: boom")})

	body := `{"return_file":true,"data":[{"scene_number":1,"script":"hello","image_base64":"aGVsbG8="}]}`
	resp, out := doJSON(t, s, http.MethodPost, "/render", body)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(out["detail"].(string), "ffmpeg error: boom") {
		t.Errorf("detail = %v", out["detail"])
	}
}

func TestGetRender(t *testing.T) {
	s, store := newTestServer(t, &mockSubmitter{})

	req := &render.Request{StockSymbol: "PTT", Data: []render.Scene{{SceneNumber: 1, Script: "x", ImageBase64: "eA=="}}}
	job := render.NewJob(req, time.Now())
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	resp, body := doJSON(t, s, http.MethodGet, "/render/"+job.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["id"] != job.ID || body["status"] != "queued" || body["stock_symbol"] != "PTT" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["request"]; ok {
		t.Error("job response must not include the request payload")
	}

	resp, body = doJSON(t, s, http.MethodGet, "/render/unknown", "")
	if resp.StatusCode != http.StatusNotFound || body["detail"] != "Job not found" {
		t.Errorf("unknown job: status = %d, body = %v", resp.StatusCode, body)
	}
}

func TestHealth(t *testing.T) {
	ok := NamedCheck{Name: "ffmpeg", Check: func(ctx context.Context) error { return nil }}
	bad := NamedCheck{Name: "job_store", Check: func(ctx context.Context) error { return errors.New("connection refused") }}

	s, _ := newTestServer(t, &mockSubmitter{}, ok)
	resp, body := doJSON(t, s, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK || body["status"] != "healthy" || body["app"] != AppName {
		t.Errorf("healthy: status = %d, body = %v", resp.StatusCode, body)
	}

	s, _ = newTestServer(t, &mockSubmitter{}, ok, bad)
	resp, body = doJSON(t, s, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusServiceUnavailable || body["status"] != "unhealthy" {
		t.Errorf("unhealthy: status = %d, body = %v", resp.StatusCode, body)
	}
	checks := body["checks"].(map[string]any)
	if checks["ffmpeg"] != "ok" || checks["job_store"] != "connection refused" {
		t.Errorf("checks = %v", checks)
	}
}

func TestBodyLimit(t *testing.T) {
	s := New(Config{BodyLimit: 64}, &mockSubmitter{}, jobstore.NewMemory(time.Hour), nil, zerolog.Nop())

	// fasthttp rejects the body while reading the request, before app.Test
	// can hand back a response, so this runs against a real listener
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = s.App().Listener(ln) }()
	t.Cleanup(func() { _ = s.App().Shutdown() })

	resp, err := http.Post("http://"+ln.Addr().String()+"/render", "application/json",
		strings.NewReader(validBody+strings.Repeat(" ", 128)))
	if err != nil {
		t.Fatalf("POST /render error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["detail"] != "Request Entity Too Large" {
		t.Errorf("body = %v", body)
	}
}

func TestTrustedProxies(t *testing.T) {
	tests := []struct {
		in   []string
		want int
	}{
		{nil, 0},
		{[]string{"*"}, 0},
		{[]string{"10.0.0.1", "*"}, 0},
		{[]string{"10.0.0.1", "", "10.0.0.0/8"}, 2},
	}
	for _, tt := range tests {
		got := trustedProxies(tt.in)
		if len(got) != tt.want {
			t.Errorf("trustedProxies(%v) = %v", tt.in, got)
		}
	}
}

func TestProxyHeaderTrusted(t *testing.T) {
	var buf strings.Builder
	logger := zerolog.New(&buf)
	s := New(Config{TrustedProxies: []string{"*"}}, &mockSubmitter{}, jobstore.NewMemory(time.Hour), nil, logger)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if !strings.Contains(buf.String(), `"ip":"203.0.113.7"`) {
		t.Errorf("access log did not use forwarded IP: %s", buf.String())
	}
}

func TestProxyHeaderChained(t *testing.T) {
	var buf strings.Builder
	logger := zerolog.New(&buf)
	s := New(Config{TrustedProxies: []string{"*"}}, &mockSubmitter{}, jobstore.NewMemory(time.Hour), nil, logger)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "not-an-ip, 203.0.113.7, 10.0.0.1")
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if !strings.Contains(buf.String(), `"ip":"203.0.113.7"`) {
		t.Errorf("access log should hold the first valid client IP: %s", buf.String())
	}
}
