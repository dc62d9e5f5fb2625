//go:build integration

package steps

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	appdist "github.com/ROJSUWAN/n8n-video-renderer/application/distribution"
	appnotif "github.com/ROJSUWAN/n8n-video-renderer/application/notification"
	apprender "github.com/ROJSUWAN/n8n-video-renderer/application/render"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/distribution"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/notification"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/render"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/video"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/filesystem"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/httpapi"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/jobstore"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/localstore"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/queue"

	"github.com/cucumber/godog"
)

const jobWait = 5 * time.Second

var sceneImage = base64.StdEncoding.EncodeToString([]byte("\x89PNG fake image"))

// fakeSynth writes a placeholder MP3 for each script
type fakeSynth struct {
	mu  sync.Mutex
	err error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voice, outputPath string) error {
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("mp3:"+text), 0644)
}

func (f *fakeSynth) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeBuilder struct{}

func (fakeBuilder) BuildScene(ctx context.Context, in video.SceneInput, outputPath string) error {
	return os.WriteFile(outputPath, []byte("clip:"+filepath.Base(in.ImagePath)), 0644)
}

type fakeConcat struct{}

func (fakeConcat) Concat(ctx context.Context, clips []string, outputPath string) error {
	var b strings.Builder
	for _, c := range clips {
		data, err := os.ReadFile(c)
		if err != nil {
			return err
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return os.WriteFile(outputPath, []byte(b.String()), 0644)
}

// recordingNotifier keeps every completion event
type recordingNotifier struct {
	mu     sync.Mutex
	events []*notification.CompletionEvent
}

func (r *recordingNotifier) Notify(ctx context.Context, evt *notification.CompletionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingNotifier) snapshot() []*notification.CompletionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*notification.CompletionEvent(nil), r.events...)
}

type renderContext struct {
	tempDir   string
	outputDir string
	synth     *fakeSynth
	notifier  *recordingNotifier
	store     *jobstore.Memory
	queue     *queue.Memory
	server    *httpapi.Server
	cancel    context.CancelFunc
	storeErr  error
	storeMu   sync.Mutex

	status int
	header http.Header
	body   []byte
	jobID  string
	job    *render.Job
}

// SharedRenderContext is reset before each scenario via After hook
var SharedRenderContext = &renderContext{}

func InitializeRenderScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedRenderContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "render-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.outputDir = ""
		testCtx.server = nil
		testCtx.storeErr = nil
		testCtx.status = 0
		testCtx.body = nil
		testCtx.jobID = ""
		testCtx.job = nil
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		testCtx.stop()
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		SharedRenderContext = &renderContext{}
		return c, nil
	})

	ctx.Step(`^the renderer is running with local storage$`, testCtx.theRendererIsRunningWithLocalStorage)
	ctx.Step(`^the renderer is running without storage$`, testCtx.theRendererIsRunningWithoutStorage)
	ctx.Step(`^speech synthesis fails with "([^"]*)"$`, testCtx.speechSynthesisFailsWith)
	ctx.Step(`^the job store is unavailable$`, testCtx.theJobStoreIsUnavailable)
	ctx.Step(`^I post a render request for "([^"]*)" with (\d+) scenes?$`, testCtx.iPostARenderRequest)
	ctx.Step(`^I post a render request for "([^"]*)" with (\d+) scenes? and return_file$`, testCtx.iPostARenderRequestWithReturnFile)
	ctx.Step(`^I post a render request with scene numbers "([^"]*)"$`, testCtx.iPostARenderRequestWithSceneNumbers)
	ctx.Step(`^I post the raw render body:$`, testCtx.iPostTheRawRenderBody)
	ctx.Step(`^I request "([^"]*)"$`, testCtx.iRequest)
	ctx.Step(`^I request the status of the submitted job$`, testCtx.iRequestTheStatusOfTheSubmittedJob)
	ctx.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseFieldShouldBe)
	ctx.Step(`^the response detail should contain "([^"]*)"$`, testCtx.theResponseDetailShouldContain)
	ctx.Step(`^the response should include a job id$`, testCtx.theResponseShouldIncludeAJobID)
	ctx.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	ctx.Step(`^the response header "([^"]*)" should contain "([^"]*)"$`, testCtx.theResponseHeaderShouldContain)
	ctx.Step(`^the response body should be the rendered video$`, testCtx.theResponseBodyShouldBeTheRenderedVideo)
	ctx.Step(`^the job should finish with status "([^"]*)"$`, testCtx.theJobShouldFinishWithStatus)
	ctx.Step(`^the job URL should be "([^"]*)"$`, testCtx.theJobURLShouldBe)
	ctx.Step(`^the job URL should start with "([^"]*)"$`, testCtx.theJobURLShouldStartWith)
	ctx.Step(`^the job filename should start with "([^"]*)"$`, testCtx.theJobFilenameShouldStartWith)
	ctx.Step(`^the job error should contain "([^"]*)"$`, testCtx.theJobErrorShouldContain)
	ctx.Step(`^a video starting with "([^"]*)" should be stored$`, testCtx.aVideoStartingWithShouldBeStored)
	ctx.Step(`^a "([^"]*)" notification should be sent for "([^"]*)"$`, testCtx.aNotificationShouldBeSentFor)
	ctx.Step(`^no notification should be sent$`, testCtx.noNotificationShouldBeSent)
}

func (r *renderContext) start(uploader distribution.Uploader) error {
	logger := zerolog.Nop()
	r.synth = &fakeSynth{}
	r.notifier = &recordingNotifier{}
	r.store = jobstore.NewMemory(0)
	r.queue = queue.NewMemory(10, 1, logger)

	uploads := appdist.NewUploadService(uploader, logger)
	service := apprender.NewService(
		r.synth, fakeBuilder{}, fakeConcat{}, filesystem.NewChecker(),
		uploads, r.store, appnotif.NewService(logger, r.notifier),
		apprender.Config{WorkDir: filepath.Join(r.tempDir, "work")},
	)
	if err := os.MkdirAll(filepath.Join(r.tempDir, "work"), 0755); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.queue.Start(ctx, service.Process)

	submitter := apprender.NewSubmitter(r.store, r.queue, service, uploads.Destination())
	checks := []httpapi.NamedCheck{
		{Name: "job_store", Check: func(ctx context.Context) error {
			r.storeMu.Lock()
			defer r.storeMu.Unlock()
			return r.storeErr
		}},
	}
	r.server = httpapi.New(httpapi.Config{}, submitter, r.store, checks, logger)
	return nil
}

func (r *renderContext) stop() {
	if r.queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), jobWait)
		r.queue.Shutdown(ctx)
		cancel()
	}
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *renderContext) theRendererIsRunningWithLocalStorage() error {
	r.outputDir = filepath.Join(r.tempDir, "videos")
	store, err := localstore.New(r.outputDir)
	if err != nil {
		return err
	}
	return r.start(store)
}

func (r *renderContext) theRendererIsRunningWithoutStorage() error {
	return r.start(nil)
}

func (r *renderContext) speechSynthesisFailsWith(msg string) error {
	r.synth.fail(errors.New(msg))
	return nil
}

func (r *renderContext) theJobStoreIsUnavailable() error {
	r.storeMu.Lock()
	defer r.storeMu.Unlock()
	r.storeErr = errors.New("connection refused")
	return nil
}

func (r *renderContext) do(req *http.Request) error {
	if r.server == nil {
		return fmt.Errorf("renderer is not running")
	}
	resp, err := r.server.App().Test(req, -1)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	r.status = resp.StatusCode
	r.header = resp.Header
	r.body = body
	return nil
}

func (r *renderContext) postJSON(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.postRaw(data)
}

func (r *renderContext) postRaw(data []byte) error {
	req := httptest.NewRequest(http.MethodPost, "/render", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if err := r.do(req); err != nil {
		return err
	}

	var accepted struct {
		JobID string `json:"job_id"`
	}
	if json.Unmarshal(r.body, &accepted) == nil && accepted.JobID != "" {
		r.jobID = accepted.JobID
	}
	if id := r.header.Get("X-Job-ID"); id != "" {
		r.jobID = id
	}
	return nil
}

func scenes(numbers ...int) []map[string]any {
	out := make([]map[string]any, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, map[string]any{
			"scene_number": n,
			"script":       fmt.Sprintf("narration for scene %d", n),
			"image_base64": sceneImage,
		})
	}
	return out
}

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func (r *renderContext) iPostARenderRequest(symbol string, count int) error {
	return r.postJSON(map[string]any{
		"stock_symbol": symbol,
		"trade_setup":  map[string]any{"entry": 101.5},
		"data":         scenes(sequence(count)...),
	})
}

func (r *renderContext) iPostARenderRequestWithReturnFile(symbol string, count int) error {
	return r.postJSON(map[string]any{
		"stock_symbol": symbol,
		"data":         scenes(sequence(count)...),
		"return_file":  true,
	})
}

func (r *renderContext) iPostARenderRequestWithSceneNumbers(list string) error {
	var numbers []int
	for _, p := range strings.Split(list, ",") {
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%d", &n); err != nil {
			return fmt.Errorf("bad scene number %q: %w", p, err)
		}
		numbers = append(numbers, n)
	}
	return r.postJSON(map[string]any{
		"stock_symbol": "ORDER",
		"data":         scenes(numbers...),
	})
}

func (r *renderContext) iPostTheRawRenderBody(doc *godog.DocString) error {
	return r.postRaw([]byte(doc.Content))
}

func (r *renderContext) iRequest(path string) error {
	return r.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (r *renderContext) iRequestTheStatusOfTheSubmittedJob() error {
	if r.jobID == "" {
		return fmt.Errorf("no job was submitted")
	}
	return r.iRequest("/render/" + r.jobID)
}

func (r *renderContext) theResponseStatusShouldBe(expected int) error {
	if r.status != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, r.status, string(r.body))
	}
	return nil
}

func (r *renderContext) field(name string) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(r.body, &m); err != nil {
		return "", fmt.Errorf("response is not JSON: %s", string(r.body))
	}
	var cur any = m
	for _, part := range strings.Split(name, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return "", fmt.Errorf("field %q not found in %s", name, string(r.body))
		}
		if cur, ok = obj[part]; !ok {
			return "", fmt.Errorf("field %q not found in %s", name, string(r.body))
		}
	}
	return fmt.Sprint(cur), nil
}

func (r *renderContext) theResponseFieldShouldBe(name, expected string) error {
	got, err := r.field(name)
	if err != nil {
		return err
	}
	if got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", name, expected, got)
	}
	return nil
}

func (r *renderContext) theResponseDetailShouldContain(expected string) error {
	got, err := r.field("detail")
	if err != nil {
		return err
	}
	if !strings.Contains(got, expected) {
		return fmt.Errorf("expected detail to contain %q, got %q", expected, got)
	}
	return nil
}

func (r *renderContext) theResponseShouldIncludeAJobID() error {
	if r.jobID == "" {
		return fmt.Errorf("no job id in response: %s", string(r.body))
	}
	return nil
}

func (r *renderContext) theResponseHeaderShouldBe(name, expected string) error {
	if got := r.header.Get(name); got != expected {
		return fmt.Errorf("expected header %s %q, got %q", name, expected, got)
	}
	return nil
}

func (r *renderContext) theResponseHeaderShouldContain(name, expected string) error {
	if got := r.header.Get(name); !strings.Contains(got, expected) {
		return fmt.Errorf("expected header %s to contain %q, got %q", name, expected, got)
	}
	return nil
}

func (r *renderContext) theResponseBodyShouldBeTheRenderedVideo() error {
	if !bytes.HasPrefix(r.body, []byte("clip:")) {
		return fmt.Errorf("expected rendered video bytes, got %q", string(r.body))
	}
	return nil
}

func (r *renderContext) theJobShouldFinishWithStatus(expected string) error {
	if r.jobID == "" {
		return fmt.Errorf("no job was submitted")
	}
	deadline := time.Now().Add(jobWait)
	for {
		job, err := r.store.Get(context.Background(), r.jobID)
		if err != nil {
			return err
		}
		if job.Status.IsTerminal() {
			r.job = job
			if string(job.Status) != expected {
				return fmt.Errorf("expected job status %q, got %q (error: %s)", expected, job.Status, job.Error)
			}
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("job still %s after %s", job.Status, jobWait)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func (r *renderContext) finishedJob() (*render.Job, error) {
	if r.job == nil {
		return nil, fmt.Errorf("job has not finished")
	}
	return r.job, nil
}

func (r *renderContext) theJobURLShouldBe(expected string) error {
	job, err := r.finishedJob()
	if err != nil {
		return err
	}
	if job.URL != expected {
		return fmt.Errorf("expected job URL %q, got %q", expected, job.URL)
	}
	return nil
}

func (r *renderContext) theJobURLShouldStartWith(prefix string) error {
	job, err := r.finishedJob()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(job.URL, prefix) {
		return fmt.Errorf("expected job URL to start with %q, got %q", prefix, job.URL)
	}
	return nil
}

func (r *renderContext) theJobFilenameShouldStartWith(prefix string) error {
	job, err := r.finishedJob()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(job.Filename, prefix) || !strings.HasSuffix(job.Filename, ".mp4") {
		return fmt.Errorf("expected filename %s*.mp4, got %q", prefix, job.Filename)
	}
	return nil
}

func (r *renderContext) theJobErrorShouldContain(expected string) error {
	job, err := r.finishedJob()
	if err != nil {
		return err
	}
	if !strings.Contains(job.Error, expected) {
		return fmt.Errorf("expected job error to contain %q, got %q", expected, job.Error)
	}
	return nil
}

func (r *renderContext) aVideoStartingWithShouldBeStored(prefix string) error {
	if r.outputDir == "" {
		return fmt.Errorf("local storage is not configured")
	}
	matches, err := filepath.Glob(filepath.Join(r.outputDir, prefix+"*.mp4"))
	if err != nil {
		return err
	}
	if len(matches) != 1 {
		return fmt.Errorf("expected one stored video starting with %q, found %v", prefix, matches)
	}
	return nil
}

func (r *renderContext) aNotificationShouldBeSentFor(status, symbol string) error {
	deadline := time.Now().Add(jobWait)
	for {
		for _, evt := range r.notifier.snapshot() {
			if evt.Status == status && evt.Symbol == symbol {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no %s notification for %s, got %d events", status, symbol, len(r.notifier.snapshot()))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func (r *renderContext) noNotificationShouldBeSent() error {
	if events := r.notifier.snapshot(); len(events) != 0 {
		return fmt.Errorf("expected no notifications, got %d", len(events))
	}
	return nil
}
