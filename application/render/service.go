package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	appdist "github.com/ROJSUWAN/n8n-video-renderer/application/distribution"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/distribution"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/notification"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/render"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/speech"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/video"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/filesystem"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/logging"
)

// Notifier reports finished jobs
type Notifier interface {
	Notify(ctx context.Context, evt *notification.CompletionEvent) error
}

// Config holds pipeline settings
type Config struct {
	Voice   string // speech voice for every scene
	WorkDir string // parent of render_* workspaces, OS temp dir when empty
}

// Service runs the render pipeline: speech, scene clips, concat, upload
type Service struct {
	synth    speech.Synthesizer
	builder  video.SceneBuilder
	concat   video.Concatenator
	checker  video.FileChecker
	uploads  *appdist.UploadService
	store    render.JobStore
	notifier Notifier
	cfg      Config
	now      func() time.Time
}

// NewService creates a new render service
func NewService(
	synth speech.Synthesizer,
	builder video.SceneBuilder,
	concat video.Concatenator,
	checker video.FileChecker,
	uploads *appdist.UploadService,
	store render.JobStore,
	notifier Notifier,
	cfg Config,
) *Service {
	if cfg.Voice == "" {
		cfg.Voice = speech.DefaultVoice
	}
	return &Service{
		synth:    synth,
		builder:  builder,
		concat:   concat,
		checker:  checker,
		uploads:  uploads,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Result describes a finished render
type Result struct {
	Filename string
	URL      string // upload URL, or the not-configured marker
	Uploaded bool
	Size     int64
	Video    []byte // only set by RenderFile
}

// Render builds the video for a job and uploads it. The workspace is always
// removed before returning.
func (s *Service) Render(ctx context.Context, job *render.Job) (*Result, error) {
	return s.render(ctx, job, false)
}

// RenderFile is Render that also returns the MP4 bytes
func (s *Service) RenderFile(ctx context.Context, job *render.Job) (*Result, error) {
	return s.render(ctx, job, true)
}

func (s *Service) render(ctx context.Context, job *render.Job, keepBytes bool) (*Result, error) {
	if job.Request == nil {
		return nil, fmt.Errorf("job %s has no request", job.ID)
	}
	logger := logging.FromCtx(ctx)
	start := s.now()

	filename := job.Filename
	if filename == "" {
		filename = job.Request.OutputFilename(render.NewSuffix())
	}

	ws, err := filesystem.NewWorkspace(s.cfg.WorkDir)
	if err != nil {
		return nil, err
	}
	defer ws.Remove()

	scenes := job.Request.SortedScenes()
	clips := make([]string, 0, len(scenes))
	for i, scene := range scenes {
		logger.Info().
			Int("scene", scene.SceneNumber).
			Msgf("[%d/%d] building scene", i+1, len(scenes))

		clip, err := s.buildScene(ctx, ws, scene)
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", scene.SceneNumber, err)
		}
		clips = append(clips, clip)
	}

	output := ws.OutputPath(filename)
	if err := s.concat.Concat(ctx, clips, output); err != nil {
		return nil, err
	}
	if !s.checker.Exists(output) {
		return nil, fmt.Errorf("concat produced no output: %s", filename)
	}

	result := &Result{Filename: filename}
	if keepBytes {
		if result.Video, err = os.ReadFile(output); err != nil {
			return nil, fmt.Errorf("read output: %w", err)
		}
	}

	up, err := s.uploads.UploadVideo(ctx, output)
	switch {
	case errors.Is(err, distribution.ErrNotConfigured):
		result.URL = distribution.NotConfiguredMarker
	case err != nil:
		return nil, err
	default:
		result.URL = up.URL
		result.Uploaded = true
		result.Size = up.Size
	}

	logger.Info().
		Str("file", filename).
		Dur("took", s.now().Sub(start)).
		Msg("render complete")
	return result, nil
}

// buildScene decodes the image, speaks the script and encodes one clip
func (s *Service) buildScene(ctx context.Context, ws *filesystem.Workspace, scene render.Scene) (string, error) {
	img, err := render.DecodeImage(scene.ImageBase64)
	if err != nil {
		return "", err
	}
	imgPath := ws.ImagePath(scene.SceneNumber)
	if err := ws.WriteFile(imgPath, img); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	audioPath := ws.AudioPath(scene.SceneNumber)
	if err := s.synth.Synthesize(ctx, scene.Script, s.cfg.Voice, audioPath); err != nil {
		return "", err
	}
	if !s.checker.Exists(audioPath) {
		return "", fmt.Errorf("speech synthesis produced no audio")
	}

	clip := ws.ScenePath(scene.SceneNumber)
	in := video.SceneInput{ImagePath: imgPath, AudioPath: audioPath}
	if err := s.builder.BuildScene(ctx, in, clip); err != nil {
		return "", err
	}
	if !s.checker.Exists(clip) {
		return "", fmt.Errorf("scene clip was not created")
	}
	return clip, nil
}
