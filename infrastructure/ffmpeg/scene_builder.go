package ffmpeg

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/video"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/command"
)

// SceneBuilder implements video.SceneBuilder using ffmpeg
type SceneBuilder struct {
	ffmpegPath string
	profile    video.Profile
	runner     command.Runner
}

// Option is a functional option shared by the ffmpeg adapters
type Option func(*options)

type options struct {
	ffmpegPath string
	runner     command.Runner
}

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) Option {
	return func(o *options) {
		if path != "" {
			o.ffmpegPath = path
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner command.Runner) Option {
	return func(o *options) {
		o.runner = runner
	}
}

func buildOptions(opts []Option) options {
	o := options{
		ffmpegPath: "ffmpeg",
		runner:     command.NewExecRunner(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewSceneBuilder creates a new FFmpeg-based scene builder
func NewSceneBuilder(profile video.Profile, opts ...Option) *SceneBuilder {
	o := buildOptions(opts)
	return &SceneBuilder{
		ffmpegPath: o.ffmpegPath,
		profile:    profile,
		runner:     o.runner,
	}
}

// Args returns the ffmpeg arguments for one scene
func (b *SceneBuilder) Args(in video.SceneInput, outputPath string) []string {
	p := b.profile
	return []string{
		"-y",
		"-loop", "1",
		"-framerate", p.FPSArg(),
		"-i", in.ImagePath,
		"-i", in.AudioPath,
		"-vf", p.VideoFilter(),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-preset", p.Preset,
		"-crf", strconv.Itoa(p.CRF),
		"-c:a", "aac",
		"-b:a", p.AudioBitrate,
		"-shortest", // The looped image would otherwise never end
		outputPath,
	}
}

// BuildScene implements video.SceneBuilder
func (b *SceneBuilder) BuildScene(ctx context.Context, in video.SceneInput, outputPath string) error {
	if err := b.runner.Run(ctx, b.ffmpegPath, b.Args(in, outputPath)...); err != nil {
		return fmt.Errorf("build scene %s: %w", outputPath, err)
	}
	return nil
}

// VerifyInstalled checks that ffmpeg is available
func (b *SceneBuilder) VerifyInstalled(ctx context.Context) error {
	return verifyInstalled(ctx, b.runner, b.ffmpegPath)
}

func verifyInstalled(ctx context.Context, runner command.Runner, ffmpegPath string) error {
	if _, err := runner.Output(ctx, ffmpegPath, "-version"); err != nil {
		if command.IsNotFound(err) {
			return fmt.Errorf("ffmpeg not found at %q: %w", ffmpegPath, err)
		}
		return fmt.Errorf("ffmpeg is not executable: %w", err)
	}
	return nil
}

// Ensure SceneBuilder implements video.SceneBuilder
var _ video.SceneBuilder = (*SceneBuilder)(nil)
