package tts

import (
	"context"
	"fmt"
	"strings"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/speech"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/command"
)

// EdgeSynthesizer implements speech.Synthesizer with the edge-tts CLI
type EdgeSynthesizer struct {
	path   string
	runner command.Runner
}

// EdgeOption configures an EdgeSynthesizer
type EdgeOption func(*EdgeSynthesizer)

// WithEdgePath sets a custom edge-tts executable path
func WithEdgePath(path string) EdgeOption {
	return func(s *EdgeSynthesizer) {
		if path != "" {
			s.path = path
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner command.Runner) EdgeOption {
	return func(s *EdgeSynthesizer) {
		s.runner = runner
	}
}

// NewEdgeSynthesizer creates a synthesizer backed by edge-tts
func NewEdgeSynthesizer(opts ...EdgeOption) *EdgeSynthesizer {
	s := &EdgeSynthesizer{
		path:   "edge-tts",
		runner: command.NewExecRunner(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Args returns the edge-tts arguments. The text is passed in --flag=value
// form so scripts starting with "-" are not parsed as options.
func (s *EdgeSynthesizer) Args(text, voice, outputPath string) []string {
	return []string{
		"--voice", voice,
		"--text=" + text,
		"--write-media", outputPath,
	}
}

// Synthesize implements speech.Synthesizer
func (s *EdgeSynthesizer) Synthesize(ctx context.Context, text, voice, outputPath string) error {
	if strings.TrimSpace(text) == "" {
		return speech.ErrEmptyText
	}
	if voice == "" {
		voice = speech.DefaultVoice
	}
	if err := s.runner.Run(ctx, s.path, s.Args(text, voice, outputPath)...); err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}
	return nil
}

// VerifyInstalled checks if edge-tts is available
func (s *EdgeSynthesizer) VerifyInstalled(ctx context.Context) error {
	if _, err := s.runner.Output(ctx, s.path, "--version"); err != nil {
		if command.IsNotFound(err) {
			return fmt.Errorf("edge-tts not found at %q: %w", s.path, err)
		}
		return fmt.Errorf("edge-tts is not executable: %w", err)
	}
	return nil
}
