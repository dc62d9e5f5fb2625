package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/video"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/command"
)

// ConcatListName is the demuxer list written next to the output file
const ConcatListName = "concat_list.txt"

// Concatenator implements video.Concatenator with the concat demuxer.
// Clips are stream copied, so they must share codecs and frame size.
type Concatenator struct {
	ffmpegPath string
	runner     command.Runner
}

// NewConcatenator creates a new FFmpeg-based concatenator
func NewConcatenator(opts ...Option) *Concatenator {
	o := buildOptions(opts)
	return &Concatenator{
		ffmpegPath: o.ffmpegPath,
		runner:     o.runner,
	}
}

// ConcatList renders the demuxer list for the given clips
func ConcatList(clips []string) (string, error) {
	lines := make([]string, 0, len(clips))
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", clip, err)
		}
		// The demuxer escapes a quote as '\''
		lines = append(lines, fmt.Sprintf("file '%s'", strings.ReplaceAll(abs, "'", `'\''`)))
	}
	return strings.Join(lines, "\n"), nil
}

// Concat implements video.Concatenator
func (c *Concatenator) Concat(ctx context.Context, clips []string, outputPath string) error {
	if len(clips) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	content, err := ConcatList(clips)
	if err != nil {
		return err
	}
	listFile := filepath.Join(filepath.Dir(outputPath), ConcatListName)
	if err := os.WriteFile(listFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0", // Absolute paths are rejected in safe mode
		"-i", listFile,
		"-c", "copy",
		outputPath,
	}
	if err := c.runner.Run(ctx, c.ffmpegPath, args...); err != nil {
		return fmt.Errorf("concat %d clips: %w", len(clips), err)
	}

	return nil
}

// VerifyInstalled checks that ffmpeg is available
func (c *Concatenator) VerifyInstalled(ctx context.Context) error {
	return verifyInstalled(ctx, c.runner, c.ffmpegPath)
}

// Ensure Concatenator implements video.Concatenator
var _ video.Concatenator = (*Concatenator)(nil)
