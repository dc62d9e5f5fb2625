package speech

import (
	"context"
	"errors"
)

// DefaultVoice is the neural Thai voice the narration was tuned for
const DefaultVoice = "th-TH-PremwadeeNeural"

// ErrEmptyText is returned when there is nothing to speak
var ErrEmptyText = errors.New("text to synthesize is empty")

// Synthesizer converts narration text into an MP3 file
// This is a port that can be implemented by different infrastructure adapters
type Synthesizer interface {
	// Synthesize speaks text with the given voice and saves MP3 audio to outputPath
	Synthesize(ctx context.Context, text, voice, outputPath string) error
}
