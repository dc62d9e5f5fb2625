package video

import (
	"fmt"
	"strconv"
)

// Defaults match a vertical 1080x1920 short at 30 fps
const (
	DefaultWidth        = 1080
	DefaultHeight       = 1920
	DefaultFPS          = 30
	DefaultPreset       = "veryfast"
	DefaultCRF          = 23
	DefaultAudioBitrate = "128k"
)

// Profile describes the encoding settings shared by every scene clip.
// All clips of one render must share a profile so they can be joined with
// stream copy.
type Profile struct {
	Width        int
	Height       int
	FPS          int
	Preset       string
	CRF          int
	AudioBitrate string
}

// DefaultProfile returns the standard encoding profile
func DefaultProfile() Profile {
	return Profile{
		Width:        DefaultWidth,
		Height:       DefaultHeight,
		FPS:          DefaultFPS,
		Preset:       DefaultPreset,
		CRF:          DefaultCRF,
		AudioBitrate: DefaultAudioBitrate,
	}
}

// Validate checks that the profile can be encoded with libx264/yuv420p
func (p Profile) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("video size must be positive, got %dx%d", p.Width, p.Height)
	}
	if p.Width%2 != 0 || p.Height%2 != 0 {
		return fmt.Errorf("video size must be even for yuv420p, got %dx%d", p.Width, p.Height)
	}
	if p.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", p.FPS)
	}
	if p.CRF < 0 || p.CRF > 51 {
		return fmt.Errorf("crf must be 0-51, got %d", p.CRF)
	}
	return nil
}

// VideoFilter letterboxes the image into the frame and fixes the frame rate
func (p Profile) VideoFilter() string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,fps=%d",
		p.Width, p.Height, p.Width, p.Height, p.FPS,
	)
}

// FPSArg returns the frame rate as an ffmpeg argument
func (p Profile) FPSArg() string {
	return strconv.Itoa(p.FPS)
}
