package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/speech"
)

// DefaultGoogleVoice is used when the configured voice is an edge voice
const DefaultGoogleVoice = "th-TH-Standard-A"

// SpeechService defines the Text-to-Speech API calls we use
// This allows mocking the API in tests
type SpeechService interface {
	Synthesize(ctx context.Context, req *texttospeech.SynthesizeSpeechRequest) (*texttospeech.SynthesizeSpeechResponse, error)
}

// googleSpeechService wraps the real API client
type googleSpeechService struct {
	service *texttospeech.Service
}

func (s *googleSpeechService) Synthesize(ctx context.Context, req *texttospeech.SynthesizeSpeechRequest) (*texttospeech.SynthesizeSpeechResponse, error) {
	return s.service.Text.Synthesize(req).Context(ctx).Do()
}

// GoogleSynthesizer implements speech.Synthesizer with Cloud Text-to-Speech
type GoogleSynthesizer struct {
	service      SpeechService
	languageCode string
}

// NewGoogleSynthesizer creates a synthesizer using the given client options
func NewGoogleSynthesizer(ctx context.Context, languageCode string, opts ...option.ClientOption) (*GoogleSynthesizer, error) {
	srv, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Text-to-Speech service: %w", err)
	}
	return NewGoogleSynthesizerWithService(&googleSpeechService{service: srv}, languageCode), nil
}

// NewGoogleSynthesizerWithService creates a synthesizer with a custom service (for testing)
func NewGoogleSynthesizerWithService(service SpeechService, languageCode string) *GoogleSynthesizer {
	return &GoogleSynthesizer{service: service, languageCode: languageCode}
}

// Synthesize implements speech.Synthesizer
func (s *GoogleSynthesizer) Synthesize(ctx context.Context, text, voice, outputPath string) error {
	if strings.TrimSpace(text) == "" {
		return speech.ErrEmptyText
	}
	voice = googleVoice(voice)

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: s.language(voice),
			Name:         voice,
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "MP3"},
	}

	resp, err := s.service.Synthesize(ctx, req)
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return fmt.Errorf("decode audio content: %w", err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("synthesize speech: empty audio content")
	}

	if err := os.WriteFile(outputPath, audio, 0644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	return nil
}

// googleVoice swaps edge "Neural" voice names for a Google default
func googleVoice(voice string) string {
	if voice == "" || strings.HasSuffix(voice, "Neural") {
		return DefaultGoogleVoice
	}
	return voice
}

// language returns the configured language or the xx-YY prefix of the voice
func (s *GoogleSynthesizer) language(voice string) string {
	if s.languageCode != "" {
		return s.languageCode
	}
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "th-TH"
}
