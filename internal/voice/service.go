// Package voice bridges chat text to speech capabilities.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/moreai/moreai/internal/ai"
	"github.com/moreai/moreai/internal/metrics"
)

// ErrEmptyText is returned when synthesis is requested with no text.
var ErrEmptyText = errors.New("voice: text is empty")

// ErrEmptyAudio is returned when transcription is requested with no audio.
var ErrEmptyAudio = errors.New("voice: audio is empty")

// speechInstructions shapes the vocal delivery of synthesized replies.
const speechInstructions = "Speak in a warm, calm and reassuring tone, " +
	"at a measured pace, like a supportive counselor."

// Service wraps the speech capabilities of the remote provider.
type Service struct {
	client        ai.Client
	logger        *slog.Logger
	metrics       metrics.Recorder
	remoteTimeout time.Duration
}

// NewService creates a voice Service.
func NewService(client ai.Client, logger *slog.Logger, recorder metrics.Recorder, remoteTimeout time.Duration) *Service {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if remoteTimeout <= 0 {
		remoteTimeout = 60 * time.Second
	}
	return &Service{
		client:        client,
		logger:        logger.With("component", "voice.service"),
		metrics:       recorder,
		remoteTimeout: remoteTimeout,
	}
}

// Transcribe converts uploaded audio into text.
func (s *Service) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	callCtx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	text, err := s.client.Transcribe(callCtx, filename, audio)
	if err != nil {
		s.metrics.IncVoiceCall("stt", "failed")
		s.logger.Error("transcription failed", "filename", filename, "error", err)
		return "", fmt.Errorf("transcribe: %w", err)
	}

	s.metrics.IncVoiceCall("stt", "success")
	return text, nil
}

// Synthesize converts reply text into audio bytes. Empty text is rejected
// before any remote call is made.
func (s *Service) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	callCtx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	audio, err := s.client.Synthesize(callCtx, ai.SpeechRequest{
		Text:         text,
		Instructions: speechInstructions,
	})
	if err != nil {
		s.metrics.IncVoiceCall("tts", "failed")
		s.logger.Error("synthesis failed", "error", err)
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	s.metrics.IncVoiceCall("tts", "success")
	return audio, nil
}
