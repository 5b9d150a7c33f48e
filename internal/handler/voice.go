package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/moreai/moreai/internal/handler/dto"
	"github.com/moreai/moreai/internal/voice"
)

// VoiceHandler handles speech endpoints.
type VoiceHandler struct {
	voice         *voice.Service
	logger        *slog.Logger
	maxUploadSize int64
}

// NewVoiceHandler creates a new VoiceHandler.
func NewVoiceHandler(svc *voice.Service, logger *slog.Logger, maxUploadSize int64) *VoiceHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 10 << 20
	}
	return &VoiceHandler{
		voice:         svc,
		logger:        logger,
		maxUploadSize: maxUploadSize,
	}
}

// Synthesize handles GET /tts?text=.
func (h *VoiceHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	audio, err := h.voice.Synthesize(r.Context(), r.URL.Query().Get("text"))
	if err != nil {
		if errors.Is(err, voice.ErrEmptyText) {
			writeError(w, http.StatusBadRequest, "EMPTY_TEXT", "Text is required")
			return
		}
		h.logger.Error("synthesis failed", "error", err)
		writeError(w, http.StatusBadGateway, "SPEECH_UNAVAILABLE", "Speech synthesis is unavailable")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// Transcribe handles POST /stt with a multipart "audio" part.
func (h *VoiceHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "Invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_AUDIO", "Audio file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "Failed to read audio upload")
		return
	}

	text, err := h.voice.Transcribe(r.Context(), header.Filename, data)
	if err != nil {
		if errors.Is(err, voice.ErrEmptyAudio) {
			writeError(w, http.StatusBadRequest, "EMPTY_AUDIO", "Audio file is empty")
			return
		}
		h.logger.Error("transcription failed", "error", err)
		writeError(w, http.StatusBadGateway, "SPEECH_UNAVAILABLE", "Speech transcription is unavailable")
		return
	}

	writeJSON(w, http.StatusOK, dto.TranscriptionResponse{Text: text})
}
