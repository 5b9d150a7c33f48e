package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moreai/moreai/internal/handler/dto"
)

func TestSynthesizeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice", "Sunrise42x")
	token := login(t, env, "alice", "Sunrise42x").Token

	rec := env.do(t, authed(httptest.NewRequest(http.MethodGet, "/tts?text=hello", nil), token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected audio bytes")
	}
}

func TestSynthesizeEndpoint_EmptyText(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice", "Sunrise42x")
	token := login(t, env, "alice", "Sunrise42x").Token

	rec := env.do(t, authed(httptest.NewRequest(http.MethodGet, "/tts", nil), token))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty text, got %d", rec.Code)
	}
}

func TestSynthesizeEndpoint_RemoteError(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice", "Sunrise42x")
	token := login(t, env, "alice", "Sunrise42x").Token

	env.aiClient.synthesizeErr = errRemoteDown
	rec := env.do(t, authed(httptest.NewRequest(http.MethodGet, "/tts?text=hello", nil), token))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func audioUpload(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

func TestTranscribeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice", "Sunrise42x")
	token := login(t, env, "alice", "Sunrise42x").Token

	body, contentType := audioUpload(t, "audio", "note.webm", []byte("fake-audio"))
	req := httptest.NewRequest(http.MethodPost, "/stt", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(t, authed(req, token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp dto.TranscriptionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Text != "hello" {
		t.Errorf("unexpected text %q", resp.Text)
	}
}

func TestTranscribeEndpoint_MissingPart(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice", "Sunrise42x")
	token := login(t, env, "alice", "Sunrise42x").Token

	body, contentType := audioUpload(t, "wrongfield", "note.webm", []byte("fake-audio"))
	req := httptest.NewRequest(http.MethodPost, "/stt", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(t, authed(req, token))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing audio part, got %d", rec.Code)
	}
}
