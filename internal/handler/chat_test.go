package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/moreai/moreai/internal/chat"
	"github.com/moreai/moreai/internal/handler/dto"
	"github.com/moreai/moreai/internal/model"
)

func chatRequest(text string) *http.Request {
	u := "/chat"
	if text != "" {
		u += "?usertext=" + url.QueryEscape(text)
	}
	req := httptest.NewRequest(http.MethodGet, u, nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return req
}

func TestChatEndpoint(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice", "Sunrise42x")
	token := login(t, env, "alice", "Sunrise42x").Token

	rec := env.do(t, authed(chatRequest("I had a rough day"), token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var entries []dto.EntryResponse
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected user + assistant entries, got %d", len(entries))
	}
	if entries[0].Kind != model.KindUser || entries[0].Body != "I had a rough day" {
		t.Errorf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Kind != model.KindAssistant || entries[1].Body != "I hear you" {
		t.Errorf("unexpected second entry %+v", entries[1])
	}
}

func TestChatEndpoint_DuplicateStoredOnce(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice", "Sunrise42x")
	token := login(t, env, "alice", "Sunrise42x").Token

	env.do(t, authed(chatRequest("same message"), token))
	rec := env.do(t, authed(chatRequest("same message"), token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var entries []dto.EntryResponse
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected duplicate to be discarded, got %d entries", len(entries))
	}
	if env.aiClient.completeCalls != 1 {
		t.Errorf("expected 1 completion call, got %d", env.aiClient.completeCalls)
	}
}

func TestChatEndpoint_FallbackReply(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice", "Sunrise42x")
	token := login(t, env, "alice", "Sunrise42x").Token

	env.aiClient.completeErr = errRemoteDown
	rec := env.do(t, authed(chatRequest("are you there?"), token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite remote failure, got %d", rec.Code)
	}

	var entries []dto.EntryResponse
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 2 || entries[1].Body != chat.FallbackReply {
		t.Errorf("expected fallback reply, got %+v", entries)
	}
}

func TestChatEndpoint_RendersHTML(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice", "Sunrise42x")
	token := login(t, env, "alice", "Sunrise42x").Token

	req := httptest.NewRequest(http.MethodGet, "/chat?usertext=hello", nil)
	rec := env.do(t, authed(req, token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "I hear you") {
		t.Error("expected assistant reply in rendered page")
	}
}

func TestChatEndpoint_UserIsolation(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice", "Sunrise42x")
	register(t, env, "bob", "Sunrise42x")
	aliceToken := login(t, env, "alice", "Sunrise42x").Token
	bobToken := login(t, env, "bob", "Sunrise42x").Token

	env.do(t, authed(chatRequest("alice secret"), aliceToken))

	rec := env.do(t, authed(chatRequest(""), bobToken))
	var entries []dto.EntryResponse
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty history for bob, got %d entries", len(entries))
	}
}

func TestJournalEndpoint(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice", "Sunrise42x")
	token := login(t, env, "alice", "Sunrise42x").Token

	var userID string
	for id := range env.users.users {
		userID = id
	}
	env.chatStore.entries = append(env.chatStore.entries,
		&model.Entry{ID: "e1", UserID: userID, Body: "chat line", Kind: model.KindUser},
		&model.Entry{ID: "e2", UserID: userID, Body: "day one summary", Kind: model.KindLog},
		&model.Entry{ID: "e3", UserID: userID, Body: "day two summary", Kind: model.KindLog},
	)

	rec := env.do(t, authed(httptest.NewRequest(http.MethodGet, "/journal", nil), token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var entries []dto.EntryResponse
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Body != "day two summary" {
		t.Errorf("expected newest first, got %q", entries[0].Body)
	}
	for _, e := range entries {
		if e.Kind != model.KindLog {
			t.Errorf("expected only log entries, got %q", e.Kind)
		}
	}
}
