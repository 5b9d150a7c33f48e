package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moreai/moreai/internal/handler/dto"
)

// Exercises the full register -> login -> chat -> logout journey through
// the router with the auth middleware in place.
func TestFullUserJourney(t *testing.T) {
	env := newTestEnv(t)

	register(t, env, "carol", "Sunrise42x")
	resp := login(t, env, "carol", "Sunrise42x")

	rec := env.do(t, authed(chatRequest("I feel overwhelmed"), resp.Token))
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d", rec.Code)
	}
	var entries []dto.EntryResponse
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected a full turn, got %d entries", len(entries))
	}

	rec = env.do(t, authed(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), resp.Token))
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}

	if rec := env.do(t, authed(chatRequest("still here?"), resp.Token)); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}
}
