package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/moreai/moreai/internal/auth"
	"github.com/moreai/moreai/internal/handler/dto"
	"github.com/moreai/moreai/internal/service"
)

// AuthHandler handles account and session endpoints.
type AuthHandler struct {
	accounts *service.AccountService
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts *service.AccountService, sessions *service.SessionService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		logger:   logger,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Handle, req.Password)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	profile := user.ToProfile()
	writeJSON(w, http.StatusCreated, profile)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Handle, req.Password)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	session, err := h.sessions.Create(r.Context(), user.ID, req.Remember, clientIP(r), r.UserAgent())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("login", "user_id", user.ID, "remember", req.Remember)

	profile := user.ToProfile()
	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Token:     session.ID,
		ExpiresAt: session.ExpiresAt,
		User:      &profile,
	})
}

// Logout handles POST /auth/logout. Revoking an already-dead session is
// still a successful logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
		return
	}

	if err := h.sessions.Revoke(r.Context(), authCtx.SessionID, authCtx.UserID); err != nil &&
		!errors.Is(err, service.ErrSessionInvalid) {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Profile handles GET /auth/profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	user, err := h.accounts.GetProfile(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user.ToProfile())
}

// UpdateProfile handles PUT /auth/profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	user, err := h.accounts.UpdateHandle(r.Context(), userID, req.Handle)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user.ToProfile())
}

// ChangePassword handles POST /auth/change-password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	if err := h.accounts.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

// ListSessions handles GET /auth/sessions.
func (h *AuthHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
		return
	}

	sessions, err := h.sessions.ListActive(r.Context(), authCtx.UserID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	out := make([]dto.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, dto.ToSessionResponse(s, authCtx.SessionID))
	}
	writeJSON(w, http.StatusOK, out)
}

// RevokeSession handles DELETE /auth/sessions/{id}. Unlike logout, an
// unknown or foreign id is reported as not found.
func (h *AuthHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Session ID is required")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	if err := h.sessions.Revoke(r.Context(), id, userID); err != nil {
		if errors.Is(err, service.ErrSessionInvalid) {
			writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found")
			return
		}
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "session revoked"})
}

// handleServiceError maps service errors to HTTP responses.
func (h *AuthHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrHandleTooShort),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordNoUpper),
		errors.Is(err, auth.ErrPasswordNoLower),
		errors.Is(err, auth.ErrPasswordNoDigit):
		writeError(w, http.StatusBadRequest, "POLICY_VIOLATION", err.Error())
	case errors.Is(err, service.ErrHandleTaken):
		writeError(w, http.StatusConflict, "HANDLE_TAKEN", "Handle already taken")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid handle or password")
	case errors.Is(err, service.ErrAccountDeactivated):
		writeError(w, http.StatusForbidden, "ACCOUNT_DEACTIVATED", "Account is deactivated")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrSessionInvalid):
		writeError(w, http.StatusUnauthorized, "SESSION_INVALID", "Session invalid or expired")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// clientIP extracts the client IP for session records. chi's RealIP has
// already resolved forwarding headers into RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
