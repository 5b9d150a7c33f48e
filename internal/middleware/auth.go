package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/moreai/moreai/internal/auth"
	"github.com/moreai/moreai/internal/model"
	"github.com/moreai/moreai/internal/service"
)

// SessionIDHeader carries the raw session token as an alternative to the
// Authorization bearer scheme.
const SessionIDHeader = "X-Session-ID"

// SessionValidator resolves a bearer token to an authenticated user.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*model.AuthContext, error)
}

// Auth returns a middleware that authenticates requests with a session
// token and injects the auth context. All failures get the same 401 so
// the response never reveals whether a token exists.
func Auth(logger *slog.Logger, sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				logger.Warn("authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			authCtx, err := sessions.Validate(r.Context(), token)
			if err != nil {
				reason := "invalid_token"
				if !errors.Is(err, service.ErrSessionInvalid) {
					reason = "validation_error"
					logger.Error("session validation error",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
				}
				logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the session token from the request.
// Supports "Authorization: Bearer <token>" and "X-Session-ID: <token>".
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.Header.Get(SessionIDHeader)
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Invalid or missing session token"}}`))
}
