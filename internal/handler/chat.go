package handler

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/moreai/moreai/internal/auth"
	"github.com/moreai/moreai/internal/chat"
	"github.com/moreai/moreai/internal/handler/dto"
)

// chatPage is the minimal rendered conversation view. The full frontend
// is served separately; this page covers direct browser access.
var chatPage = template.Must(template.New("chat").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>MoreAI</title>
</head>
<body>
<main>
{{range .Entries}}<article class="{{.Kind}}">
<p>{{.Body}}</p>
<time>{{.Timestamp.Format "2006-01-02 15:04"}}</time>
</article>
{{end}}</main>
</body>
</html>
`))

// ChatHandler handles conversation endpoints.
type ChatHandler struct {
	chat   *chat.Service
	logger *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(svc *chat.Service, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   svc,
		logger: logger,
	}
}

// Chat handles GET /chat. With a usertext query parameter it runs a chat
// turn first; either way it responds with the full history, as JSON for
// AJAX clients or as a rendered page otherwise.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	if text := r.URL.Query().Get("usertext"); text != "" {
		if err := h.chat.SendMessage(r.Context(), userID, text); err != nil {
			h.logger.Error("chat turn failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
			return
		}
	}

	entries, err := h.chat.History(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load history", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	responses := dto.ToEntryResponses(entries)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, responses)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chatPage.Execute(w, map[string]any{"Entries": responses}); err != nil {
		h.logger.Error("failed to render chat page", "error", err)
	}
}

// Journal handles GET /journal: the user's daily log entries, newest first.
func (h *ChatHandler) Journal(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	entries, err := h.chat.Journal(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load journal", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToEntryResponses(entries))
}
