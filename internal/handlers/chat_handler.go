package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/interfaces"
)

// ChatHandler serves conversational queries over the document corpus.
type ChatHandler struct {
	chat   interfaces.ChatService
	logger arbor.ILogger
}

// NewChatHandler creates the chat handler
func NewChatHandler(chat interfaces.ChatService, logger arbor.ILogger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// Query handles POST /chat/query
func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Question string `json:"question"`
		ThreadID string `json:"thread_id,omitempty"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, err)
		return
	}
	if strings.TrimSpace(body.Question) == "" {
		WriteDetail(w, http.StatusBadRequest, "question is required")
		return
	}

	userCtx := UserContextFrom(r)
	response, err := h.chat.Query(r.Context(), body.Question, body.ThreadID, userCtx)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, response)
}
