package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/robobook/chatbot-backend/internal/rag"
)

// Answerer is the slice of the answering pipeline the handler needs.
type Answerer interface {
	Answer(ctx context.Context, question, selectedText string) (string, error)
}

// ChatHandler handles POST /chat.
type ChatHandler struct {
	answerer Answerer
	logger   *slog.Logger
}

// NewChatHandler creates a ChatHandler. A nil answerer is allowed; requests
// then fail with 503 before any backend call.
func NewChatHandler(answerer Answerer, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{answerer: answerer, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /chat", h.chat)
}

// ChatRequest is the JSON body for POST /chat.
type ChatRequest struct {
	Question string `json:"question"`

	// SelectedText is optional reader-highlighted text to answer about.
	SelectedText string `json:"selected_text,omitempty"`
}

// ChatResponse is the JSON body for a successful answer.
type ChatResponse struct {
	Answer string `json:"answer"`
}

func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if h.answerer == nil {
		writeError(w, http.StatusServiceUnavailable, "answering backends not initialized")
		return
	}

	answer, err := h.answerer.Answer(r.Context(), req.Question, req.SelectedText)
	if err != nil {
		if errors.Is(err, rag.ErrNotReady) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.logger.Error("chat request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Answer: answer})
}
