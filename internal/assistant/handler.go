package assistant

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-concierge/pkg/logging"
)

// ChatRequest is the inbound chat payload. SessionID is optional; a fresh one
// is minted when absent so the client can continue the conversation.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// ChatHandler exposes the assistant over HTTP.
type ChatHandler struct {
	assistant *Assistant
	logger    *logging.Logger
}

// NewChatHandler creates the chat endpoint handler.
func NewChatHandler(a *Assistant, logger *logging.Logger) *ChatHandler {
	if a == nil {
		panic("assistant: handler requires assistant")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{assistant: a, logger: logger.WithComponent("chat")}
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	result := h.assistant.ProcessTurn(r.Context(), req.SessionID, req.Message)
	if result.Diagnostic != "" {
		h.logger.Error("turn failed", "session_id", req.SessionID, "error", result.Diagnostic)
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
