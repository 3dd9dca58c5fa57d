package webchat

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/praxisdigital/dental-intake/internal/intake"
	"github.com/praxisdigital/dental-intake/pkg/logging"
)

// InboundMessage is what the chat simulator sends. An empty session_id
// starts a new conversation.
type InboundMessage struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// OutboundMessage is the simulator response for one turn.
type OutboundMessage struct {
	SessionID string        `json:"session_id"`
	Reply     string        `json:"reply"`
	State     string        `json:"state"`
	Memory    intake.Memory `json:"memory"`
	NewFields []string      `json:"new_fields,omitempty"`
	LeadSaved bool          `json:"lead_saved,omitempty"`
}

// Handler serves the web chat simulator API. It is a thin channel adapter
// over the same orchestrator the voice webhook uses.
type Handler struct {
	orchestrator *intake.Orchestrator
	logger       *logging.Logger
}

// NewHandler creates a web chat handler.
func NewHandler(orchestrator *intake.Orchestrator, logger *logging.Logger) *Handler {
	if orchestrator == nil {
		panic("webchat: orchestrator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{orchestrator: orchestrator, logger: logger}
}

// HandleMessage is the HTTP handler for POST /api/chat.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// An empty message on a fresh session fetches the greeting; an empty
	// message on an existing session is a no-op the client should not send.
	if strings.TrimSpace(req.Message) == "" && req.SessionID != "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	result, err := h.orchestrator.HandleTurn(r.Context(), intake.TurnRequest{
		SessionID: req.SessionID,
		Text:      req.Message,
		Channel:   "chat",
	})
	if err != nil {
		h.logger.Error("webchat: turn failed", "error", err, "session_id", req.SessionID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(OutboundMessage{
		SessionID: result.SessionID,
		Reply:     result.Reply,
		State:     string(result.State),
		Memory:    result.Memory,
		NewFields: result.NewFields,
		LeadSaved: result.LeadSaved,
	})
}
