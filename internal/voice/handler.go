package voice

import (
	"net/http"
	"strings"

	"github.com/praxisdigital/dental-intake/internal/intake"
	"github.com/praxisdigital/dental-intake/pkg/logging"
)

// WebhookPath is where the voice webhook is mounted; Gather actions point
// back at it so every utterance in a call hits the same handler.
const WebhookPath = "/webhooks/twilio/voice"

// Handler serves the Twilio voice webhook. Each POST carries one transcribed
// utterance (or none, on the initial call event) and must answer with TwiML.
type Handler struct {
	orchestrator *intake.Orchestrator
	authToken    string
	publicURL    string
	logger       *logging.Logger
}

// HandlerConfig configures the voice Handler.
type HandlerConfig struct {
	Orchestrator *intake.Orchestrator
	// AuthToken enables X-Twilio-Signature validation when non-empty.
	AuthToken string
	// PublicBaseURL is the externally visible base URL Twilio posts to.
	PublicBaseURL string
	Logger        *logging.Logger
}

// NewHandler creates a voice webhook handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Orchestrator == nil {
		panic("voice: orchestrator required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Handler{
		orchestrator: cfg.Orchestrator,
		authToken:    cfg.AuthToken,
		publicURL:    strings.TrimRight(cfg.PublicBaseURL, "/"),
		logger:       cfg.Logger,
	}
}

// HandleVoice is the HTTP handler for POST /webhooks/twilio/voice.
func (h *Handler) HandleVoice(w http.ResponseWriter, r *http.Request) {
	if h.authToken != "" {
		if !ValidateTwilioSignature(r, h.authToken, h.publicURL+WebhookPath) {
			h.logger.Warn("voice: rejected request with invalid signature",
				"remote", r.RemoteAddr)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	req, err := ParseWebhook(r)
	if err != nil {
		h.logger.Error("voice: failed to parse webhook", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.CallSid == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	h.logger.Info("voice: received webhook",
		"call_sid", req.CallSid,
		"call_status", req.CallStatus,
		"has_speech", req.SpeechResult != "",
	)

	result, err := h.orchestrator.HandleTurn(r.Context(), intake.TurnRequest{
		SessionID:   req.CallSid,
		Text:        req.SpeechResult,
		CallerPhone: req.From,
		Channel:     "voice",
	})
	if err != nil {
		// Session-store failure. The caller still gets a spoken apology
		// rather than a dropped call.
		h.logger.Error("voice: turn failed", "error", err, "call_sid", req.CallSid)
		h.writeTwiML(w, intake.Apology)
		return
	}

	h.writeTwiML(w, result.Reply)
}

func (h *Handler) writeTwiML(w http.ResponseWriter, text string) {
	body, err := RenderTwiML(text, h.publicURL+WebhookPath)
	if err != nil {
		h.logger.Error("voice: failed to render twiml", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
