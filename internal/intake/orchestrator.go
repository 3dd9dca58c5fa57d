package intake

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/praxisdigital/dental-intake/internal/clinic"
	"github.com/praxisdigital/dental-intake/internal/observability/metrics"
	"github.com/praxisdigital/dental-intake/pkg/logging"
)

// Greeting is the fixed opening line for a fresh session. It is emitted
// directly, not generated by the model.
const Greeting = "Guten Tag und willkommen in der Zahnarztpraxis! Wie kann ich Ihnen helfen?"

// Apology is returned when the chat model is unreachable. The caller must
// always get a valid response, never an error page or silence.
const Apology = "Entschuldigung, es gab gerade ein technisches Problem. Könnten Sie das bitte noch einmal wiederholen?"

// TurnRequest is one inbound caller event.
type TurnRequest struct {
	SessionID   string // empty for a new chat session; call SID for voice
	Text        string // transcribed speech or chat message; empty opens the call
	CallerPhone string
	Channel     string // "voice" or "chat"
}

// TurnResult is what the channel handlers render back to the caller.
type TurnResult struct {
	SessionID string
	Reply     string
	State     State
	Memory    Memory
	NewFields []string // slots first filled during this turn
	LeadSaved bool     // lead persisted during this turn
	LLMFailed bool
}

// Orchestrator drives the slot-filling conversation: it owns session
// state transitions, memory extraction, prompt construction, the model
// call and the single lead write per session.
type Orchestrator struct {
	sessions SessionStore
	clinics  clinic.Store
	llm      LLMClient
	gateway  *LeadGateway
	logger   *logging.Logger
	metrics  *metrics.IntakeMetrics
	clinicID string

	// Per-session mutexes serialize near-simultaneous webhooks for the
	// same call so they cannot interleave memory updates.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewOrchestrator wires the conversation driver.
func NewOrchestrator(sessions SessionStore, clinics clinic.Store, llm LLMClient, gateway *LeadGateway, clinicID string, m *metrics.IntakeMetrics, logger *logging.Logger) *Orchestrator {
	if sessions == nil {
		panic("intake: session store required")
	}
	if llm == nil {
		panic("intake: llm client required")
	}
	if gateway == nil {
		panic("intake: lead gateway required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		sessions: sessions,
		clinics:  clinics,
		llm:      llm,
		gateway:  gateway,
		logger:   logger,
		metrics:  m,
		clinicID: clinicID,
		locks:    make(map[string]*sync.Mutex),
	}
}

// HandleTurn processes one inbound event and always produces a renderable
// result. Model failures surface as the fixed apology, never as an error;
// the returned error covers session-store problems only.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	unlock := o.lockSession(sessionID)
	defer unlock()

	sess, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("intake: load session: %w", err)
	}
	if sess == nil {
		sess = &Session{
			ID:          sessionID,
			Channel:     req.Channel,
			CallerPhone: req.CallerPhone,
			CreatedAt:   time.Now().UTC(),
		}
	}
	if sess.CallerPhone == "" && req.CallerPhone != "" {
		sess.CallerPhone = req.CallerPhone
	}

	// A turn without text opens the conversation with the fixed greeting.
	if strings.TrimSpace(req.Text) == "" {
		return o.greet(ctx, sess)
	}

	sess.Turns = append(sess.Turns, Turn{Role: ChatRoleUser, Text: req.Text})

	before := sess.Memory
	extracted := ExtractMemory(sess.Transcript())
	sess.Memory.Merge(extracted)
	newFields := o.recordNewFields(before, sess.Memory)

	missing := sess.Memory.MissingFields()
	cfg := clinic.GetOrFallback(ctx, o.clinics, o.clinicID)
	system := BuildSystemPrompt(cfg.Name, cfg.Instructions, sess.Memory, missing)

	start := time.Now()
	reply, llmErr := o.llm.Complete(ctx, system, turnsToChat(sess.Turns))
	o.metrics.ObserveLLMLatency(time.Since(start).Seconds())

	if llmErr != nil {
		o.logger.Error("chat model call failed", "error", llmErr, "session", sess.ID)
		o.metrics.ObserveTurn(sess.Channel, "llm_error")
		// The failed user turn stays recorded; no assistant turn is added.
		if err := o.sessions.Put(ctx, sess); err != nil {
			o.logger.Error("failed to store session", "error", err, "session", sess.ID)
		}
		return &TurnResult{
			SessionID: sess.ID,
			Reply:     Apology,
			State:     DeriveState(sess.UserTurnCount(), sess.Memory, sess.LeadSaved),
			Memory:    sess.Memory,
			NewFields: newFields,
			LLMFailed: true,
		}, nil
	}

	sess.Turns = append(sess.Turns, Turn{Role: ChatRoleAssistant, Text: reply})

	savedThisTurn := false
	if !sess.LeadSaved {
		if summary, ok := ParseLeadSummary(reply); ok {
			lead := o.gateway.Save(ctx, SaveLeadInput{
				SessionRef:    sess.ID,
				Name:          summary.Name,
				Phone:         summary.Phone,
				Reason:        summary.Reason,
				PreferredTime: summary.PreferredTime,
				Urgency:       sess.Memory.Urgency,
				Channel:       sess.Channel,
				Notes:         sess.Transcript(),
			})
			if lead != nil {
				sess.LeadSaved = true
				savedThisTurn = true
			}
		} else if strings.Contains(reply, SummaryMarker) {
			// Marker without four parseable fields: logged, not retried.
			o.logger.Warn("malformed lead summary in model reply", "session", sess.ID)
		}
	}

	if err := o.sessions.Put(ctx, sess); err != nil {
		o.logger.Error("failed to store session", "error", err, "session", sess.ID)
	}

	o.metrics.ObserveTurn(sess.Channel, "ok")

	return &TurnResult{
		SessionID: sess.ID,
		Reply:     reply,
		State:     DeriveState(sess.UserTurnCount(), sess.Memory, sess.LeadSaved),
		Memory:    sess.Memory,
		NewFields: newFields,
		LeadSaved: savedThisTurn,
	}, nil
}

func (o *Orchestrator) greet(ctx context.Context, sess *Session) (*TurnResult, error) {
	if len(sess.Turns) == 0 {
		sess.Turns = append(sess.Turns, Turn{Role: ChatRoleAssistant, Text: Greeting})
	}
	if err := o.sessions.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("intake: store session: %w", err)
	}
	o.metrics.ObserveTurn(sess.Channel, "greeting")

	return &TurnResult{
		SessionID: sess.ID,
		Reply:     Greeting,
		State:     DeriveState(sess.UserTurnCount(), sess.Memory, sess.LeadSaved),
		Memory:    sess.Memory,
	}, nil
}

func (o *Orchestrator) recordNewFields(before, after Memory) []string {
	var out []string
	for _, f := range requiredFields {
		if strings.TrimSpace(before.field(f)) == "" && strings.TrimSpace(after.field(f)) != "" {
			out = append(out, f)
			o.metrics.ObserveExtractionHit(f)
		}
	}
	return out
}

func turnsToChat(turns []Turn) []ChatMessage {
	out := make([]ChatMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, ChatMessage{Role: t.Role, Content: t.Text})
	}
	return out
}

func (o *Orchestrator) lockSession(id string) func() {
	o.mu.Lock()
	lock, ok := o.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[id] = lock
	}
	o.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
