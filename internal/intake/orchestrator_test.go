package intake

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/praxisdigital/dental-intake/internal/leads"
)

// scriptedLLM returns its replies in order, then repeats the last one.
type scriptedLLM struct {
	replies []string
	errs    []error
	calls   int
	systems []string
}

func (s *scriptedLLM) Complete(ctx context.Context, system string, history []ChatMessage) (string, error) {
	idx := s.calls
	s.calls++
	s.systems = append(s.systems, system)
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	return s.replies[idx], nil
}

func newTestOrchestrator(t *testing.T, llm LLMClient) (*Orchestrator, *leads.InMemoryRepository) {
	t.Helper()
	repo := leads.NewInMemoryRepository()
	gw := NewLeadGateway(repo, nil, nil, nil)
	store := NewMemorySessionStore(0)
	return NewOrchestrator(store, nil, llm, gw, "default", nil, nil), repo
}

func TestHandleTurnGreeting(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"should not be called"}}
	orc, _ := newTestOrchestrator(t, llm)

	res, err := orc.HandleTurn(context.Background(), TurnRequest{
		SessionID: "CAgreet",
		Channel:   "voice",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.Reply != Greeting {
		t.Errorf("reply = %q", res.Reply)
	}
	if res.State != StateFresh {
		t.Errorf("state = %q, want %q", res.State, StateFresh)
	}
	if llm.calls != 0 {
		t.Errorf("greeting must not call the model, got %d calls", llm.calls)
	}

	// A repeated empty turn does not duplicate the greeting in history.
	if _, err := orc.HandleTurn(context.Background(), TurnRequest{SessionID: "CAgreet", Channel: "voice"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	sess, _ := orc.sessions.Get(context.Background(), "CAgreet")
	if len(sess.Turns) != 1 {
		t.Errorf("turns = %d, want 1", len(sess.Turns))
	}
}

func TestHandleTurnAssignsSessionID(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"Gerne, wie heißen Sie?"}}
	orc, _ := newTestOrchestrator(t, llm)

	res, err := orc.HandleTurn(context.Background(), TurnRequest{
		Text:    "Hallo, ich brauche einen Termin",
		Channel: "chat",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.SessionID == "" {
		t.Fatal("empty session id must be replaced with a generated one")
	}
	if res.Reply != "Gerne, wie heißen Sie?" {
		t.Errorf("reply = %q", res.Reply)
	}
}

func TestHandleTurnMemoryAccumulates(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"Wie ist Ihre Telefonnummer?",
		"Was ist der Grund Ihres Anrufs?",
	}}
	orc, _ := newTestOrchestrator(t, llm)
	ctx := context.Background()

	res, err := orc.HandleTurn(ctx, TurnRequest{
		SessionID: "CAmem",
		Text:      "Guten Tag, ich heiße Anna Schmidt",
		Channel:   "voice",
	})
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if res.Memory.Name != "Anna Schmidt" {
		t.Errorf("name = %q", res.Memory.Name)
	}
	if len(res.NewFields) != 1 || res.NewFields[0] != FieldName {
		t.Errorf("new fields = %v", res.NewFields)
	}

	res, err = orc.HandleTurn(ctx, TurnRequest{
		SessionID: "CAmem",
		Text:      "Meine Nummer ist 0176 1234567",
		Channel:   "voice",
	})
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if res.Memory.Name != "Anna Schmidt" {
		t.Errorf("name lost across turns: %q", res.Memory.Name)
	}
	if res.Memory.Phone == "" {
		t.Error("phone not extracted on second turn")
	}
	if len(res.NewFields) != 1 || res.NewFields[0] != FieldPhone {
		t.Errorf("new fields = %v", res.NewFields)
	}
	if res.State != StateCollecting {
		t.Errorf("state = %q", res.State)
	}

	// The system prompt for turn two must list the known name and not
	// ask for it again.
	sys := llm.systems[1]
	if !strings.Contains(sys, "Anna Schmidt") {
		t.Error("known name missing from system prompt")
	}
}

func TestHandleTurnSavesLeadOnce(t *testing.T) {
	summaryReply := "Vielen Dank!\n\nLEAD SUMMARY\n" +
		"Name: Anna Schmidt\n" +
		"Telefon: 0176 1234567\n" +
		"Grund: Zahnschmerzen\n" +
		"Wunschtermin: morgen 10 Uhr\n"

	llm := &scriptedLLM{replies: []string{summaryReply, summaryReply}}
	orc, repo := newTestOrchestrator(t, llm)
	ctx := context.Background()

	res, err := orc.HandleTurn(ctx, TurnRequest{
		SessionID: "CAonce",
		Text:      "Ich heiße Anna Schmidt, 0176 1234567, starke Zahnschmerzen, gerne morgen um 10 Uhr",
		Channel:   "voice",
	})
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if !res.LeadSaved {
		t.Fatal("first summary must save a lead")
	}
	if res.State != StateClosed {
		t.Errorf("state = %q, want %q", res.State, StateClosed)
	}

	// The model repeats the summary on the next turn; no second row.
	res, err = orc.HandleTurn(ctx, TurnRequest{
		SessionID: "CAonce",
		Text:      "Vielen Dank, bis morgen",
		Channel:   "voice",
	})
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if res.LeadSaved {
		t.Error("second summary must not report a new save")
	}

	all, err := repo.List(ctx, leads.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("leads = %d, want exactly 1", len(all))
	}
	if all[0].Urgency != UrgencyAcute {
		t.Errorf("urgency = %q, want %q", all[0].Urgency, UrgencyAcute)
	}
}

func TestHandleTurnMalformedSummaryDoesNotSave(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"LEAD SUMMARY\nName: Anna Schmidt\nTelefon: 0176 1234567\n",
	}}
	orc, repo := newTestOrchestrator(t, llm)

	res, err := orc.HandleTurn(context.Background(), TurnRequest{
		SessionID: "CAbad",
		Text:      "Anna Schmidt, 0176 1234567",
		Channel:   "voice",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.LeadSaved {
		t.Error("incomplete summary must not save")
	}

	all, _ := repo.List(context.Background(), leads.ListFilter{})
	if len(all) != 0 {
		t.Fatalf("leads = %d, want 0", len(all))
	}
}

func TestHandleTurnLLMFailure(t *testing.T) {
	llm := &scriptedLLM{
		errs:    []error{errors.New("upstream timeout"), nil},
		replies: []string{"", "Wie kann ich helfen?"},
	}
	orc, _ := newTestOrchestrator(t, llm)
	ctx := context.Background()

	res, err := orc.HandleTurn(ctx, TurnRequest{
		SessionID: "CAfail",
		Text:      "Ich heiße Anna Schmidt",
		Channel:   "voice",
	})
	if err != nil {
		t.Fatalf("model failure must not surface as error, got %v", err)
	}
	if res.Reply != Apology {
		t.Errorf("reply = %q, want apology", res.Reply)
	}
	if !res.LLMFailed {
		t.Error("LLMFailed flag not set")
	}
	// Extraction already ran on the failed turn.
	if res.Memory.Name != "Anna Schmidt" {
		t.Errorf("name = %q", res.Memory.Name)
	}

	// The user turn stays in history; no assistant turn was recorded.
	sess, _ := orc.sessions.Get(ctx, "CAfail")
	if len(sess.Turns) != 1 || sess.Turns[0].Role != ChatRoleUser {
		t.Fatalf("turns = %+v", sess.Turns)
	}

	// The conversation recovers on the next turn.
	res, err = orc.HandleTurn(ctx, TurnRequest{
		SessionID: "CAfail",
		Text:      "Hallo?",
		Channel:   "voice",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.Reply != "Wie kann ich helfen?" {
		t.Errorf("reply = %q", res.Reply)
	}
}
