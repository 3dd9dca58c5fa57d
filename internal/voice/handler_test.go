package voice

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/praxisdigital/dental-intake/internal/intake"
	"github.com/praxisdigital/dental-intake/internal/leads"
)

type staticLLM struct {
	reply string
}

func (s staticLLM) Complete(ctx context.Context, system string, history []intake.ChatMessage) (string, error) {
	return s.reply, nil
}

func newTestHandler(t *testing.T, reply, authToken string) *Handler {
	t.Helper()
	gw := intake.NewLeadGateway(leads.NewInMemoryRepository(), nil, nil, nil)
	orc := intake.NewOrchestrator(intake.NewMemorySessionStore(0), nil, staticLLM{reply: reply}, gw, "default", nil, nil)
	return NewHandler(HandlerConfig{
		Orchestrator:  orc,
		AuthToken:     authToken,
		PublicBaseURL: "https://api.example.com",
	})
}

func postForm(t *testing.T, h *Handler, form url.Values, sign string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sign != "" {
		req.Header.Set("X-Twilio-Signature", sign)
	}
	rec := httptest.NewRecorder()
	h.HandleVoice(rec, req)
	return rec
}

func TestHandleVoiceGreeting(t *testing.T) {
	h := newTestHandler(t, "unused", "")

	// Initial call event carries no SpeechResult.
	rec := postForm(t, h, url.Values{
		"CallSid": {"CA001"},
		"From":    {"+4917612345678"},
	}, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/xml" {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, intake.Greeting) {
		t.Errorf("greeting missing from twiml:\n%s", body)
	}
	if !strings.Contains(body, `action="https://api.example.com/webhooks/twilio/voice"`) {
		t.Errorf("gather action missing:\n%s", body)
	}
}

func TestHandleVoiceSpeechTurn(t *testing.T) {
	h := newTestHandler(t, "Wie ist Ihre Telefonnummer?", "")

	rec := postForm(t, h, url.Values{
		"CallSid":      {"CA002"},
		"From":         {"+4917612345678"},
		"SpeechResult": {"Ich heiße Anna Schmidt"},
	}, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Wie ist Ihre Telefonnummer?") {
		t.Errorf("model reply missing:\n%s", rec.Body.String())
	}
}

func TestHandleVoiceMissingCallSid(t *testing.T) {
	h := newTestHandler(t, "unused", "")

	rec := postForm(t, h, url.Values{"From": {"+4900000000"}}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func signForm(authToken, webhookURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	// Matches Twilio's scheme: URL then key/value pairs sorted by key.
	sortStrings(keys)
	payload := webhookURL
	for _, k := range keys {
		for _, v := range form[k] {
			payload += k + v
		}
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j] < ss[j-1]; j-- {
			ss[j], ss[j-1] = ss[j-1], ss[j]
		}
	}
}

func TestHandleVoiceSignatureValidation(t *testing.T) {
	const token = "twilio-auth-token"
	h := newTestHandler(t, "Hallo!", token)

	form := url.Values{
		"CallSid":      {"CA003"},
		"From":         {"+4917612345678"},
		"SpeechResult": {"Guten Tag"},
	}

	rec := postForm(t, h, form, "bogus-signature")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("invalid signature: status = %d, want 403", rec.Code)
	}

	rec = postForm(t, h, form, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("missing signature: status = %d, want 403", rec.Code)
	}

	valid := signForm(token, "https://api.example.com"+WebhookPath, form)
	rec = postForm(t, h, form, valid)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid signature: status = %d, want 200", rec.Code)
	}
}
