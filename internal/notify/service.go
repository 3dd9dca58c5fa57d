package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/praxisdigital/dental-intake/internal/leads"
	"github.com/praxisdigital/dental-intake/pkg/logging"
)

// Service formats and delivers staff notifications for new leads.
// Delivery is best effort: callers never see an error from a failed send.
type Service struct {
	email      EmailSender
	recipients []string
	logger     *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, recipients []string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:      email,
		recipients: recipients,
		logger:     logger,
	}
}

// NotifyNewLead emails the clinic team about a freshly captured lead.
// Failures are logged and swallowed.
func (s *Service) NotifyNewLead(ctx context.Context, lead *leads.Lead) {
	if s == nil || lead == nil {
		return
	}
	if s.email == nil || len(s.recipients) == 0 {
		s.logger.Debug("notify: email not configured, skipping lead notification", "lead_id", lead.ID)
		return
	}

	subject := fmt.Sprintf("Neue Terminanfrage: %s", lead.Name)
	if lead.Urgency == "akut" {
		subject = fmt.Sprintf("AKUT – Neue Terminanfrage: %s", lead.Name)
	}

	body := buildLeadEmailBody(lead)

	for _, to := range s.recipients {
		msg := EmailMessage{
			To:      to,
			Subject: subject,
			Body:    body,
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send lead notification", "error", err, "lead_id", lead.ID, "to", to)
			continue
		}
		s.logger.Info("notify: lead notification sent", "lead_id", lead.ID, "to", to)
	}
}

func buildLeadEmailBody(lead *leads.Lead) string {
	var b strings.Builder
	b.WriteString("Über den Telefonassistenten ist eine neue Terminanfrage eingegangen.\n\n")
	fmt.Fprintf(&b, "Name: %s\n", lead.Name)
	fmt.Fprintf(&b, "Telefon: %s\n", lead.Phone)
	fmt.Fprintf(&b, "Grund: %s\n", lead.Concern)
	fmt.Fprintf(&b, "Dringlichkeit: %s\n", lead.Urgency)
	fmt.Fprintf(&b, "Wunschtermin: %s\n", lead.PreferredSlot.Text)
	if lead.CallRef != "" {
		fmt.Fprintf(&b, "Anruf-Referenz: %s\n", lead.CallRef)
	}
	b.WriteString("\nBitte rufen Sie zeitnah zurück, um den Termin zu bestätigen.\n")
	return b.String()
}
