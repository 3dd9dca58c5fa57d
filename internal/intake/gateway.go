package intake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/praxisdigital/dental-intake/internal/leads"
	"github.com/praxisdigital/dental-intake/internal/observability/metrics"
	"github.com/praxisdigital/dental-intake/pkg/logging"
)

// LeadNotifier delivers staff notifications for saved leads. Implementations
// must swallow their own failures.
type LeadNotifier interface {
	NotifyNewLead(ctx context.Context, lead *leads.Lead)
}

// AsyncNotifier hands saved leads to a worker goroutine so the turn's
// critical path never blocks on notification delivery.
type AsyncNotifier struct {
	svc    LeadNotifier
	ch     chan *leads.Lead
	wg     sync.WaitGroup
	once   sync.Once
	logger *logging.Logger
}

// NewAsyncNotifier starts the delivery worker. svc may be nil, in which case
// enqueued leads are dropped silently.
func NewAsyncNotifier(svc LeadNotifier, buffer int, logger *logging.Logger) *AsyncNotifier {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = logging.Default()
	}
	n := &AsyncNotifier{
		svc:    svc,
		ch:     make(chan *leads.Lead, buffer),
		logger: logger,
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// Enqueue schedules a notification attempt without blocking. A full buffer
// drops the notification, which is acceptable for a best-effort channel.
func (n *AsyncNotifier) Enqueue(lead *leads.Lead) {
	if n == nil || lead == nil {
		return
	}
	select {
	case n.ch <- lead:
	default:
		n.logger.Warn("notification buffer full, dropping lead notification", "lead_id", lead.ID)
	}
}

// Close stops accepting work and waits for in-flight deliveries.
func (n *AsyncNotifier) Close() {
	if n == nil {
		return
	}
	n.once.Do(func() { close(n.ch) })
	n.wg.Wait()
}

func (n *AsyncNotifier) run() {
	defer n.wg.Done()
	for lead := range n.ch {
		if n.svc == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		n.svc.NotifyNewLead(ctx, lead)
		cancel()
	}
}

// SaveLeadInput carries the parsed summary fields plus conversation metadata.
type SaveLeadInput struct {
	SessionRef    string
	Name          string
	Phone         string
	Reason        string
	PreferredTime string
	Urgency       string
	Channel       string
	Notes         string
}

// LeadGateway validates and persists leads emitted by the conversation flow.
type LeadGateway struct {
	repo     leads.Repository
	notifier *AsyncNotifier
	logger   *logging.Logger
	metrics  *metrics.IntakeMetrics
}

// NewLeadGateway creates a gateway. notifier and m may be nil.
func NewLeadGateway(repo leads.Repository, notifier *AsyncNotifier, m *metrics.IntakeMetrics, logger *logging.Logger) *LeadGateway {
	if repo == nil {
		panic("intake: leads repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadGateway{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
	}
}

// Save writes one lead row when all four required fields are present.
// It returns nil both for skipped-incomplete input and for write failures;
// the caller marks its session closed only on a non-nil result.
func (g *LeadGateway) Save(ctx context.Context, in SaveLeadInput) *leads.Lead {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)
	reason := strings.TrimSpace(in.Reason)
	preferred := strings.TrimSpace(in.PreferredTime)
	if name == "" || phone == "" || reason == "" || preferred == "" {
		g.logger.Debug("lead save skipped, required field missing", "session", in.SessionRef)
		g.metrics.ObserveLeadSkipped("incomplete")
		return nil
	}

	urgency := strings.TrimSpace(in.Urgency)
	if urgency == "" {
		urgency = UrgencyNormal
	}

	source := in.Channel
	if source == "" {
		source = "voice"
	}

	lead, err := g.repo.Create(ctx, &leads.CreateLeadRequest{
		CallRef:       in.SessionRef,
		Name:          name,
		Phone:         phone,
		Concern:       reason,
		Urgency:       urgency,
		PreferredSlot: leads.PreferredSlot{Text: preferred},
		Notes:         in.Notes,
	})
	if err != nil {
		g.logger.Error("lead write failed", "error", err, "session", in.SessionRef)
		g.metrics.ObserveLeadSkipped("write_failed")
		return nil
	}

	g.logger.Info("lead saved", "lead_id", lead.ID, "session", in.SessionRef, "urgency", urgency, "source", source)
	g.metrics.ObserveLeadSaved()
	g.notifier.Enqueue(lead)

	return lead
}
