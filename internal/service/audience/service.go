package audience

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/metrics"
	"github.com/ignite/crm-engine/internal/segment"
)

// DefaultSendTimeout bounds each individual send. The upstream contract has
// no timeout of its own; without a bound here one hung vendor call would
// stall the whole audience.
const DefaultSendTimeout = 10 * time.Second

// SaveResult is the outcome of an audience save.
type SaveResult struct {
	LogID        string `json:"logId"`
	AudienceSize int    `json:"audienceSize"`
}

// Service implements audience resolution and best-effort delivery.
type Service struct {
	repo        Repository
	sender      Sender
	renderer    Renderer
	events      EventPublisher
	sendTimeout time.Duration
}

// NewService creates an audience service. sendTimeout <= 0 falls back to
// DefaultSendTimeout.
func NewService(repo Repository, sender Sender, renderer Renderer, events EventPublisher, sendTimeout time.Duration) *Service {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Service{
		repo:        repo,
		sender:      sender,
		renderer:    renderer,
		events:      events,
		sendTimeout: sendTimeout,
	}
}

// CheckAudienceSize compiles the rules and counts matching customers. It is
// read-only and safe to call repeatedly.
func (s *Service) CheckAudienceSize(ctx context.Context, rules []domain.FilterRule) (int, error) {
	p, err := segment.Compile(rules)
	if err != nil {
		return 0, err
	}
	return s.repo.CountCustomers(ctx, p)
}

// SaveAudience resolves the audience for the given rules, persists exactly
// one communication log capturing the filters and members, then attempts
// delivery to every member. Delivery failures are recorded, never returned:
// by the time sending starts, the save has already succeeded.
func (s *Service) SaveAudience(ctx context.Context, rules []domain.FilterRule) (*SaveResult, error) {
	p, err := segment.Compile(rules)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.FindCustomers(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("resolve audience: %w", err)
	}

	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}
	if rules == nil {
		rules = []domain.FilterRule{}
	}

	commLog := &domain.CommunicationLog{
		ID:              uuid.New().String(),
		AudienceFilters: rules,
		AudienceSize:    len(members),
		AudienceMembers: memberIDs,
		// Provisional; corrected per delivery outcome below.
		Status: domain.DeliverySent,
	}
	if err := s.repo.CreateLog(ctx, commLog); err != nil {
		return nil, fmt.Errorf("persist communication log: %w", err)
	}

	log.Printf("[audience] saved log %s (%d members)", commLog.ID, len(members))
	s.deliverToAll(ctx, commLog.ID, members)

	return &SaveResult{LogID: commLog.ID, AudienceSize: len(members)}, nil
}

// deliverToAll sends to each member in turn. Each recipient's send completes
// (success or failure) and has its outcome recorded before the next begins.
func (s *Service) deliverToAll(ctx context.Context, logID string, members []domain.Customer) {
	for _, member := range members {
		status := domain.DeliverySent
		detail := ""

		if err := s.sendOne(ctx, member); err != nil {
			status = domain.DeliveryFailed
			detail = err.Error()
			log.Printf("[audience] delivery to customer %s failed: %v", member.ID, err)
		}

		s.recordOutcome(ctx, logID, member.ID, status, detail)
		metrics.Deliveries.WithLabelValues(string(status)).Inc()
	}
}

func (s *Service) sendOne(ctx context.Context, member domain.Customer) error {
	body, err := s.renderer.Render(member)
	if err != nil {
		return fmt.Errorf("render message: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	return s.sender.Send(sendCtx, Message{
		CustomerID: member.ID,
		Email:      member.Email,
		Body:       body,
	})
}

// recordOutcome publishes the per-recipient delivery attempt to the pipeline
// and sets the log's aggregate status flag. The aggregate write is
// last-writer-wins across recipients; the attempt events carry the full
// per-recipient picture.
func (s *Service) recordOutcome(ctx context.Context, logID, customerID string, status domain.DeliveryStatus, detail string) {
	attempt := domain.DeliveryAttempt{
		ID:          uuid.New().String(),
		LogID:       logID,
		CustomerID:  customerID,
		Status:      status,
		Detail:      detail,
		AttemptedAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, domain.TopicCommLogs, attempt); err != nil {
		log.Printf("[audience] delivery attempt event for log %s dropped: %v", logID, err)
	}

	if err := s.repo.UpdateLogStatus(ctx, logID, status); err != nil {
		log.Printf("[audience] status update for log %s failed: %v", logID, err)
	}
}

// RecordDeliveryReceipt is the externally-triggered delivery-receipt
// callback. It carries the same contract as the in-loop status update and
// is idempotent: repeating a receipt with the same status changes nothing.
func (s *Service) RecordDeliveryReceipt(ctx context.Context, logID string, status domain.DeliveryStatus) error {
	if _, err := uuid.Parse(logID); err != nil {
		return fmt.Errorf("%w: malformed log id %q", ErrValidation, logID)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown delivery status %q", ErrValidation, status)
	}
	return s.repo.UpdateLogStatus(ctx, logID, status)
}

// ListCampaigns returns every communication log, newest first.
func (s *Service) ListCampaigns(ctx context.Context) ([]domain.CommunicationLog, error) {
	return s.repo.ListLogs(ctx)
}
