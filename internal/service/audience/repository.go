package audience

import (
	"context"

	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/segment"
)

// Repository defines the data access contract for audience resolution and
// communication logs. Implementations must be safe for concurrent use.
type Repository interface {
	// FindCustomers returns customers matching the predicate, in stable
	// store order.
	FindCustomers(ctx context.Context, p segment.Predicate) ([]domain.Customer, error)

	// CountCustomers returns the number of customers matching the
	// predicate without materializing them.
	CountCustomers(ctx context.Context, p segment.Predicate) (int, error)

	// CreateLog inserts a communication log.
	CreateLog(ctx context.Context, l *domain.CommunicationLog) error

	// UpdateLogStatus sets the log's aggregate status. Returns
	// ErrLogNotFound if the id does not resolve. Setting the status a log
	// already has is a harmless no-op.
	UpdateLogStatus(ctx context.Context, id string, status domain.DeliveryStatus) error

	// GetLog returns one communication log. Returns ErrLogNotFound if the
	// id does not resolve.
	GetLog(ctx context.Context, id string) (*domain.CommunicationLog, error)

	// ListLogs returns all communication logs, newest first.
	ListLogs(ctx context.Context) ([]domain.CommunicationLog, error)
}

// Message is one personalized message bound for one recipient.
type Message struct {
	CustomerID string `json:"customerId"`
	Email      string `json:"-"`
	Body       string `json:"message"`
}

// Sender delivers a single message to a single recipient. Implementations
// perform network calls and may be slow or fail; any error counts as a
// delivery failure for that recipient only.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Renderer produces the personalized message body for a customer.
type Renderer interface {
	Render(c domain.Customer) (string, error)
}

// EventPublisher fans per-recipient delivery outcomes out to the pipeline.
// Satisfied by bus.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}
