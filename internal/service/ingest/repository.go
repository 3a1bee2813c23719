package ingest

import (
	"context"
	"time"

	"github.com/ignite/crm-engine/internal/domain"
)

// Repository defines the data access contract for intake.
// Implementations must be safe for concurrent use.
type Repository interface {
	// CustomerByEmail returns the customer holding the given (unique) email.
	// Returns ErrCustomerNotFound if no such customer exists.
	CustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)

	// CreateCustomer inserts a new customer and returns it with its id set.
	CreateCustomer(ctx context.Context, c *domain.Customer) error

	// UpdateCustomerVisits applies the visit-count update as a single
	// conditional write: it only succeeds if the stored total_visits still
	// equals prevVisits. Returns ErrConflict if the guard fails (a
	// concurrent writer got there first) and ErrCustomerNotFound if the id
	// does not resolve.
	UpdateCustomerVisits(ctx context.Context, id string, prevVisits, newVisits int, lastVisit time.Time, totalSpends float64) error

	// CustomerExists reports whether the customer id resolves.
	CustomerExists(ctx context.Context, id string) (bool, error)

	// CreateOrder inserts a new order.
	CreateOrder(ctx context.Context, o *domain.Order) error

	// OrdersForCustomer returns the customer's orders, oldest first.
	OrdersForCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
}

// EventPublisher fans accepted mutations out to the pipeline. Satisfied by
// bus.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}
