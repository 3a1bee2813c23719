package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/pkg/logger"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// CustomerInput is a customer submission. Field names follow the wire
// contract of the intake API.
type CustomerInput struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	TotalSpends float64   `json:"totalspends"`
	LastVisit   time.Time `json:"lastvisit"`
	TotalVisits int       `json:"totalvisits"`
}

// OrderInput is an order submission.
type OrderInput struct {
	Product    string `json:"product"`
	CustomerID string `json:"customerId"`
}

// Service implements intake business logic. All public methods are safe for
// concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo   Repository
	events EventPublisher
}

// NewService creates an ingest service backed by the given repository and
// event publisher.
func NewService(repo Repository, events EventPublisher) *Service {
	return &Service{repo: repo, events: events}
}

// SubmitCustomer accepts a new or updated customer record.
//
// A previously unseen email creates a customer. A known email with an
// unchanged visit count is rejected with ErrConflict and mutates nothing.
// A known email with a different visit count updates the stored record via
// a conditional write keyed on the previously read count, so a concurrent
// update surfaces as ErrConflict rather than a lost write.
//
// Exactly one change event is published per accepted mutation.
func (s *Service) SubmitCustomer(ctx context.Context, in CustomerInput) (*domain.Customer, error) {
	if err := validateCustomer(in); err != nil {
		return nil, err
	}

	existing, err := s.repo.CustomerByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if existing.TotalVisits == in.TotalVisits {
			return nil, fmt.Errorf("%w: email %s, visits %d", ErrConflict, in.Email, in.TotalVisits)
		}
		if err := s.repo.UpdateCustomerVisits(ctx, existing.ID, existing.TotalVisits, in.TotalVisits, in.LastVisit, in.TotalSpends); err != nil {
			return nil, err
		}
		updated := *existing
		updated.TotalVisits = in.TotalVisits
		updated.LastVisit = in.LastVisit
		updated.TotalSpends = in.TotalSpends
		if err := s.publishCustomer(ctx, &updated); err != nil {
			return nil, err
		}
		logger.Info("customer updated", "customer_email", updated.Email, "visits", updated.TotalVisits)
		return &updated, nil

	case errors.Is(err, ErrCustomerNotFound):
		c := &domain.Customer{
			ID:          uuid.New().String(),
			Name:        in.Name,
			Email:       in.Email,
			TotalSpends: in.TotalSpends,
			LastVisit:   in.LastVisit,
			TotalVisits: in.TotalVisits,
		}
		if err := s.repo.CreateCustomer(ctx, c); err != nil {
			return nil, err
		}
		if err := s.publishCustomer(ctx, c); err != nil {
			return nil, err
		}
		logger.Info("customer created", "customer_email", c.Email)
		return c, nil

	default:
		return nil, fmt.Errorf("lookup customer by email: %w", err)
	}
}

// SubmitOrder accepts a new order. The referenced customer must exist; an
// order can never point at a customer the store has not seen.
func (s *Service) SubmitOrder(ctx context.Context, in OrderInput) (*domain.Order, error) {
	if in.Product == "" {
		return nil, fmt.Errorf("%w: product is required", ErrValidation)
	}
	if _, err := uuid.Parse(in.CustomerID); err != nil {
		return nil, fmt.Errorf("%w: malformed customerId %q", ErrValidation, in.CustomerID)
	}

	ok, err := s.repo.CustomerExists(ctx, in.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("check customer: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ErrCustomerNotFound, in.CustomerID)
	}

	o := &domain.Order{
		ID:         uuid.New().String(),
		Product:    in.Product,
		CustomerID: in.CustomerID,
	}
	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, err
	}

	if err := s.events.Publish(ctx, domain.TopicOrders, o); err != nil {
		log.Printf("[ingest] order %s persisted but event publish failed: %v", o.ID, err)
		return nil, fmt.Errorf("publish order event: %w", err)
	}
	return o, nil
}

// ListOrdersForCustomer returns all orders attributed to the customer id.
// An unknown but well-formed id yields an empty list, not an error.
func (s *Service) ListOrdersForCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	if _, err := uuid.Parse(customerID); err != nil {
		return nil, fmt.Errorf("%w: malformed customerId %q", ErrValidation, customerID)
	}
	return s.repo.OrdersForCustomer(ctx, customerID)
}

func (s *Service) publishCustomer(ctx context.Context, c *domain.Customer) error {
	if err := s.events.Publish(ctx, domain.TopicCustomers, c); err != nil {
		// The record itself is already durable at this point.
		log.Printf("[ingest] customer %s persisted but event publish failed: %v", c.ID, err)
		return fmt.Errorf("publish customer event: %w", err)
	}
	return nil
}

func validateCustomer(in CustomerInput) error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !emailPattern.MatchString(in.Email) {
		return fmt.Errorf("%w: malformed email", ErrValidation)
	}
	if in.TotalSpends < 0 {
		return fmt.Errorf("%w: totalspends must not be negative", ErrValidation)
	}
	if in.TotalVisits < 1 {
		return fmt.Errorf("%w: totalvisits must be at least 1", ErrValidation)
	}
	if in.LastVisit.IsZero() {
		return fmt.Errorf("%w: lastvisit is required", ErrValidation)
	}
	return nil
}
