package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/service/ingest"
)

// memRepo is an in-memory ingest repository for unit testing.
type memRepo struct {
	mu        sync.Mutex
	customers map[string]*domain.Customer // keyed by id
	orders    map[string]*domain.Order
}

func newMemRepo() *memRepo {
	return &memRepo{
		customers: make(map[string]*domain.Customer),
		orders:    make(map[string]*domain.Order),
	}
}

func (m *memRepo) CustomerByEmail(_ context.Context, email string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ingest.ErrCustomerNotFound
}

func (m *memRepo) CreateCustomer(_ context.Context, c *domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.customers {
		if existing.Email == c.Email {
			return fmt.Errorf("duplicate email")
		}
	}
	cp := *c
	m.customers[cp.ID] = &cp
	return nil
}

func (m *memRepo) UpdateCustomerVisits(_ context.Context, id string, prevVisits, newVisits int, lastVisit time.Time, totalSpends float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return ingest.ErrCustomerNotFound
	}
	if c.TotalVisits != prevVisits {
		return ingest.ErrConflict
	}
	c.TotalVisits = newVisits
	c.LastVisit = lastVisit
	c.TotalSpends = totalSpends
	return nil
}

func (m *memRepo) CustomerExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.customers[id]
	return ok, nil
}

func (m *memRepo) CreateOrder(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[cp.ID] = &cp
	return nil
}

func (m *memRepo) OrdersForCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

// memBus records published events and can be told to fail.
type memBus struct {
	mu     sync.Mutex
	events []publishedEvent
	fail   error
}

type publishedEvent struct {
	topic   string
	payload any
}

func (b *memBus) Publish(_ context.Context, topic string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.events = append(b.events, publishedEvent{topic: topic, payload: payload})
	return nil
}

func (b *memBus) count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.topic == topic {
			n++
		}
	}
	return n
}

func validCustomer() ingest.CustomerInput {
	return ingest.CustomerInput{
		Name:        "Ada Lovelace",
		Email:       "ada@example.com",
		TotalSpends: 250,
		LastVisit:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		TotalVisits: 3,
	}
}

func TestSubmitCustomerCreates(t *testing.T) {
	repo, events := newMemRepo(), &memBus{}
	svc := ingest.NewService(repo, events)

	c, err := svc.SubmitCustomer(context.Background(), validCustomer())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID == "" {
		t.Error("expected generated id")
	}
	if len(repo.customers) != 1 {
		t.Errorf("expected exactly one stored customer, got %d", len(repo.customers))
	}
	if got := events.count(domain.TopicCustomers); got != 1 {
		t.Errorf("expected exactly one customer event, got %d", got)
	}
}

func TestSubmitCustomerSameVisitsConflicts(t *testing.T) {
	repo, events := newMemRepo(), &memBus{}
	svc := ingest.NewService(repo, events)

	in := validCustomer()
	if _, err := svc.SubmitCustomer(context.Background(), in); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := svc.SubmitCustomer(context.Background(), in)
	if !errors.Is(err, ingest.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(repo.customers) != 1 {
		t.Errorf("conflict must not mutate: got %d customers", len(repo.customers))
	}
	if got := events.count(domain.TopicCustomers); got != 1 {
		t.Errorf("conflict must not publish: got %d events", got)
	}
}

func TestSubmitCustomerDifferentVisitsUpdates(t *testing.T) {
	repo, events := newMemRepo(), &memBus{}
	svc := ingest.NewService(repo, events)

	in := validCustomer()
	first, err := svc.SubmitCustomer(context.Background(), in)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	in.TotalVisits = 4
	updated, err := svc.SubmitCustomer(context.Background(), in)
	if err != nil {
		t.Fatalf("update submit: %v", err)
	}
	if updated.ID != first.ID {
		t.Error("update must not create a new record")
	}
	if repo.customers[first.ID].TotalVisits != 4 {
		t.Errorf("stored visits = %d, want 4", repo.customers[first.ID].TotalVisits)
	}
	if got := events.count(domain.TopicCustomers); got != 2 {
		t.Errorf("expected exactly one event per accepted submission, got %d total", got)
	}
}

func TestSubmitCustomerValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ingest.CustomerInput)
	}{
		{"missing name", func(in *ingest.CustomerInput) { in.Name = "" }},
		{"missing email", func(in *ingest.CustomerInput) { in.Email = "" }},
		{"malformed email", func(in *ingest.CustomerInput) { in.Email = "not-an-email" }},
		{"negative spends", func(in *ingest.CustomerInput) { in.TotalSpends = -1 }},
		{"zero visits", func(in *ingest.CustomerInput) { in.TotalVisits = 0 }},
		{"missing lastvisit", func(in *ingest.CustomerInput) { in.LastVisit = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, events := newMemRepo(), &memBus{}
			svc := ingest.NewService(repo, events)

			in := validCustomer()
			tt.mutate(&in)

			_, err := svc.SubmitCustomer(context.Background(), in)
			if !errors.Is(err, ingest.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if len(repo.customers) != 0 {
				t.Error("validation failure must not persist anything")
			}
			if len(events.events) != 0 {
				t.Error("validation failure must not publish anything")
			}
		})
	}
}

func TestSubmitOrderRequiresExistingCustomer(t *testing.T) {
	repo, events := newMemRepo(), &memBus{}
	svc := ingest.NewService(repo, events)

	_, err := svc.SubmitOrder(context.Background(), ingest.OrderInput{
		Product:    "widget",
		CustomerID: "9b8e7146-51d3-41c2-a7b2-41b1f04b9b2a",
	})
	if !errors.Is(err, ingest.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
	if len(repo.orders) != 0 {
		t.Error("missing customer must not persist an order")
	}
}

func TestSubmitOrderMalformedCustomerID(t *testing.T) {
	svc := ingest.NewService(newMemRepo(), &memBus{})

	_, err := svc.SubmitOrder(context.Background(), ingest.OrderInput{
		Product:    "widget",
		CustomerID: "not-a-uuid",
	})
	if !errors.Is(err, ingest.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSubmitOrderReferentialIntegrity(t *testing.T) {
	repo, events := newMemRepo(), &memBus{}
	svc := ingest.NewService(repo, events)

	c, err := svc.SubmitCustomer(context.Background(), validCustomer())
	if err != nil {
		t.Fatalf("submit customer: %v", err)
	}

	o, err := svc.SubmitOrder(context.Background(), ingest.OrderInput{Product: "widget", CustomerID: c.ID})
	if err != nil {
		t.Fatalf("submit order: %v", err)
	}
	if o.CustomerID != c.ID {
		t.Errorf("order customer mismatch: %s != %s", o.CustomerID, c.ID)
	}
	if got := events.count(domain.TopicOrders); got != 1 {
		t.Errorf("expected one order event, got %d", got)
	}

	orders, err := svc.ListOrdersForCustomer(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
}

func TestSubmitCustomerPublishFailureSurfaces(t *testing.T) {
	repo := newMemRepo()
	events := &memBus{fail: errors.New("bus down")}
	svc := ingest.NewService(repo, events)

	_, err := svc.SubmitCustomer(context.Background(), validCustomer())
	if err == nil {
		t.Fatal("expected error when event bus is unavailable")
	}
	// Persistence happens before the publish attempt.
	if len(repo.customers) != 1 {
		t.Errorf("expected persisted customer despite publish failure, got %d", len(repo.customers))
	}
}
