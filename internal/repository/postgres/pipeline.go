package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/crm-engine/internal/domain"
)

// PipelineStore is the write side of the event consumer. Events can be
// redelivered, so every write is idempotent: customers upsert by email,
// orders and delivery attempts insert-or-ignore by id.
type PipelineStore struct{ db *sql.DB }

// NewPipelineStore creates a Postgres-backed consumer store.
func NewPipelineStore(db *sql.DB) *PipelineStore { return &PipelineStore{db: db} }

func (s *PipelineStore) UpsertCustomer(ctx context.Context, c domain.Customer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crm_customers (id, name, email, total_spends, last_visit, total_visits, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			total_spends = EXCLUDED.total_spends,
			last_visit = EXCLUDED.last_visit,
			total_visits = EXCLUDED.total_visits,
			updated_at = NOW()
	`, c.ID, c.Name, c.Email, c.TotalSpends, c.LastVisit, c.TotalVisits)
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

func (s *PipelineStore) InsertOrder(ctx context.Context, o domain.Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crm_orders (id, product, customer_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO NOTHING
	`, o.ID, o.Product, o.CustomerID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *PipelineStore) RecordDeliveryAttempt(ctx context.Context, a domain.DeliveryAttempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crm_delivery_attempts (id, log_id, customer_id, status, detail, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, a.ID, a.LogID, a.CustomerID, a.Status, a.Detail, a.AttemptedAt)
	if err != nil {
		return fmt.Errorf("record delivery attempt: %w", err)
	}
	return nil
}
