// Package postgres implements the service repository contracts against
// PostgreSQL. One repo type per service area, all sharing a *sql.DB.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/service/ingest"
)

// IngestRepo implements ingest.Repository.
type IngestRepo struct{ db *sql.DB }

// NewIngestRepo creates a Postgres-backed intake repository.
func NewIngestRepo(db *sql.DB) *IngestRepo { return &IngestRepo{db: db} }

func (r *IngestRepo) CustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	c := &domain.Customer{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, total_spends, last_visit, total_visits, created_at, updated_at
		FROM crm_customers
		WHERE email = $1
	`, email).Scan(
		&c.ID, &c.Name, &c.Email, &c.TotalSpends, &c.LastVisit, &c.TotalVisits,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ingest.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer by email: %w", err)
	}
	return c, nil
}

func (r *IngestRepo) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO crm_customers (id, name, email, total_spends, last_visit, total_visits, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.Email, c.TotalSpends, c.LastVisit, c.TotalVisits).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// UpdateCustomerVisits is the single conditional write backing the
// visit-count idempotence guard. The WHERE clause carries the previously
// read count so a concurrent update can never be silently overwritten.
func (r *IngestRepo) UpdateCustomerVisits(ctx context.Context, id string, prevVisits, newVisits int, lastVisit time.Time, totalSpends float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE crm_customers
		SET total_visits = $3, last_visit = $4, total_spends = $5, updated_at = NOW()
		WHERE id = $1 AND total_visits = $2
	`, id, prevVisits, newVisits, lastVisit, totalSpends)
	if err != nil {
		return fmt.Errorf("update customer visits: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update customer visits: %w", err)
	}
	if n == 0 {
		// Either the id is gone or another writer moved total_visits
		// after our read. Re-check to report the right condition.
		exists, existsErr := r.CustomerExists(ctx, id)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return ingest.ErrCustomerNotFound
		}
		return fmt.Errorf("%w: visit count changed concurrently", ingest.ErrConflict)
	}
	return nil
}

func (r *IngestRepo) CustomerExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM crm_customers WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check customer exists: %w", err)
	}
	return exists, nil
}

func (r *IngestRepo) CreateOrder(ctx context.Context, o *domain.Order) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO crm_orders (id, product, customer_id, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at
	`, o.ID, o.Product, o.CustomerID).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *IngestRepo) OrdersForCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product, customer_id, created_at
		FROM crm_orders
		WHERE customer_id = $1
		ORDER BY created_at ASC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Product, &o.CustomerID, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
