package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/segment"
	"github.com/ignite/crm-engine/internal/service/audience"
)

// AudienceRepo implements audience.Repository. Predicates are rendered to a
// parameterized WHERE clause by the segment package; no rule text ever
// reaches the SQL directly.
type AudienceRepo struct{ db *sql.DB }

// NewAudienceRepo creates a Postgres-backed audience repository.
func NewAudienceRepo(db *sql.DB) *AudienceRepo { return &AudienceRepo{db: db} }

func (r *AudienceRepo) FindCustomers(ctx context.Context, p segment.Predicate) ([]domain.Customer, error) {
	where, args, err := segment.ToSQL(p)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, total_spends, last_visit, total_visits, created_at, updated_at
		FROM crm_customers
		WHERE `+where+`
		ORDER BY created_at ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("find customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.TotalSpends, &c.LastVisit,
			&c.TotalVisits, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *AudienceRepo) CountCustomers(ctx context.Context, p segment.Predicate) (int, error) {
	where, args, err := segment.ToSQL(p)
	if err != nil {
		return 0, err
	}

	var n int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM crm_customers WHERE `+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

func (r *AudienceRepo) CreateLog(ctx context.Context, l *domain.CommunicationLog) error {
	filters, err := json.Marshal(l.AudienceFilters)
	if err != nil {
		return fmt.Errorf("marshal audience filters: %w", err)
	}
	members, err := json.Marshal(l.AudienceMembers)
	if err != nil {
		return fmt.Errorf("marshal audience members: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO crm_communication_logs (id, audience_filters, audience_size, audience_members, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`, l.ID, filters, l.AudienceSize, members, l.Status).Scan(&l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert communication log: %w", err)
	}
	return nil
}

func (r *AudienceRepo) UpdateLogStatus(ctx context.Context, id string, status domain.DeliveryStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE crm_communication_logs SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update log status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update log status: %w", err)
	}
	if n == 0 {
		return audience.ErrLogNotFound
	}
	return nil
}

func (r *AudienceRepo) GetLog(ctx context.Context, id string) (*domain.CommunicationLog, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, audience_filters, audience_size, audience_members, status, created_at
		FROM crm_communication_logs
		WHERE id = $1
	`, id)
	l, err := scanLog(row)
	if err == sql.ErrNoRows {
		return nil, audience.ErrLogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get communication log: %w", err)
	}
	return l, nil
}

func (r *AudienceRepo) ListLogs(ctx context.Context) ([]domain.CommunicationLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, audience_filters, audience_size, audience_members, status, created_at
		FROM crm_communication_logs
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list communication logs: %w", err)
	}
	defer rows.Close()

	var out []domain.CommunicationLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan communication log: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner) (*domain.CommunicationLog, error) {
	l := &domain.CommunicationLog{}
	var filters, members []byte
	if err := row.Scan(&l.ID, &filters, &l.AudienceSize, &members, &l.Status, &l.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(filters, &l.AudienceFilters); err != nil {
		return nil, fmt.Errorf("decode audience filters: %w", err)
	}
	if err := json.Unmarshal(members, &l.AudienceMembers); err != nil {
		return nil, fmt.Errorf("decode audience members: %w", err)
	}
	return l, nil
}
