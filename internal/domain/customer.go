package domain

import "time"

// Customer represents a single CRM customer record. Email is unique across
// the whole store; TotalVisits doubles as the idempotence guard for updates
// (a resubmission with an unchanged visit count is a no-op conflict).
type Customer struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	TotalSpends float64   `json:"totalspends" db:"total_spends"`
	LastVisit   time.Time `json:"lastvisit" db:"last_visit"`
	TotalVisits int       `json:"totalvisits" db:"total_visits"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Order is a single purchase attributed to a customer. Orders are immutable
// once created.
type Order struct {
	ID         string    `json:"id" db:"id"`
	Product    string    `json:"product" db:"product"`
	CustomerID string    `json:"customerId" db:"customer_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
