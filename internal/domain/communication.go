package domain

import "time"

// DeliveryStatus enumerates the coarse delivery outcome recorded on a
// communication log and on individual delivery attempts.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "SENT"
	DeliveryFailed DeliveryStatus = "FAILED"
)

// Valid reports whether s is a recognized delivery status.
func (s DeliveryStatus) Valid() bool {
	return s == DeliverySent || s == DeliveryFailed
}

// CommunicationLog is the audit record written once per audience save. It
// captures the filters that defined the audience, the resolved member set,
// and a single coarse delivery status.
//
// Status is an aggregate flag over the whole send: the per-recipient truth
// lives in DeliveryAttempt rows. Status keeps last-writer-wins semantics on
// purpose (the delivery-receipt callback and the send loop both target it).
type CommunicationLog struct {
	ID              string         `json:"id" db:"id"`
	AudienceFilters []FilterRule   `json:"audienceFilters" db:"audience_filters"`
	AudienceSize    int            `json:"audienceSize" db:"audience_size"`
	AudienceMembers []string       `json:"audienceMembers" db:"audience_members"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
	Status          DeliveryStatus `json:"status" db:"status"`
}

// DeliveryAttempt records the outcome of one send to one audience member.
type DeliveryAttempt struct {
	ID          string         `json:"id" db:"id"`
	LogID       string         `json:"logId" db:"log_id"`
	CustomerID  string         `json:"customerId" db:"customer_id"`
	Status      DeliveryStatus `json:"status" db:"status"`
	Detail      string         `json:"detail,omitempty" db:"detail"`
	AttemptedAt time.Time      `json:"attemptedAt" db:"attempted_at"`
}
