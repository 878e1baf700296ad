// Package domain defines the payment lifecycle manager: pre-authorization
// holds, captures, and the webhook applier that moves a session's payment
// state forward.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Webhook event types after provider-specific parsing.
const (
	EventTypePaymentSucceeded = "payment_succeeded"
	EventTypePaymentFailed    = "payment_failed"
)

// PaymentEvent is a provider webhook after signature verification and
// parsing. Amounts come from the processor's own payload, never from any
// client-supplied figure.
type PaymentEvent struct {
	Provider        string
	ProviderEventID string
	Type            string
	PaymentIntentID string
	AmountCents     int64
	Currency        string
	ErrorCode       string
	ErrorMessage    string
	OccurredAt      time.Time
}

// EventRecord is the durable webhook-event ledger row. The unique
// (provider, provider_event_id) pair absorbs duplicate deliveries before any
// state transition runs.
type EventRecord struct {
	ID              snowflake.ID   `gorm:"primaryKey"`
	Provider        string         `gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	ProviderEventID string         `gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	EventType       string         `gorm:"type:text;not null"`
	PaymentIntentID string         `gorm:"type:text;not null;index"`
	Payload         datatypes.JSON `gorm:""`
	ReceivedAt      time.Time      `gorm:"not null"`
	ProcessedAt     *time.Time     `gorm:""`
}

// TableName sets the database table name.
func (EventRecord) TableName() string { return "payment_events" }
