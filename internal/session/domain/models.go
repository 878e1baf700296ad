// Package domain contains the charging session ledger model. A session row is
// the unit every other billing component reads from and writes to; it is
// closed via end_time and terminal statuses, never deleted.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SessionStatus tracks the charge lifecycle.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusCancelled SessionStatus = "CANCELLED"
)

// BillingStatus tracks whether monetary fields have been frozen.
type BillingStatus string

const (
	BillingStatusNotBilled BillingStatus = "NOT_BILLED"
	BillingStatusBilled    BillingStatus = "BILLED"
)

// PaymentStatus is the forward-only payment state machine.
type PaymentStatus string

const (
	PaymentStatusNone          PaymentStatus = "NONE"
	PaymentStatusHoldPending   PaymentStatus = "HOLD_PENDING"
	PaymentStatusHoldOK        PaymentStatus = "HOLD_OK"
	PaymentStatusCaptured      PaymentStatus = "CAPTURED"
	PaymentStatusCancelled     PaymentStatus = "CANCELLED"
	PaymentStatusFailed        PaymentStatus = "FAILED"
	PaymentStatusPartialFailed PaymentStatus = "PARTIAL_FAILED"
)

// Rank orders payment states so that transitions can only advance. Terminal
// states share the top rank; the per-transition guards decide which terminal
// is reachable from where.
func (s PaymentStatus) Rank() int {
	switch s {
	case PaymentStatusNone:
		return 0
	case PaymentStatusHoldPending:
		return 1
	case PaymentStatusHoldOK:
		return 2
	case PaymentStatusCaptured, PaymentStatusCancelled, PaymentStatusFailed, PaymentStatusPartialFailed:
		return 3
	default:
		return -1
	}
}

// Terminal reports whether no further payment transition is legal.
func (s PaymentStatus) Terminal() bool {
	return s.Rank() == 3
}

// RoamingType flags inter-operator sessions.
type RoamingType string

const (
	RoamingTypeNone     RoamingType = "NONE"
	RoamingTypeInbound  RoamingType = "INBOUND"
	RoamingTypeOutbound RoamingType = "OUTBOUND"
)

// ClearingStatus is the CDR reconciliation outcome for roaming sessions.
type ClearingStatus string

const (
	ClearingStatusNone     ClearingStatus = "NONE"
	ClearingStatusPending  ClearingStatus = "PENDING"
	ClearingStatusMatched  ClearingStatus = "MATCHED"
	ClearingStatusDisputed ClearingStatus = "DISPUTED"
)

// TariffSnapshot is the immutable price copy frozen onto a session at start.
// Computation reads these structured fields; the JSON column on the session is
// audit material only and is never re-parsed as a source of truth.
type TariffSnapshot struct {
	TariffProfileID    snowflake.ID `json:"tariff_profile_id"`
	TariffVersion      int          `json:"tariff_version"`
	BasePricePerKwh    float64      `json:"base_price_per_kwh"`
	PricePerMinute     float64      `json:"price_per_minute"`
	SessionStartFee    float64      `json:"session_start_fee"`
	PlatformFeePercent float64      `json:"platform_fee_percent"`
	Currency           string       `json:"currency"`
	CapturedAt         time.Time    `json:"captured_at"`
}

// MarshalAudit renders the snapshot for the audit JSON column.
func (s TariffSnapshot) MarshalAudit() (datatypes.JSON, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// ChargingSession is the central ledger row.
type ChargingSession struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	WorkspaceID snowflake.ID  `gorm:"not null;index"`
	StationID   snowflake.ID  `gorm:"not null;index"`
	ConnectorID *snowflake.ID `gorm:"index"`
	EndUserID   snowflake.ID  `gorm:"not null;index"`

	StartTime       time.Time  `gorm:"not null;index"`
	EndTime         *time.Time `gorm:""`
	EnergyKwh       float64    `gorm:"not null;default:0"`
	DurationSeconds int64      `gorm:"not null;default:0"`

	Status        SessionStatus `gorm:"type:text;not null;default:'ACTIVE'"`
	BillingStatus BillingStatus `gorm:"type:text;not null;default:'NOT_BILLED'"`
	PaymentStatus PaymentStatus `gorm:"type:text;not null;default:'NONE'"`

	// Frozen tariff snapshot. Null tariff_profile_id marks the session
	// unbillable until manually corrected.
	TariffProfileID    *snowflake.ID  `gorm:"index"`
	TariffVersion      *int           `gorm:""`
	BasePricePerKwh    *float64       `gorm:""`
	PricePerMinute     *float64       `gorm:""`
	SessionStartFee    *float64       `gorm:""`
	PlatformFeePercent *float64       `gorm:""`
	Currency           string         `gorm:"type:text;not null;default:'EUR'"`
	TariffSnapshotJSON datatypes.JSON `gorm:"column:tariff_snapshot_json"`

	// Monetary outcome, immutable once billing_status = BILLED.
	GrossAmount           *float64   `gorm:""`
	PlatformFeeAmount     *float64   `gorm:""`
	OperatorEarningAmount *float64   `gorm:""`
	BilledAt              *time.Time `gorm:""`

	// Mirrored payment intent state.
	StripePaymentIntentID   *string    `gorm:"type:text;uniqueIndex:ux_sessions_intent"`
	HoldAmountCents         *int64     `gorm:""`
	CapturedAmountCents     *int64     `gorm:""`
	CaptureClaimedAt        *time.Time `gorm:""`
	PaidAt                  *time.Time `gorm:""`
	PaymentLastErrorCode    *string    `gorm:"type:text"`
	PaymentLastErrorMessage *string    `gorm:"type:text"`

	// Roaming reconciliation.
	RoamingType        RoamingType    `gorm:"type:text;not null;default:'NONE'"`
	ClearingStatus     ClearingStatus `gorm:"type:text;not null;default:'NONE'"`
	HubjectSessionID   *string        `gorm:"type:text;uniqueIndex:ux_sessions_hubject"`
	RoamingGrossAmount *float64       `gorm:""`
	RoamingNetAmount   *float64       `gorm:""`
	DisputeReason      *string        `gorm:"type:text"`

	// Set when the session is claimed by a committed payout statement.
	PayoutStatementID *snowflake.ID `gorm:"index"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ChargingSession) TableName() string { return "charging_sessions" }

// Snapshot reconstructs the frozen tariff value object, or nil when the
// session started without a resolvable tariff.
func (s *ChargingSession) Snapshot() *TariffSnapshot {
	if s.TariffProfileID == nil || s.BasePricePerKwh == nil {
		return nil
	}
	snap := TariffSnapshot{
		TariffProfileID: *s.TariffProfileID,
		BasePricePerKwh: *s.BasePricePerKwh,
		Currency:        s.Currency,
	}
	if s.TariffVersion != nil {
		snap.TariffVersion = *s.TariffVersion
	}
	if s.PricePerMinute != nil {
		snap.PricePerMinute = *s.PricePerMinute
	}
	if s.SessionStartFee != nil {
		snap.SessionStartFee = *s.SessionStartFee
	}
	if s.PlatformFeePercent != nil {
		snap.PlatformFeePercent = *s.PlatformFeePercent
	}
	return &snap
}
