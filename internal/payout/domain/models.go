// Package domain defines payout statements: the per-workspace settlement
// documents aggregating billed sessions over a period.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// StatementStatus is the post-generation workflow state. Generation produces
// DRAFT; issuing and paying are external workflow steps. CANCELLED releases
// the statement's sessions for a later period.
type StatementStatus string

const (
	StatementStatusDraft     StatementStatus = "DRAFT"
	StatementStatusIssued    StatementStatus = "ISSUED"
	StatementStatusPaid      StatementStatus = "PAID"
	StatementStatusCancelled StatementStatus = "CANCELLED"
)

// PayoutStatement aggregates the frozen monetary outcomes of its sessions.
// The unique period index enforces at most one committed statement per exact
// (workspace, period) triple.
type PayoutStatement struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	WorkspaceID     snowflake.ID `gorm:"not null;uniqueIndex:ux_payout_statements_period"`
	StatementNumber string       `gorm:"type:text;not null"`
	PeriodStart     time.Time    `gorm:"not null;uniqueIndex:ux_payout_statements_period"`
	PeriodEnd       time.Time    `gorm:"not null;uniqueIndex:ux_payout_statements_period"`

	Status StatementStatus `gorm:"type:text;not null;default:'DRAFT'"`

	SessionCount               int     `gorm:"not null;default:0"`
	TotalEnergyKwh             float64 `gorm:"not null;default:0"`
	TotalGrossAmount           float64 `gorm:"not null;default:0"`
	TotalPlatformFeeAmount     float64 `gorm:"not null;default:0"`
	TotalOperatorEarningAmount float64 `gorm:"not null;default:0"`
	Currency                   string  `gorm:"type:text;not null;default:'EUR'"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PayoutStatement) TableName() string { return "payout_statements" }

// PayoutLineItem carries one session's already-frozen figures onto its
// statement. Nothing is recomputed at payout time.
type PayoutLineItem struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	StatementID snowflake.ID `gorm:"not null;index"`
	SessionID   snowflake.ID `gorm:"not null;uniqueIndex:ux_payout_line_items_session"`

	StartTime             time.Time `gorm:"not null"`
	EnergyKwh             float64   `gorm:"not null;default:0"`
	GrossAmount           float64   `gorm:"not null;default:0"`
	PlatformFeeAmount     float64   `gorm:"not null;default:0"`
	OperatorEarningAmount float64   `gorm:"not null;default:0"`
	Currency              string    `gorm:"type:text;not null;default:'EUR'"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PayoutLineItem) TableName() string { return "payout_line_items" }
