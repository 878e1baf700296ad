package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// EntryDirection represents debit or credit postings.
type EntryDirection string

const (
	EntryDirectionDebit  EntryDirection = "debit"
	EntryDirectionCredit EntryDirection = "credit"
)

// Source types link ledger entries back to the billing object that caused them.
const (
	SourceTypeSessionBilled   = "session_billed"
	SourceTypePaymentCapture  = "payment_capture"
	SourceTypePayoutStatement = "payout_statement"
	SourceTypeCDRSettlement   = "cdr_settlement"
)

// Workspace chart-of-accounts codes.
const (
	AccountCodeAccountsReceivable = "accounts_receivable"
	AccountCodeCashClearing       = "cash_clearing"
	AccountCodePlatformRevenue    = "platform_revenue"
	AccountCodeOperatorEarnings   = "operator_earnings"
	AccountCodeOperatorPayable    = "operator_payable"
)

// Account defines a chart-of-accounts entry per workspace.
type Account struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	WorkspaceID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_ledger_accounts_ws_code,priority:1"`
	Code        string       `gorm:"type:text;not null;uniqueIndex:ux_ledger_accounts_ws_code,priority:2"`
	Name        string       `gorm:"type:text;not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "ledger_accounts" }

// Entry captures the immutable header for one financial event.
type Entry struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	WorkspaceID snowflake.ID `gorm:"not null;index"`
	SourceType  string       `gorm:"type:text;not null;index;uniqueIndex:ux_ledger_entries_source,priority:1"`
	SourceID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_ledger_entries_source,priority:2"`
	Currency    string       `gorm:"type:text;not null"`
	OccurredAt  time.Time    `gorm:"not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "ledger_entries" }

// EntryLine is a double-entry posting line, amounts in cents.
type EntryLine struct {
	ID        snowflake.ID   `gorm:"primaryKey"`
	EntryID   snowflake.ID   `gorm:"not null;index"`
	AccountID snowflake.ID   `gorm:"not null;index"`
	Direction EntryDirection `gorm:"type:text;not null"`
	Amount    int64          `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (EntryLine) TableName() string { return "ledger_entry_lines" }
