package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Posting is one side of a balanced entry addressed by account code; the
// service provisions accounts on first use.
type Posting struct {
	AccountCode string
	Direction   EntryDirection
	Amount      int64
}

// Service writes balanced ledger entries. PostTx joins an enclosing
// transaction so financial effects commit atomically with their trigger.
type Service interface {
	Post(ctx context.Context, workspaceID snowflake.ID, sourceType string, sourceID snowflake.ID, currency string, occurredAt time.Time, postings []Posting) error
	PostTx(ctx context.Context, tx *gorm.DB, workspaceID snowflake.ID, sourceType string, sourceID snowflake.ID, currency string, occurredAt time.Time, postings []Posting) error
	// Balance sums an account's debit-minus-credit position in cents.
	Balance(ctx context.Context, workspaceID snowflake.ID, accountCode, currency string) (int64, error)
}

var (
	ErrInvalidWorkspace     = errors.New("invalid_workspace")
	ErrInvalidSourceType    = errors.New("invalid_source_type")
	ErrInvalidSourceID      = errors.New("invalid_source_id")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidOccurredAt    = errors.New("invalid_occurred_at")
	ErrInvalidPostings      = errors.New("invalid_postings")
	ErrInvalidLineAmount    = errors.New("invalid_line_amount")
	ErrInvalidLineDirection = errors.New("invalid_line_direction")
	ErrInvalidAccount       = errors.New("invalid_account")
	ErrUnbalancedEntry      = errors.New("unbalanced_entry")
)
