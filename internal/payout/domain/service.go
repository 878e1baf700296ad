package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Mode selects between a dry run and an atomic write.
type Mode string

const (
	ModePreview Mode = "preview"
	ModeCommit  Mode = "commit"
)

type GenerateRequest struct {
	WorkspaceID snowflake.ID
	PeriodStart time.Time
	PeriodEnd   time.Time
	Mode        Mode
}

// Statement is a generated payout statement with its line items. In preview
// mode nothing is persisted and IDs are zero.
type Statement struct {
	PayoutStatement
	LineItems []PayoutLineItem
}

type Service interface {
	// Generate builds the statement for the period. Preview returns the
	// would-be result without writing; commit persists the statement, its
	// line items, and the session claims in one transaction.
	Generate(ctx context.Context, req GenerateRequest) (*Statement, error)

	GetStatement(ctx context.Context, statementID snowflake.ID) (*Statement, error)

	// MarkIssued and MarkPaid advance the external workflow state.
	MarkIssued(ctx context.Context, statementID snowflake.ID) (*PayoutStatement, error)
	MarkPaid(ctx context.Context, statementID snowflake.ID) (*PayoutStatement, error)

	// Cancel voids a statement and releases its sessions so a later
	// period can reclaim them.
	Cancel(ctx context.Context, statementID snowflake.ID) (*PayoutStatement, error)
}

var (
	ErrStatementNotFound  = errors.New("statement_not_found")
	ErrInvalidWorkspace   = errors.New("invalid_workspace")
	ErrInvalidPeriod      = errors.New("invalid_period")
	ErrInvalidMode        = errors.New("invalid_mode")
	ErrDuplicatePeriod    = errors.New("statement_period_exists")
	ErrNoEligibleSessions = errors.New("no_eligible_sessions")
	ErrSessionsContended  = errors.New("sessions_claimed_concurrently")
	ErrInvalidStatus      = errors.New("invalid_statement_status")
)
