package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/gridfare/gridfare/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p ServiceParam) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
	}
}

func (s *Service) Post(
	ctx context.Context,
	workspaceID snowflake.ID,
	sourceType string,
	sourceID snowflake.ID,
	currency string,
	occurredAt time.Time,
	postings []ledgerdomain.Posting,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.PostTx(ctx, tx, workspaceID, sourceType, sourceID, currency, occurredAt, postings)
	})
}

func (s *Service) PostTx(
	ctx context.Context,
	tx *gorm.DB,
	workspaceID snowflake.ID,
	sourceType string,
	sourceID snowflake.ID,
	currency string,
	occurredAt time.Time,
	postings []ledgerdomain.Posting,
) error {
	if workspaceID == 0 {
		return ledgerdomain.ErrInvalidWorkspace
	}
	if strings.TrimSpace(sourceType) == "" {
		return ledgerdomain.ErrInvalidSourceType
	}
	if sourceID == 0 {
		return ledgerdomain.ErrInvalidSourceID
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return ledgerdomain.ErrInvalidCurrency
	}
	if occurredAt.IsZero() {
		return ledgerdomain.ErrInvalidOccurredAt
	}
	if err := ledgerdomain.ValidateBalanced(postings); err != nil {
		return err
	}

	now := time.Now().UTC()
	entryID := s.genID.Generate()

	// One entry per (source_type, source_id); a retry of the same trigger
	// must not double-post.
	result := tx.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (id, workspace_id, source_type, source_id, currency, occurred_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (source_type, source_id) DO NOTHING`,
		entryID,
		workspaceID,
		sourceType,
		sourceID,
		currency,
		occurredAt,
		now,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return nil
	}

	for _, posting := range postings {
		accountID, err := s.ensureAccount(ctx, tx, workspaceID, posting.AccountCode, now)
		if err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO ledger_entry_lines (id, entry_id, account_id, direction, amount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.genID.Generate(),
			entryID,
			accountID,
			posting.Direction,
			posting.Amount,
			now,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) Balance(ctx context.Context, workspaceID snowflake.ID, accountCode, currency string) (int64, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return 0, ledgerdomain.ErrInvalidCurrency
	}

	// The balance is an aggregate at the data layer, never read-modify-write
	// in application code.
	var balance int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(CASE l.direction WHEN 'debit' THEN l.amount ELSE -l.amount END), 0) AS balance
		 FROM ledger_entries e
		 JOIN ledger_entry_lines l ON l.entry_id = e.id
		 JOIN ledger_accounts a ON a.id = l.account_id
		 WHERE e.workspace_id = ? AND a.code = ? AND e.currency = ?`,
		workspaceID,
		accountCode,
		currency,
	).Scan(&balance).Error
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *Service) ensureAccount(ctx context.Context, tx *gorm.DB, workspaceID snowflake.ID, code string, now time.Time) (snowflake.ID, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, ledgerdomain.ErrInvalidAccount
	}

	var accountID snowflake.ID
	if err := tx.WithContext(ctx).Raw(
		`SELECT id FROM ledger_accounts WHERE workspace_id = ? AND code = ?`,
		workspaceID,
		code,
	).Scan(&accountID).Error; err != nil {
		return 0, err
	}
	if accountID != 0 {
		return accountID, nil
	}

	if err := tx.WithContext(ctx).Exec(
		`INSERT INTO ledger_accounts (id, workspace_id, code, name, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (workspace_id, code) DO NOTHING`,
		s.genID.Generate(),
		workspaceID,
		code,
		accountName(code),
		now,
	).Error; err != nil {
		return 0, err
	}

	if err := tx.WithContext(ctx).Raw(
		`SELECT id FROM ledger_accounts WHERE workspace_id = ? AND code = ?`,
		workspaceID,
		code,
	).Scan(&accountID).Error; err != nil {
		return 0, err
	}
	if accountID == 0 {
		return 0, errors.New("ledger_account_not_found")
	}
	return accountID, nil
}

func accountName(code string) string {
	switch code {
	case ledgerdomain.AccountCodeAccountsReceivable:
		return "Accounts Receivable"
	case ledgerdomain.AccountCodeCashClearing:
		return "Cash / Clearing"
	case ledgerdomain.AccountCodePlatformRevenue:
		return "Platform Revenue"
	case ledgerdomain.AccountCodeOperatorEarnings:
		return "Operator Earnings"
	case ledgerdomain.AccountCodeOperatorPayable:
		return "Operator Payable"
	default:
		return code
	}
}
