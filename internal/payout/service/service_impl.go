package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/gridfare/gridfare/internal/audit/domain"
	billingdomain "github.com/gridfare/gridfare/internal/billing/domain"
	"github.com/gridfare/gridfare/internal/clock"
	"github.com/gridfare/gridfare/internal/events"
	ledgerdomain "github.com/gridfare/gridfare/internal/ledger/domain"
	"github.com/gridfare/gridfare/internal/observability/metrics"
	payoutdomain "github.com/gridfare/gridfare/internal/payout/domain"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	LedgerSvc ledgerdomain.Service
	AuditSvc  auditdomain.Service
	Outbox    *events.Outbox
	Metrics   *metrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	ledgerSvc ledgerdomain.Service
	auditSvc  auditdomain.Service
	outbox    *events.Outbox
	metrics   *metrics.BillingMetrics
}

func NewService(p Params) payoutdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payout.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		ledgerSvc: p.LedgerSvc,
		auditSvc:  p.AuditSvc,
		outbox:    p.Outbox,
		metrics:   p.Metrics,
	}
}

func (s *Service) Generate(ctx context.Context, req payoutdomain.GenerateRequest) (*payoutdomain.Statement, error) {
	if req.WorkspaceID == 0 {
		return nil, payoutdomain.ErrInvalidWorkspace
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() || !req.PeriodEnd.After(req.PeriodStart) {
		return nil, payoutdomain.ErrInvalidPeriod
	}

	switch req.Mode {
	case payoutdomain.ModePreview:
		return s.preview(ctx, req)
	case payoutdomain.ModeCommit:
		return s.commit(ctx, req)
	default:
		return nil, payoutdomain.ErrInvalidMode
	}
}

// eligibleSessions selects the workspace's completed, billed sessions in the
// period that no committed statement has claimed yet. The statement stamp is
// what makes overlapping-period double payout impossible.
func (s *Service) eligibleSessions(ctx context.Context, db *gorm.DB, req payoutdomain.GenerateRequest) ([]sessiondomain.ChargingSession, error) {
	var rows []sessiondomain.ChargingSession
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM charging_sessions
		 WHERE workspace_id = ?
		   AND status = ?
		   AND billing_status = ?
		   AND start_time >= ? AND start_time <= ?
		   AND payout_statement_id IS NULL
		 ORDER BY start_time ASC, id ASC`,
		req.WorkspaceID,
		sessiondomain.SessionStatusCompleted,
		sessiondomain.BillingStatusBilled,
		req.PeriodStart,
		req.PeriodEnd,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// lineFigures picks the figures a session contributes. A MATCHED roaming
// session settles on the clearing house's authoritative amounts; everything
// else settles on its own frozen billing outcome.
func lineFigures(row *sessiondomain.ChargingSession) (gross, fee, earning float64) {
	gross = deref(row.GrossAmount)
	fee = deref(row.PlatformFeeAmount)
	earning = deref(row.OperatorEarningAmount)

	if row.ClearingStatus == sessiondomain.ClearingStatusMatched &&
		row.RoamingGrossAmount != nil && row.RoamingNetAmount != nil {
		gross = *row.RoamingGrossAmount
		earning = *row.RoamingNetAmount
		feeDecimal := decimal.NewFromFloat(gross).Sub(decimal.NewFromFloat(earning)).Round(2)
		fee, _ = feeDecimal.Float64()
	}
	return gross, fee, earning
}

func deref(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}

// buildStatement aggregates the already-rounded per-session figures; totals
// are decimal sums of those figures, never a recomputation from meter data.
func (s *Service) buildStatement(req payoutdomain.GenerateRequest, rows []sessiondomain.ChargingSession, now time.Time) *payoutdomain.Statement {
	statement := &payoutdomain.Statement{
		PayoutStatement: payoutdomain.PayoutStatement{
			WorkspaceID:     req.WorkspaceID,
			StatementNumber: "PS-" + uuid.NewString(),
			PeriodStart:     req.PeriodStart,
			PeriodEnd:       req.PeriodEnd,
			Status:          payoutdomain.StatementStatusDraft,
			SessionCount:    len(rows),
			Currency:        "EUR",
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}

	energy := decimal.Zero
	gross := decimal.Zero
	fee := decimal.Zero
	earning := decimal.Zero

	for i := range rows {
		row := &rows[i]
		lineGross, lineFee, lineEarning := lineFigures(row)

		statement.LineItems = append(statement.LineItems, payoutdomain.PayoutLineItem{
			SessionID:             row.ID,
			StartTime:             row.StartTime,
			EnergyKwh:             row.EnergyKwh,
			GrossAmount:           lineGross,
			PlatformFeeAmount:     lineFee,
			OperatorEarningAmount: lineEarning,
			Currency:              row.Currency,
			CreatedAt:             now,
		})
		if statement.Currency == "EUR" && row.Currency != "" {
			statement.Currency = row.Currency
		}

		energy = energy.Add(decimal.NewFromFloat(row.EnergyKwh))
		gross = gross.Add(decimal.NewFromFloat(lineGross))
		fee = fee.Add(decimal.NewFromFloat(lineFee))
		earning = earning.Add(decimal.NewFromFloat(lineEarning))
	}

	statement.TotalEnergyKwh, _ = energy.Float64()
	statement.TotalGrossAmount, _ = gross.Round(2).Float64()
	statement.TotalPlatformFeeAmount, _ = fee.Round(2).Float64()
	statement.TotalOperatorEarningAmount, _ = earning.Round(2).Float64()
	return statement
}

func (s *Service) preview(ctx context.Context, req payoutdomain.GenerateRequest) (*payoutdomain.Statement, error) {
	rows, err := s.eligibleSessions(ctx, s.db, req)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, payoutdomain.ErrNoEligibleSessions
	}
	return s.buildStatement(req, rows, s.clock.Now()), nil
}

func (s *Service) commit(ctx context.Context, req payoutdomain.GenerateRequest) (*payoutdomain.Statement, error) {
	now := s.clock.Now()
	var statement *payoutdomain.Statement

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.eligibleSessions(ctx, tx, req)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return payoutdomain.ErrNoEligibleSessions
		}

		statement = s.buildStatement(req, rows, now)
		statement.ID = s.genID.Generate()

		// The unique period index turns a concurrent duplicate commit
		// into zero affected rows instead of a second statement.
		result := tx.WithContext(ctx).Exec(
			`INSERT INTO payout_statements
			 (id, workspace_id, statement_number, period_start, period_end, status,
			  session_count, total_energy_kwh, total_gross_amount,
			  total_platform_fee_amount, total_operator_earning_amount, currency,
			  created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (workspace_id, period_start, period_end) DO NOTHING`,
			statement.ID,
			statement.WorkspaceID,
			statement.StatementNumber,
			statement.PeriodStart,
			statement.PeriodEnd,
			statement.Status,
			statement.SessionCount,
			statement.TotalEnergyKwh,
			statement.TotalGrossAmount,
			statement.TotalPlatformFeeAmount,
			statement.TotalOperatorEarningAmount,
			statement.Currency,
			now,
			now,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return payoutdomain.ErrDuplicatePeriod
		}

		sessionIDs := make([]snowflake.ID, 0, len(rows))
		for i := range statement.LineItems {
			statement.LineItems[i].ID = s.genID.Generate()
			statement.LineItems[i].StatementID = statement.ID
			sessionIDs = append(sessionIDs, statement.LineItems[i].SessionID)
			if err := tx.WithContext(ctx).Create(&statement.LineItems[i]).Error; err != nil {
				return err
			}
		}

		// Claim the sessions. Losing even one to a concurrent commit
		// rolls the whole statement back rather than paying a session
		// twice.
		claim := tx.WithContext(ctx).Exec(
			`UPDATE charging_sessions
			 SET payout_statement_id = ?, updated_at = ?
			 WHERE id IN ? AND payout_statement_id IS NULL`,
			statement.ID,
			now,
			sessionIDs,
		)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected != int64(len(sessionIDs)) {
			return payoutdomain.ErrSessionsContended
		}

		earningCents := billingdomain.Cents(statement.TotalOperatorEarningAmount)
		if earningCents > 0 {
			postings := []ledgerdomain.Posting{
				{AccountCode: ledgerdomain.AccountCodeOperatorEarnings, Direction: ledgerdomain.EntryDirectionDebit, Amount: earningCents},
				{AccountCode: ledgerdomain.AccountCodeOperatorPayable, Direction: ledgerdomain.EntryDirectionCredit, Amount: earningCents},
			}
			if err := s.ledgerSvc.PostTx(ctx, tx, req.WorkspaceID, ledgerdomain.SourceTypePayoutStatement, statement.ID, statement.Currency, now, postings); err != nil {
				return err
			}
		}

		payload := events.PayoutCommittedPayload{
			StatementID:  statement.ID.String(),
			WorkspaceID:  req.WorkspaceID.String(),
			SessionCount: statement.SessionCount,
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			WorkspaceID: req.WorkspaceID,
			Type:        events.EventPayoutCommitted,
			Payload:     payload.ToMap(),
			DedupeKey:   "payout_committed:" + statement.ID.String(),
		})
	})
	if err != nil {
		s.recordCommit(err)
		return nil, err
	}
	s.recordCommit(nil)

	s.audit(ctx, req.WorkspaceID, "payout.committed", statement.ID, map[string]any{
		"statement_number": statement.StatementNumber,
		"session_count":    statement.SessionCount,
		"total_gross":      statement.TotalGrossAmount,
	})
	return statement, nil
}

func (s *Service) recordCommit(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.IncPayoutCommit("committed")
	case errors.Is(err, payoutdomain.ErrDuplicatePeriod):
		s.metrics.IncPayoutCommit("duplicate_period")
	case errors.Is(err, payoutdomain.ErrNoEligibleSessions):
		s.metrics.IncPayoutCommit("empty")
	}
}

func (s *Service) GetStatement(ctx context.Context, statementID snowflake.ID) (*payoutdomain.Statement, error) {
	header, err := s.loadStatement(ctx, statementID)
	if err != nil {
		return nil, err
	}

	var items []payoutdomain.PayoutLineItem
	err = s.db.WithContext(ctx).Raw(
		`SELECT * FROM payout_line_items WHERE statement_id = ? ORDER BY start_time ASC, id ASC`,
		statementID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}

	return &payoutdomain.Statement{PayoutStatement: *header, LineItems: items}, nil
}

func (s *Service) MarkIssued(ctx context.Context, statementID snowflake.ID) (*payoutdomain.PayoutStatement, error) {
	return s.advance(ctx, statementID, payoutdomain.StatementStatusDraft, payoutdomain.StatementStatusIssued, "payout.issued")
}

func (s *Service) MarkPaid(ctx context.Context, statementID snowflake.ID) (*payoutdomain.PayoutStatement, error) {
	return s.advance(ctx, statementID, payoutdomain.StatementStatusIssued, payoutdomain.StatementStatusPaid, "payout.paid")
}

func (s *Service) advance(ctx context.Context, statementID snowflake.ID, from, to payoutdomain.StatementStatus, action string) (*payoutdomain.PayoutStatement, error) {
	result := s.db.WithContext(ctx).Exec(
		`UPDATE payout_statements SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		s.clock.Now(),
		statementID,
		from,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		header, err := s.loadStatement(ctx, statementID)
		if err != nil {
			return nil, err
		}
		return header, payoutdomain.ErrInvalidStatus
	}

	header, err := s.loadStatement(ctx, statementID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, header.WorkspaceID, action, statementID, nil)
	return header, nil
}

// Cancel voids a DRAFT or ISSUED statement and releases its sessions. PAID
// statements are immutable.
func (s *Service) Cancel(ctx context.Context, statementID snowflake.ID) (*payoutdomain.PayoutStatement, error) {
	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).Exec(
			`UPDATE payout_statements SET status = ?, updated_at = ?
			 WHERE id = ? AND status IN (?, ?)`,
			payoutdomain.StatementStatusCancelled,
			now,
			statementID,
			payoutdomain.StatementStatusDraft,
			payoutdomain.StatementStatusIssued,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return payoutdomain.ErrInvalidStatus
		}

		// Drop the line items too: the unique session index would otherwise
		// block a later period from reclaiming the released sessions. The
		// statement header keeps the voided totals for the record.
		if err := tx.WithContext(ctx).Exec(
			`DELETE FROM payout_line_items WHERE statement_id = ?`,
			statementID,
		).Error; err != nil {
			return err
		}

		return tx.WithContext(ctx).Exec(
			`UPDATE charging_sessions SET payout_statement_id = NULL, updated_at = ?
			 WHERE payout_statement_id = ?`,
			now,
			statementID,
		).Error
	})
	if err != nil {
		if errors.Is(err, payoutdomain.ErrInvalidStatus) {
			header, loadErr := s.loadStatement(ctx, statementID)
			if loadErr != nil {
				return nil, loadErr
			}
			return header, payoutdomain.ErrInvalidStatus
		}
		return nil, err
	}

	header, err := s.loadStatement(ctx, statementID)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, header.WorkspaceID, "payout.cancelled", statementID, nil)
	if publishErr := s.outbox.Publish(ctx, events.Event{
		WorkspaceID: header.WorkspaceID,
		Type:        events.EventPayoutCancelled,
		Payload:     map[string]any{"statement_id": statementID.String()},
		DedupeKey:   "payout_cancelled:" + statementID.String(),
	}); publishErr != nil {
		s.log.Warn("payout cancelled event publish failed",
			zap.String("statement_id", statementID.String()),
			zap.Error(publishErr),
		)
	}
	return header, nil
}

func (s *Service) loadStatement(ctx context.Context, statementID snowflake.ID) (*payoutdomain.PayoutStatement, error) {
	var header payoutdomain.PayoutStatement
	err := s.db.WithContext(ctx).Raw(
		`SELECT * FROM payout_statements WHERE id = ?`,
		statementID,
	).Scan(&header).Error
	if err != nil {
		return nil, err
	}
	if header.ID == 0 {
		return nil, payoutdomain.ErrStatementNotFound
	}
	return &header, nil
}

func (s *Service) audit(ctx context.Context, workspaceID snowflake.ID, action string, statementID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := statementID.String()
	if err := s.auditSvc.AuditLog(ctx, &workspaceID, action, "payout_statement", &targetID, metadata); err != nil {
		s.log.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}
