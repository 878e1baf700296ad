package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/gridfare/gridfare/internal/billing/domain"
	"github.com/gridfare/gridfare/internal/clock"
	"github.com/gridfare/gridfare/internal/events"
	ledgerdomain "github.com/gridfare/gridfare/internal/ledger/domain"
	"github.com/gridfare/gridfare/internal/observability/metrics"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
	tariffdomain "github.com/gridfare/gridfare/internal/tariff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	TariffSvc tariffdomain.Service
	LedgerSvc ledgerdomain.Service
	Outbox    *events.Outbox
	Metrics   *metrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	tariffSvc tariffdomain.Service
	ledgerSvc ledgerdomain.Service
	outbox    *events.Outbox
	metrics   *metrics.BillingMetrics
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("billing.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		tariffSvc: p.TariffSvc,
		ledgerSvc: p.LedgerSvc,
		outbox:    p.Outbox,
		metrics:   p.Metrics,
	}
}

func (s *Service) StartSession(ctx context.Context, req billingdomain.StartSessionRequest) (*sessiondomain.ChargingSession, error) {
	if req.WorkspaceID == 0 {
		return nil, billingdomain.ErrInvalidWorkspace
	}
	if req.StationID == 0 {
		return nil, billingdomain.ErrInvalidStation
	}
	if req.EndUserID == 0 {
		return nil, billingdomain.ErrInvalidEndUser
	}

	now := s.clock.Now()
	record := &sessiondomain.ChargingSession{
		ID:            s.genID.Generate(),
		WorkspaceID:   req.WorkspaceID,
		StationID:     req.StationID,
		ConnectorID:   req.ConnectorID,
		EndUserID:     req.EndUserID,
		StartTime:     now,
		Status:        sessiondomain.SessionStatusActive,
		BillingStatus: sessiondomain.BillingStatusNotBilled,
		PaymentStatus: sessiondomain.PaymentStatusNone,
		RoamingType:   req.RoamingType,
		ClearingStatus: func() sessiondomain.ClearingStatus {
			if req.RoamingType != "" && req.RoamingType != sessiondomain.RoamingTypeNone {
				return sessiondomain.ClearingStatusPending
			}
			return sessiondomain.ClearingStatusNone
		}(),
		HubjectSessionID: req.HubjectSessionID,
		Currency:         "EUR",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if record.RoamingType == "" {
		record.RoamingType = sessiondomain.RoamingTypeNone
	}

	snapshot, err := s.snapshotTariff(ctx, req.WorkspaceID, req.StationID, req.ConnectorID, now)
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		if err := applySnapshot(record, snapshot); err != nil {
			return nil, err
		}
	} else {
		// Startable but unbillable until a tariff is assigned and
		// ResnapshotTariff is run.
		s.log.Warn("session started without active tariff",
			zap.String("workspace_id", req.WorkspaceID.String()),
			zap.String("station_id", req.StationID.String()),
		)
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// snapshotTariff resolves the active price list at the given instant and
// builds the frozen value object. A missing tariff is not an error here.
func (s *Service) snapshotTariff(
	ctx context.Context,
	workspaceID, stationID snowflake.ID,
	connectorID *snowflake.ID,
	at time.Time,
) (*sessiondomain.TariffSnapshot, error) {
	profile, err := s.tariffSvc.ResolveActiveTariff(ctx, workspaceID, stationID, connectorID, at)
	if err != nil {
		if errors.Is(err, tariffdomain.ErrNoActiveTariff) {
			return nil, nil
		}
		return nil, err
	}
	return &sessiondomain.TariffSnapshot{
		TariffProfileID:    profile.ID,
		TariffVersion:      profile.Version,
		BasePricePerKwh:    profile.BasePricePerKwh,
		PricePerMinute:     profile.PricePerMinute,
		SessionStartFee:    profile.SessionStartFee,
		PlatformFeePercent: profile.PlatformFeePercent,
		Currency:           profile.Currency,
		CapturedAt:         at,
	}, nil
}

func applySnapshot(record *sessiondomain.ChargingSession, snapshot *sessiondomain.TariffSnapshot) error {
	audit, err := snapshot.MarshalAudit()
	if err != nil {
		return err
	}
	profileID := snapshot.TariffProfileID
	version := snapshot.TariffVersion
	price := snapshot.BasePricePerKwh
	perMinute := snapshot.PricePerMinute
	startFee := snapshot.SessionStartFee
	feePercent := snapshot.PlatformFeePercent

	record.TariffProfileID = &profileID
	record.TariffVersion = &version
	record.BasePricePerKwh = &price
	record.PricePerMinute = &perMinute
	record.SessionStartFee = &startFee
	record.PlatformFeePercent = &feePercent
	record.Currency = snapshot.Currency
	record.TariffSnapshotJSON = audit
	return nil
}

func (s *Service) ResnapshotTariff(ctx context.Context, sessionID snowflake.ID) (*sessiondomain.ChargingSession, error) {
	record, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record.BillingStatus == sessiondomain.BillingStatusBilled {
		return nil, billingdomain.ErrAlreadyBilled
	}

	snapshot, err := s.snapshotTariff(ctx, record.WorkspaceID, record.StationID, record.ConnectorID, record.StartTime)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, tariffdomain.ErrNoActiveTariff
	}
	if err := applySnapshot(record, snapshot); err != nil {
		return nil, err
	}

	// Guarded write: a concurrent BillSession must not race a re-snapshot.
	result := s.db.WithContext(ctx).Exec(
		`UPDATE charging_sessions
		 SET tariff_profile_id = ?, tariff_version = ?, base_price_per_kwh = ?,
		     price_per_minute = ?, session_start_fee = ?, platform_fee_percent = ?,
		     currency = ?, tariff_snapshot_json = ?, updated_at = ?
		 WHERE id = ? AND billing_status = ?`,
		record.TariffProfileID,
		record.TariffVersion,
		record.BasePricePerKwh,
		record.PricePerMinute,
		record.SessionStartFee,
		record.PlatformFeePercent,
		record.Currency,
		record.TariffSnapshotJSON,
		time.Now().UTC(),
		sessionID,
		sessiondomain.BillingStatusNotBilled,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, billingdomain.ErrAlreadyBilled
	}
	return s.GetSession(ctx, sessionID)
}

func (s *Service) StopSession(ctx context.Context, req billingdomain.StopSessionRequest) (*sessiondomain.ChargingSession, error) {
	if req.EnergyKwh < 0 || req.DurationSeconds < 0 {
		return nil, billingdomain.ErrInvalidMeterData
	}

	now := s.clock.Now()
	result := s.db.WithContext(ctx).Exec(
		`UPDATE charging_sessions
		 SET status = ?, end_time = ?, energy_kwh = ?, duration_seconds = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		sessiondomain.SessionStatusCompleted,
		now,
		req.EnergyKwh,
		req.DurationSeconds,
		now,
		req.SessionID,
		sessiondomain.SessionStatusActive,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		record, err := s.GetSession(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		// A force-stop racing a natural stop loses here; the first writer
		// completed the session already.
		if record.Status == sessiondomain.SessionStatusCompleted {
			return record, billingdomain.ErrSessionNotActive
		}
		return nil, billingdomain.ErrSessionNotActive
	}

	record, err := s.BillSession(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, billingdomain.ErrMissingSnapshot) {
			s.log.Warn("session completed without tariff snapshot, left unbilled",
				zap.String("session_id", req.SessionID.String()),
			)
			return s.GetSession(ctx, req.SessionID)
		}
		return nil, err
	}
	return record, nil
}

func (s *Service) BillSession(ctx context.Context, sessionID snowflake.ID) (*sessiondomain.ChargingSession, error) {
	record, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record.Status != sessiondomain.SessionStatusCompleted {
		return nil, billingdomain.ErrSessionNotComplete
	}
	if record.BillingStatus == sessiondomain.BillingStatusBilled {
		return nil, billingdomain.ErrAlreadyBilled
	}

	snapshot := record.Snapshot()
	amounts, err := billingdomain.ComputeBillingAtStop(snapshot, record.EnergyKwh, record.DurationSeconds)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The NOT_BILLED guard makes the freeze exactly-once under
		// concurrent stop triggers.
		result := tx.WithContext(ctx).Exec(
			`UPDATE charging_sessions
			 SET gross_amount = ?, platform_fee_amount = ?, operator_earning_amount = ?,
			     billing_status = ?, billed_at = ?, updated_at = ?
			 WHERE id = ? AND billing_status = ? AND tariff_profile_id IS NOT NULL`,
			amounts.GrossAmount,
			amounts.PlatformFeeAmount,
			amounts.OperatorEarningAmount,
			sessiondomain.BillingStatusBilled,
			now,
			now,
			sessionID,
			sessiondomain.BillingStatusNotBilled,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return billingdomain.ErrAlreadyBilled
		}

		postings := []ledgerdomain.Posting{
			{AccountCode: ledgerdomain.AccountCodeAccountsReceivable, Direction: ledgerdomain.EntryDirectionDebit, Amount: billingdomain.Cents(amounts.GrossAmount)},
			{AccountCode: ledgerdomain.AccountCodePlatformRevenue, Direction: ledgerdomain.EntryDirectionCredit, Amount: billingdomain.Cents(amounts.PlatformFeeAmount)},
			{AccountCode: ledgerdomain.AccountCodeOperatorEarnings, Direction: ledgerdomain.EntryDirectionCredit, Amount: billingdomain.Cents(amounts.OperatorEarningAmount)},
		}
		if err := s.ledgerSvc.PostTx(ctx, tx, record.WorkspaceID, ledgerdomain.SourceTypeSessionBilled, sessionID, amounts.Currency, now, postings); err != nil {
			return err
		}

		payload := events.SessionBilledPayload{
			SessionID:             sessionID.String(),
			WorkspaceID:           record.WorkspaceID.String(),
			GrossAmount:           amounts.GrossAmount,
			PlatformFeeAmount:     amounts.PlatformFeeAmount,
			OperatorEarningAmount: amounts.OperatorEarningAmount,
			Currency:              amounts.Currency,
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			WorkspaceID: record.WorkspaceID,
			Type:        events.EventSessionBilled,
			Payload:     payload.ToMap(),
			DedupeKey:   "session_billed:" + sessionID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncSessionBilled(amounts.Currency)
	}
	return s.GetSession(ctx, sessionID)
}

func (s *Service) GetSession(ctx context.Context, sessionID snowflake.ID) (*sessiondomain.ChargingSession, error) {
	var record sessiondomain.ChargingSession
	err := s.db.WithContext(ctx).Raw(
		`SELECT * FROM charging_sessions WHERE id = ?`,
		sessionID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, billingdomain.ErrSessionNotFound
	}
	return &record, nil
}
