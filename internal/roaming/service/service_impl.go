package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/gridfare/gridfare/internal/audit/domain"
	"github.com/gridfare/gridfare/internal/clock"
	"github.com/gridfare/gridfare/internal/events"
	"github.com/gridfare/gridfare/internal/observability/metrics"
	roamingdomain "github.com/gridfare/gridfare/internal/roaming/domain"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Tolerance band for CDR-vs-session comparison. Divergence within the band
// is clearing-house rounding noise; beyond it a human decides.
const (
	amountToleranceEur   = 0.05
	energyToleranceKwh   = 0.1
	durationToleranceSec = 60
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	AuditSvc auditdomain.Service
	Outbox   *events.Outbox
	Metrics  *metrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	auditSvc auditdomain.Service
	outbox   *events.Outbox
	metrics  *metrics.BillingMetrics
}

func NewService(p Params) roamingdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("roaming.service"),
		clock:    p.Clock,
		auditSvc: p.AuditSvc,
		outbox:   p.Outbox,
		metrics:  p.Metrics,
	}
}

func (s *Service) MatchCDR(ctx context.Context, cdr roamingdomain.CDR) (*sessiondomain.ChargingSession, error) {
	hubjectID := strings.TrimSpace(cdr.HubjectSessionID)
	if hubjectID == "" || cdr.GrossAmount < 0 || cdr.EnergyKwh < 0 || cdr.DurationSeconds < 0 {
		return nil, roamingdomain.ErrInvalidCDR
	}

	record, err := s.findByHubjectID(ctx, hubjectID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		// External delivery can race ahead of session creation; the
		// caller retries later.
		return nil, roamingdomain.ErrSessionNotFound
	}
	if record.RoamingType == sessiondomain.RoamingTypeNone {
		return record, roamingdomain.ErrNotRoaming
	}
	if record.ClearingStatus == sessiondomain.ClearingStatusMatched {
		// A second CDR never silently re-applies different numbers.
		s.incResult("rejected")
		return record, roamingdomain.ErrAlreadyMatched
	}

	if reason := divergence(record, cdr); reason != "" {
		return s.dispute(ctx, record, reason)
	}
	return s.match(ctx, record, cdr)
}

// divergence names the first field outside the tolerance band, empty when
// the CDR agrees with the session.
func divergence(record *sessiondomain.ChargingSession, cdr roamingdomain.CDR) string {
	if delta := math.Abs(cdr.EnergyKwh - record.EnergyKwh); delta > energyToleranceKwh {
		return fmt.Sprintf("energy_kwh diverges by %.3f kWh (cdr %.3f, session %.3f)",
			delta, cdr.EnergyKwh, record.EnergyKwh)
	}
	if delta := cdr.DurationSeconds - record.DurationSeconds; delta > durationToleranceSec || delta < -durationToleranceSec {
		return fmt.Sprintf("duration_seconds diverges by %ds (cdr %d, session %d)",
			delta, cdr.DurationSeconds, record.DurationSeconds)
	}
	sessionGross := 0.0
	if record.GrossAmount != nil {
		sessionGross = *record.GrossAmount
	}
	if delta := math.Abs(cdr.GrossAmount - sessionGross); delta > amountToleranceEur {
		return fmt.Sprintf("gross_amount diverges by %.2f (cdr %.2f, session %.2f)",
			delta, cdr.GrossAmount, sessionGross)
	}
	return ""
}

func (s *Service) match(ctx context.Context, record *sessiondomain.ChargingSession, cdr roamingdomain.CDR) (*sessiondomain.ChargingSession, error) {
	result := s.db.WithContext(ctx).Exec(
		`UPDATE charging_sessions
		 SET clearing_status = ?, roaming_gross_amount = ?, roaming_net_amount = ?,
		     dispute_reason = NULL, updated_at = ?
		 WHERE id = ? AND clearing_status IN (?, ?)`,
		sessiondomain.ClearingStatusMatched,
		cdr.GrossAmount,
		cdr.NetAmount,
		s.clock.Now(),
		record.ID,
		sessiondomain.ClearingStatusPending,
		sessiondomain.ClearingStatusDisputed,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		current, err := s.findByID(ctx, record.ID)
		if err != nil {
			return nil, err
		}
		s.incResult("rejected")
		return current, roamingdomain.ErrAlreadyMatched
	}

	s.incResult("matched")
	s.audit(ctx, record.WorkspaceID, "cdr.matched", record.ID, map[string]any{
		"hubject_session_id": cdr.HubjectSessionID,
		"roaming_gross":      cdr.GrossAmount,
		"roaming_net":        cdr.NetAmount,
	})
	s.publish(ctx, record, events.EventCDRMatched, map[string]any{
		"session_id":    record.ID.String(),
		"roaming_gross": cdr.GrossAmount,
		"roaming_net":   cdr.NetAmount,
	})
	return s.findByID(ctx, record.ID)
}

func (s *Service) dispute(ctx context.Context, record *sessiondomain.ChargingSession, reason string) (*sessiondomain.ChargingSession, error) {
	// The session's own figures stay untouched; only the reason lands.
	result := s.db.WithContext(ctx).Exec(
		`UPDATE charging_sessions
		 SET clearing_status = ?, dispute_reason = ?, updated_at = ?
		 WHERE id = ? AND clearing_status = ?`,
		sessiondomain.ClearingStatusDisputed,
		reason,
		s.clock.Now(),
		record.ID,
		sessiondomain.ClearingStatusPending,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		current, err := s.findByID(ctx, record.ID)
		if err != nil {
			return nil, err
		}
		if current.ClearingStatus == sessiondomain.ClearingStatusMatched {
			s.incResult("rejected")
			return current, roamingdomain.ErrAlreadyMatched
		}
		return current, nil
	}

	s.incResult("disputed")
	s.audit(ctx, record.WorkspaceID, "cdr.disputed", record.ID, map[string]any{
		"dispute_reason": reason,
	})
	s.publish(ctx, record, events.EventCDRDisputed, map[string]any{
		"session_id":     record.ID.String(),
		"dispute_reason": reason,
	})
	return s.findByID(ctx, record.ID)
}

func (s *Service) ResolveDispute(ctx context.Context, sessionID snowflake.ID, acceptCDR bool) (*sessiondomain.ChargingSession, error) {
	record, err := s.findByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, roamingdomain.ErrSessionNotFound
	}
	if record.ClearingStatus != sessiondomain.ClearingStatusDisputed {
		return record, roamingdomain.ErrNotDisputed
	}

	if acceptCDR {
		// The CDR amounts were never stored for a disputed session, so
		// acceptance needs a fresh CDR delivery; resolution just reopens
		// the slot.
		result := s.db.WithContext(ctx).Exec(
			`UPDATE charging_sessions
			 SET clearing_status = ?, dispute_reason = NULL, updated_at = ?
			 WHERE id = ? AND clearing_status = ?`,
			sessiondomain.ClearingStatusPending,
			s.clock.Now(),
			sessionID,
			sessiondomain.ClearingStatusDisputed,
		)
		if result.Error != nil {
			return nil, result.Error
		}
		s.audit(ctx, record.WorkspaceID, "cdr.dispute_reopened", sessionID, nil)
		return s.findByID(ctx, sessionID)
	}

	// Keep the session's own figures and settle on them.
	result := s.db.WithContext(ctx).Exec(
		`UPDATE charging_sessions
		 SET clearing_status = ?, roaming_gross_amount = gross_amount,
		     roaming_net_amount = operator_earning_amount, dispute_reason = NULL, updated_at = ?
		 WHERE id = ? AND clearing_status = ?`,
		sessiondomain.ClearingStatusMatched,
		s.clock.Now(),
		sessionID,
		sessiondomain.ClearingStatusDisputed,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	s.audit(ctx, record.WorkspaceID, "cdr.dispute_resolved", sessionID, map[string]any{
		"accepted_cdr": false,
	})
	return s.findByID(ctx, sessionID)
}

func (s *Service) findByHubjectID(ctx context.Context, hubjectID string) (*sessiondomain.ChargingSession, error) {
	var record sessiondomain.ChargingSession
	err := s.db.WithContext(ctx).Raw(
		`SELECT * FROM charging_sessions WHERE hubject_session_id = ?`,
		hubjectID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (s *Service) findByID(ctx context.Context, sessionID snowflake.ID) (*sessiondomain.ChargingSession, error) {
	var record sessiondomain.ChargingSession
	err := s.db.WithContext(ctx).Raw(
		`SELECT * FROM charging_sessions WHERE id = ?`,
		sessionID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, roamingdomain.ErrSessionNotFound
	}
	return &record, nil
}

func (s *Service) audit(ctx context.Context, workspaceID snowflake.ID, action string, sessionID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := sessionID.String()
	if err := s.auditSvc.AuditLog(ctx, &workspaceID, action, "charging_session", &targetID, metadata); err != nil {
		s.log.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, record *sessiondomain.ChargingSession, eventType string, payload map[string]any) {
	if err := s.outbox.Publish(ctx, events.Event{
		WorkspaceID: record.WorkspaceID,
		Type:        eventType,
		Payload:     payload,
		DedupeKey:   eventType + ":" + record.ID.String(),
	}); err != nil {
		s.log.Warn("roaming event publish failed",
			zap.String("session_id", record.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) incResult(result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncCDRResult(result)
}
