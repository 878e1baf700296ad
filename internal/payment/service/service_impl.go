package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/gridfare/gridfare/internal/audit/domain"
	billingdomain "github.com/gridfare/gridfare/internal/billing/domain"
	"github.com/gridfare/gridfare/internal/clock"
	"github.com/gridfare/gridfare/internal/config"
	"github.com/gridfare/gridfare/internal/events"
	ledgerdomain "github.com/gridfare/gridfare/internal/ledger/domain"
	"github.com/gridfare/gridfare/internal/observability/metrics"
	"github.com/gridfare/gridfare/internal/payment/adapters"
	paymentdomain "github.com/gridfare/gridfare/internal/payment/domain"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Cfg       config.Config
	LedgerSvc ledgerdomain.Service
	AuditSvc  auditdomain.Service
	Repo      paymentdomain.Repository
	Adapters  *adapters.Registry
	Processor paymentdomain.Processor
	Outbox    *events.Outbox
	Metrics   *metrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	cfg       config.Config
	ledgerSvc ledgerdomain.Service
	auditSvc  auditdomain.Service
	repo      paymentdomain.Repository
	adapters  *adapters.Registry
	processor paymentdomain.Processor
	outbox    *events.Outbox
	metrics   *metrics.BillingMetrics
}

// captureClaimTTL bounds how long a capture claim blocks rivals. It must
// outlive the processor call timeout so a slow capture is never raced by a
// retry that reclaims mid-flight.
const captureClaimTTL = time.Minute

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payment.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		cfg:       p.Cfg,
		ledgerSvc: p.LedgerSvc,
		auditSvc:  p.AuditSvc,
		repo:      p.Repo,
		adapters:  p.Adapters,
		processor: p.Processor,
		outbox:    p.Outbox,
		metrics:   p.Metrics,
	}
}

func (s *Service) CreateHold(ctx context.Context, req paymentdomain.CreateHoldRequest) (*sessiondomain.ChargingSession, error) {
	if req.AmountEur <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}

	record, err := s.loadSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = record.Currency
	}

	now := s.clock.Now()

	// Claim the slot before calling out: NONE -> HOLD_PENDING. A second
	// concurrent CreateHold loses the conditional update and never reaches
	// the processor.
	result := s.db.WithContext(ctx).Exec(
		`UPDATE charging_sessions
		 SET payment_status = ?, updated_at = ?
		 WHERE id = ? AND payment_status = ?`,
		sessiondomain.PaymentStatusHoldPending,
		now,
		req.SessionID,
		sessiondomain.PaymentStatusNone,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		current, err := s.loadSession(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		if current.PaymentStatus.Terminal() {
			return current, paymentdomain.ErrPaymentTerminal
		}
		return current, paymentdomain.ErrHoldAlreadyOpen
	}
	s.incTransition(sessiondomain.PaymentStatusHoldPending)

	holdCents := billingdomain.Cents(req.AmountEur)
	hold, err := s.processor.CreateHold(ctx, paymentdomain.HoldRequest{
		AmountCents:    holdCents,
		Currency:       currency,
		EndUserRef:     record.EndUserID.String(),
		SessionRef:     record.ID.String(),
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return s.failHold(ctx, req.SessionID, err)
	}

	result = s.db.WithContext(ctx).Exec(
		`UPDATE charging_sessions
		 SET payment_status = ?, stripe_payment_intent_id = ?, hold_amount_cents = ?,
		     payment_last_error_code = NULL, payment_last_error_message = NULL, updated_at = ?
		 WHERE id = ? AND payment_status = ?`,
		sessiondomain.PaymentStatusHoldOK,
		hold.IntentID,
		holdCents,
		s.clock.Now(),
		req.SessionID,
		sessiondomain.PaymentStatusHoldPending,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// A webhook or the hold reaper advanced the session first; the
		// persisted state wins.
		s.log.Warn("hold succeeded but session state moved on",
			zap.String("session_id", req.SessionID.String()),
			zap.String("intent_id", hold.IntentID),
		)
		return s.loadSession(ctx, req.SessionID)
	}
	s.incTransition(sessiondomain.PaymentStatusHoldOK)

	s.audit(ctx, record.WorkspaceID, "payment.hold_created", record.ID, map[string]any{
		"intent_id":         hold.IntentID,
		"hold_amount_cents": holdCents,
		"currency":          currency,
	})
	return s.loadSession(ctx, req.SessionID)
}

// failHold records a processor decline or outage as a terminal FAILED state
// and returns the structured error to the caller.
func (s *Service) failHold(ctx context.Context, sessionID snowflake.ID, cause error) (*sessiondomain.ChargingSession, error) {
	code := "processor_unavailable"
	message := cause.Error()
	outcome := paymentdomain.ErrProcessorUnavailable

	var decline *paymentdomain.ProcessorError
	if errors.As(cause, &decline) {
		code = decline.Code
		message = decline.Message
		outcome = paymentdomain.ErrProcessorDeclined
	}

	result := s.db.WithContext(ctx).Exec(
		`UPDATE charging_sessions
		 SET payment_status = ?, payment_last_error_code = ?, payment_last_error_message = ?, updated_at = ?
		 WHERE id = ? AND payment_status = ?`,
		sessiondomain.PaymentStatusFailed,
		code,
		message,
		s.clock.Now(),
		sessionID,
		sessiondomain.PaymentStatusHoldPending,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		s.incTransition(sessiondomain.PaymentStatusFailed)
	}

	record, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return record, fmt.Errorf("%w: %s", outcome, message)
}

func (s *Service) CaptureHold(ctx context.Context, sessionID snowflake.ID, amountEur *float64) (*sessiondomain.ChargingSession, error) {
	record, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch record.PaymentStatus {
	case sessiondomain.PaymentStatusCaptured:
		// Idempotent success, no second processor call.
		return record, paymentdomain.ErrAlreadyCaptured
	case sessiondomain.PaymentStatusHoldOK:
	default:
		if record.PaymentStatus.Terminal() {
			return record, paymentdomain.ErrPaymentTerminal
		}
		return record, paymentdomain.ErrNoOpenHold
	}

	if record.StripePaymentIntentID == nil || *record.StripePaymentIntentID == "" {
		return record, paymentdomain.ErrMissingIntent
	}
	if record.HoldAmountCents == nil {
		return record, paymentdomain.ErrMissingIntent
	}

	var captureCents int64
	switch {
	case amountEur != nil:
		if *amountEur <= 0 {
			return record, paymentdomain.ErrInvalidAmount
		}
		captureCents = billingdomain.Cents(*amountEur)
	case record.GrossAmount != nil:
		captureCents = billingdomain.Cents(*record.GrossAmount)
	default:
		return record, paymentdomain.ErrSessionNotBilled
	}

	if captureCents > *record.HoldAmountCents {
		return s.failCaptureExceedsHold(ctx, record, captureCents)
	}

	// Claim the capture window before calling out, like CreateHold's
	// NONE -> HOLD_PENDING claim: a concurrent capture loses this update and
	// never reaches the processor. The status stays HOLD_OK, so a claim
	// orphaned by a crash simply expires and the capture can be retried.
	now := s.clock.Now()
	claim := s.db.WithContext(ctx).Exec(
		`UPDATE charging_sessions
		 SET capture_claimed_at = ?, updated_at = ?
		 WHERE id = ? AND payment_status = ?
		   AND (capture_claimed_at IS NULL OR capture_claimed_at < ?)`,
		now,
		now,
		record.ID,
		sessiondomain.PaymentStatusHoldOK,
		now.Add(-captureClaimTTL),
	)
	if claim.Error != nil {
		return nil, claim.Error
	}
	if claim.RowsAffected == 0 {
		current, err := s.loadSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		switch {
		case current.PaymentStatus == sessiondomain.PaymentStatusCaptured:
			return current, paymentdomain.ErrAlreadyCaptured
		case current.PaymentStatus.Terminal():
			return current, paymentdomain.ErrPaymentTerminal
		default:
			return current, paymentdomain.ErrCaptureInFlight
		}
	}

	capture, err := s.processor.Capture(ctx, *record.StripePaymentIntentID, captureCents)
	if err != nil {
		return s.failCapture(ctx, sessionID, err)
	}

	return s.settleCapture(ctx, record, capture.CapturedAmountCents)
}

func (s *Service) failCaptureExceedsHold(ctx context.Context, record *sessiondomain.ChargingSession, captureCents int64) (*sessiondomain.ChargingSession, error) {
	message := fmt.Sprintf("capture of %d cents exceeds hold of %d cents", captureCents, *record.HoldAmountCents)
	result := s.db.WithContext(ctx).Exec(
		`UPDATE charging_sessions
		 SET payment_status = ?, payment_last_error_code = ?, payment_last_error_message = ?, updated_at = ?
		 WHERE id = ? AND payment_status = ?`,
		sessiondomain.PaymentStatusPartialFailed,
		"capture_exceeds_hold",
		message,
		s.clock.Now(),
		record.ID,
		sessiondomain.PaymentStatusHoldOK,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		s.incTransition(sessiondomain.PaymentStatusPartialFailed)
		s.audit(ctx, record.WorkspaceID, "payment.capture_exceeds_hold", record.ID, map[string]any{
			"capture_amount_cents": captureCents,
			"hold_amount_cents":    *record.HoldAmountCents,
		})
	}

	current, err := s.loadSession(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	return current, paymentdomain.ErrCaptureExceedsHold
}

func (s *Service) failCapture(ctx context.Context, sessionID snowflake.ID, cause error) (*sessiondomain.ChargingSession, error) {
	code := "processor_unavailable"
	message := cause.Error()
	outcome := paymentdomain.ErrProcessorUnavailable

	var decline *paymentdomain.ProcessorError
	if errors.As(cause, &decline) {
		code = decline.Code
		message = decline.Message
		outcome = paymentdomain.ErrProcessorDeclined
	}

	result := s.db.WithContext(ctx).Exec(
		`UPDATE charging_sessions
		 SET payment_status = ?, payment_last_error_code = ?, payment_last_error_message = ?, updated_at = ?
		 WHERE id = ? AND payment_status = ?`,
		sessiondomain.PaymentStatusFailed,
		code,
		message,
		s.clock.Now(),
		sessionID,
		sessiondomain.PaymentStatusHoldOK,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		s.incTransition(sessiondomain.PaymentStatusFailed)
	}

	record, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return record, fmt.Errorf("%w: %s", outcome, message)
}

// settleCapture persists CAPTURED plus the processor-reported amount, posts
// the cash movement, and emits the event, all in one transaction. The ledger
// dedupe on (source_type, source_id) keeps a racing webhook from posting the
// same capture twice.
func (s *Service) settleCapture(ctx context.Context, record *sessiondomain.ChargingSession, capturedCents int64) (*sessiondomain.ChargingSession, error) {
	now := s.clock.Now()
	advanced := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).Exec(
			`UPDATE charging_sessions
			 SET payment_status = ?, captured_amount_cents = ?, paid_at = ?,
			     payment_last_error_code = NULL, payment_last_error_message = NULL, updated_at = ?
			 WHERE id = ? AND payment_status = ?`,
			sessiondomain.PaymentStatusCaptured,
			capturedCents,
			now,
			now,
			record.ID,
			sessiondomain.PaymentStatusHoldOK,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// The webhook applier got there first; it owns the ledger
			// entry and the event in that case.
			return nil
		}
		advanced = true

		if err := s.postCapture(ctx, tx, record.WorkspaceID, record.ID, record.Currency, capturedCents, now); err != nil {
			return err
		}
		return s.publishCaptured(ctx, tx, record, capturedCents)
	})
	if err != nil {
		return nil, err
	}

	if advanced {
		s.incTransition(sessiondomain.PaymentStatusCaptured)
		s.audit(ctx, record.WorkspaceID, "payment.captured", record.ID, map[string]any{
			"captured_amount_cents": capturedCents,
		})
	}
	return s.loadSession(ctx, record.ID)
}

func (s *Service) postCapture(ctx context.Context, tx *gorm.DB, workspaceID, sessionID snowflake.ID, currency string, capturedCents int64, occurredAt time.Time) error {
	postings := []ledgerdomain.Posting{
		{AccountCode: ledgerdomain.AccountCodeCashClearing, Direction: ledgerdomain.EntryDirectionDebit, Amount: capturedCents},
		{AccountCode: ledgerdomain.AccountCodeAccountsReceivable, Direction: ledgerdomain.EntryDirectionCredit, Amount: capturedCents},
	}
	return s.ledgerSvc.PostTx(ctx, tx, workspaceID, ledgerdomain.SourceTypePaymentCapture, sessionID, currency, occurredAt, postings)
}

func (s *Service) publishCaptured(ctx context.Context, tx *gorm.DB, record *sessiondomain.ChargingSession, capturedCents int64) error {
	return s.outbox.PublishTx(ctx, tx, events.Event{
		WorkspaceID: record.WorkspaceID,
		Type:        events.EventPaymentCaptured,
		Payload: map[string]any{
			"session_id":            record.ID.String(),
			"captured_amount_cents": capturedCents,
			"currency":              record.Currency,
		},
		DedupeKey: "payment_captured:" + record.ID.String(),
	})
}

func (s *Service) CancelHold(ctx context.Context, sessionID snowflake.ID) (*sessiondomain.ChargingSession, error) {
	record, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch record.PaymentStatus {
	case sessiondomain.PaymentStatusHoldOK, sessiondomain.PaymentStatusHoldPending:
	default:
		if record.PaymentStatus.Terminal() {
			return record, paymentdomain.ErrPaymentTerminal
		}
		return record, paymentdomain.ErrNoOpenHold
	}

	if record.StripePaymentIntentID != nil && *record.StripePaymentIntentID != "" {
		if err := s.processor.Cancel(ctx, *record.StripePaymentIntentID); err != nil {
			return record, err
		}
	}

	result := s.db.WithContext(ctx).Exec(
		`UPDATE charging_sessions
		 SET payment_status = ?, updated_at = ?
		 WHERE id = ? AND payment_status IN (?, ?)`,
		sessiondomain.PaymentStatusCancelled,
		s.clock.Now(),
		sessionID,
		sessiondomain.PaymentStatusHoldPending,
		sessiondomain.PaymentStatusHoldOK,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		s.incTransition(sessiondomain.PaymentStatusCancelled)
		s.audit(ctx, record.WorkspaceID, "payment.hold_cancelled", record.ID, nil)
	}
	return s.loadSession(ctx, sessionID)
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	if s.adapters == nil || !s.adapters.ProviderExists(provider) {
		return paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		s.incWebhook("invalid")
		return paymentdomain.ErrInvalidPayload
	}

	adapter, err := s.adapters.NewAdapter(provider, paymentdomain.AdapterConfig{
		Provider:      provider,
		WebhookSecret: s.cfg.StripeWebhookSecret,
	})
	if err != nil {
		return err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.incWebhook("invalid")
		return err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return nil
		}
		s.incWebhook("invalid")
		return err
	}

	now := s.clock.Now()
	received := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		PaymentIntentID: event.PaymentIntentID,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			s.incWebhook("duplicate")
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	if _, err := s.ApplyWebhookEvent(ctx, event); err != nil {
		return err
	}

	return s.repo.MarkProcessed(ctx, s.db, stored.ID, now)
}

// ApplyWebhookEvent moves the matched session forward. The conditional
// updates are the idempotency mechanism: an event proposing a state already
// reached, or one less advanced than the persisted state, changes no rows.
func (s *Service) ApplyWebhookEvent(ctx context.Context, event *paymentdomain.PaymentEvent) (bool, error) {
	if event == nil || strings.TrimSpace(event.PaymentIntentID) == "" {
		return false, paymentdomain.ErrInvalidEvent
	}

	record, err := s.findSessionByIntent(ctx, event.PaymentIntentID)
	if err != nil {
		return false, err
	}
	if record == nil {
		// Not fatal: the intent may belong to another deployment or to
		// seeded test data on the provider side.
		s.log.Warn("webhook event matched no session",
			zap.String("provider", event.Provider),
			zap.String("intent_id", event.PaymentIntentID),
		)
		s.incWebhook("unknown_intent")
		return false, nil
	}

	switch event.Type {
	case paymentdomain.EventTypePaymentSucceeded:
		return s.applySucceeded(ctx, record, event)
	case paymentdomain.EventTypePaymentFailed:
		return s.applyFailed(ctx, record, event)
	default:
		return false, paymentdomain.ErrInvalidEvent
	}
}

func (s *Service) applySucceeded(ctx context.Context, record *sessiondomain.ChargingSession, event *paymentdomain.PaymentEvent) (bool, error) {
	now := s.clock.Now()
	capturedCents := event.AmountCents

	advanced := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).Exec(
			`UPDATE charging_sessions
			 SET payment_status = ?, captured_amount_cents = ?, paid_at = ?,
			     payment_last_error_code = NULL, payment_last_error_message = NULL, updated_at = ?
			 WHERE id = ? AND payment_status IN (?, ?, ?)`,
			sessiondomain.PaymentStatusCaptured,
			capturedCents,
			now,
			now,
			record.ID,
			sessiondomain.PaymentStatusNone,
			sessiondomain.PaymentStatusHoldPending,
			sessiondomain.PaymentStatusHoldOK,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		advanced = true

		if err := s.postCapture(ctx, tx, record.WorkspaceID, record.ID, record.Currency, capturedCents, now); err != nil {
			return err
		}
		return s.publishCaptured(ctx, tx, record, capturedCents)
	})
	if err != nil {
		return false, err
	}

	if advanced {
		s.incTransition(sessiondomain.PaymentStatusCaptured)
		s.incWebhook("processed")
	} else {
		s.incWebhook("duplicate")
	}
	return advanced, nil
}

func (s *Service) applyFailed(ctx context.Context, record *sessiondomain.ChargingSession, event *paymentdomain.PaymentEvent) (bool, error) {
	code := event.ErrorCode
	if code == "" {
		code = "payment_failed"
	}

	// A failure event never undoes a capture or any other terminal state.
	result := s.db.WithContext(ctx).Exec(
		`UPDATE charging_sessions
		 SET payment_status = ?, payment_last_error_code = ?, payment_last_error_message = ?, updated_at = ?
		 WHERE id = ? AND payment_status IN (?, ?, ?)`,
		sessiondomain.PaymentStatusFailed,
		code,
		event.ErrorMessage,
		s.clock.Now(),
		record.ID,
		sessiondomain.PaymentStatusNone,
		sessiondomain.PaymentStatusHoldPending,
		sessiondomain.PaymentStatusHoldOK,
	)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		s.incWebhook("duplicate")
		return false, nil
	}

	s.incTransition(sessiondomain.PaymentStatusFailed)
	s.incWebhook("processed")

	if err := s.outbox.Publish(ctx, events.Event{
		WorkspaceID: record.WorkspaceID,
		Type:        events.EventPaymentFailed,
		Payload: map[string]any{
			"session_id":    record.ID.String(),
			"error_code":    code,
			"error_message": event.ErrorMessage,
		},
		DedupeKey: "payment_failed:" + record.ID.String() + ":" + event.ProviderEventID,
	}); err != nil {
		s.log.Warn("payment failed event publish failed",
			zap.String("session_id", record.ID.String()),
			zap.Error(err),
		)
	}
	return true, nil
}

func (s *Service) loadSession(ctx context.Context, sessionID snowflake.ID) (*sessiondomain.ChargingSession, error) {
	var record sessiondomain.ChargingSession
	err := s.db.WithContext(ctx).Raw(
		`SELECT * FROM charging_sessions WHERE id = ?`,
		sessionID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, paymentdomain.ErrSessionNotFound
	}
	return &record, nil
}

func (s *Service) findSessionByIntent(ctx context.Context, intentID string) (*sessiondomain.ChargingSession, error) {
	var record sessiondomain.ChargingSession
	err := s.db.WithContext(ctx).Raw(
		`SELECT * FROM charging_sessions WHERE stripe_payment_intent_id = ?`,
		intentID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
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

func (s *Service) incTransition(to sessiondomain.PaymentStatus) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncPaymentTransition(string(to))
}

func (s *Service) incWebhook(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncWebhookEvent(outcome)
}
