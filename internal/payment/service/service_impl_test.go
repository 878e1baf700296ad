package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gridfare/gridfare/internal/clock"
	"github.com/gridfare/gridfare/internal/config"
	"github.com/gridfare/gridfare/internal/events"
	ledgerdomain "github.com/gridfare/gridfare/internal/ledger/domain"
	ledgerservice "github.com/gridfare/gridfare/internal/ledger/service"
	"github.com/gridfare/gridfare/internal/migration"
	"github.com/gridfare/gridfare/internal/payment/adapters"
	stripeadapter "github.com/gridfare/gridfare/internal/payment/adapters/stripe"
	paymentdomain "github.com/gridfare/gridfare/internal/payment/domain"
	"github.com/gridfare/gridfare/internal/payment/repository"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test"

type fakeProcessor struct {
	holdCalls    int
	captureCalls int
	cancelCalls  int

	holdErr    error
	captureErr error
	cancelErr  error

	intentID        string
	capturedCents   int64
	reportDifferent bool
}

func (f *fakeProcessor) CreateHold(ctx context.Context, req paymentdomain.HoldRequest) (*paymentdomain.HoldResult, error) {
	f.holdCalls++
	if f.holdErr != nil {
		return nil, f.holdErr
	}
	intent := f.intentID
	if intent == "" {
		intent = "pi_test_1"
	}
	return &paymentdomain.HoldResult{IntentID: intent}, nil
}

func (f *fakeProcessor) Capture(ctx context.Context, intentID string, amountCents int64) (*paymentdomain.CaptureResult, error) {
	f.captureCalls++
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	captured := amountCents
	if f.reportDifferent {
		captured = f.capturedCents
	}
	return &paymentdomain.CaptureResult{CapturedAmountCents: captured}, nil
}

func (f *fakeProcessor) Cancel(ctx context.Context, intentID string) error {
	f.cancelCalls++
	return f.cancelErr
}

type paymentFixture struct {
	svc       *Service
	db        *gorm.DB
	node      *snowflake.Node
	processor *fakeProcessor
	ledgerSvc ledgerdomain.Service
}

func setupPaymentTest(t *testing.T) *paymentFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("unwrap sql db: %v", err)
	}
	if err := migration.RunMigrations(sqlDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}
	log := zap.NewNop()
	processor := &fakeProcessor{}
	ledgerSvc := ledgerservice.NewService(ledgerservice.ServiceParam{DB: conn, Log: log, GenID: node})

	svc := &Service{
		db:        conn,
		log:       log,
		genID:     node,
		clock:     clock.SystemClock{},
		cfg:       config.Config{StripeWebhookSecret: testWebhookSecret},
		ledgerSvc: ledgerSvc,
		repo:      repository.Provide(),
		adapters:  adapters.NewRegistry(stripeadapter.NewFactory()),
		processor: processor,
		outbox:    events.NewOutbox(conn, node),
	}
	return &paymentFixture{svc: svc, db: conn, node: node, processor: processor, ledgerSvc: ledgerSvc}
}

// seedBilledSession inserts a completed, billed session ready for payment.
func (f *paymentFixture) seedBilledSession(t *testing.T, gross float64) *sessiondomain.ChargingSession {
	t.Helper()
	now := time.Now().UTC()
	end := now.Add(-time.Minute)
	fee := gross * 0.15
	earning := gross - fee
	record := &sessiondomain.ChargingSession{
		ID:                    f.node.Generate(),
		WorkspaceID:           1,
		StationID:             10,
		EndUserID:             5,
		StartTime:             now.Add(-time.Hour),
		EndTime:               &end,
		EnergyKwh:             10,
		DurationSeconds:       1800,
		Status:                sessiondomain.SessionStatusCompleted,
		BillingStatus:         sessiondomain.BillingStatusBilled,
		PaymentStatus:         sessiondomain.PaymentStatusNone,
		Currency:              "EUR",
		GrossAmount:           &gross,
		PlatformFeeAmount:     &fee,
		OperatorEarningAmount: &earning,
		BilledAt:              &end,
		RoamingType:           sessiondomain.RoamingTypeNone,
		ClearingStatus:        sessiondomain.ClearingStatusNone,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := f.db.Create(record).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return record
}

func (f *paymentFixture) holdSession(t *testing.T, gross, holdEur float64) *sessiondomain.ChargingSession {
	t.Helper()
	record := f.seedBilledSession(t, gross)
	held, err := f.svc.CreateHold(context.Background(), paymentdomain.CreateHoldRequest{
		SessionID: record.ID,
		AmountEur: holdEur,
	})
	if err != nil {
		t.Fatalf("create hold: %v", err)
	}
	return held
}

func TestCreateHold(t *testing.T) {
	f := setupPaymentTest(t)
	record := f.seedBilledSession(t, 45.00)

	held, err := f.svc.CreateHold(context.Background(), paymentdomain.CreateHoldRequest{
		SessionID: record.ID,
		AmountEur: 50.00,
	})
	if err != nil {
		t.Fatalf("create hold: %v", err)
	}
	if held.PaymentStatus != sessiondomain.PaymentStatusHoldOK {
		t.Fatalf("expected HOLD_OK, got %s", held.PaymentStatus)
	}
	if held.StripePaymentIntentID == nil || *held.StripePaymentIntentID != "pi_test_1" {
		t.Fatalf("expected stored intent, got %v", held.StripePaymentIntentID)
	}
	if held.HoldAmountCents == nil || *held.HoldAmountCents != 5000 {
		t.Fatalf("expected hold 5000 cents, got %v", held.HoldAmountCents)
	}
	if f.processor.holdCalls != 1 {
		t.Fatalf("expected one processor call, got %d", f.processor.holdCalls)
	}
}

func TestCreateHoldDeclined(t *testing.T) {
	f := setupPaymentTest(t)
	record := f.seedBilledSession(t, 45.00)
	f.processor.holdErr = &paymentdomain.ProcessorError{Code: "card_declined", Message: "insufficient funds"}

	failed, err := f.svc.CreateHold(context.Background(), paymentdomain.CreateHoldRequest{
		SessionID: record.ID,
		AmountEur: 50.00,
	})
	if !errors.Is(err, paymentdomain.ErrProcessorDeclined) {
		t.Fatalf("expected declined, got %v", err)
	}
	if failed.PaymentStatus != sessiondomain.PaymentStatusFailed {
		t.Fatalf("expected FAILED, got %s", failed.PaymentStatus)
	}
	if failed.PaymentLastErrorCode == nil || *failed.PaymentLastErrorCode != "card_declined" {
		t.Fatalf("expected decline code stored, got %v", failed.PaymentLastErrorCode)
	}
}

func TestCreateHoldProcessorDown(t *testing.T) {
	f := setupPaymentTest(t)
	record := f.seedBilledSession(t, 45.00)
	f.processor.holdErr = fmt.Errorf("%w: connection refused", paymentdomain.ErrProcessorUnavailable)

	failed, err := f.svc.CreateHold(context.Background(), paymentdomain.CreateHoldRequest{
		SessionID: record.ID,
		AmountEur: 50.00,
	})
	if !errors.Is(err, paymentdomain.ErrProcessorUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if failed.PaymentStatus != sessiondomain.PaymentStatusFailed {
		t.Fatalf("expected FAILED, got %s", failed.PaymentStatus)
	}
}

func TestCreateHoldRejectsSecondHold(t *testing.T) {
	f := setupPaymentTest(t)
	held := f.holdSession(t, 45.00, 50.00)

	_, err := f.svc.CreateHold(context.Background(), paymentdomain.CreateHoldRequest{
		SessionID: held.ID,
		AmountEur: 60.00,
	})
	if !errors.Is(err, paymentdomain.ErrHoldAlreadyOpen) {
		t.Fatalf("expected hold already open, got %v", err)
	}
	if f.processor.holdCalls != 1 {
		t.Fatalf("expected no second processor call, got %d", f.processor.holdCalls)
	}
}

func TestCaptureHoldDefaultsToGross(t *testing.T) {
	f := setupPaymentTest(t)
	held := f.holdSession(t, 45.00, 50.00)

	captured, err := f.svc.CaptureHold(context.Background(), held.ID, nil)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if captured.PaymentStatus != sessiondomain.PaymentStatusCaptured {
		t.Fatalf("expected CAPTURED, got %s", captured.PaymentStatus)
	}
	if captured.CapturedAmountCents == nil || *captured.CapturedAmountCents != 4500 {
		t.Fatalf("expected captured 4500 cents, got %v", captured.CapturedAmountCents)
	}
	if captured.PaidAt == nil {
		t.Fatal("expected paid_at set")
	}

	clearing, err := f.ledgerSvc.Balance(context.Background(), 1, ledgerdomain.AccountCodeCashClearing, "EUR")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if clearing != 4500 {
		t.Fatalf("expected cash clearing 4500, got %d", clearing)
	}
}

func TestCaptureHoldIdempotent(t *testing.T) {
	f := setupPaymentTest(t)
	held := f.holdSession(t, 45.00, 50.00)

	if _, err := f.svc.CaptureHold(context.Background(), held.ID, nil); err != nil {
		t.Fatalf("first capture: %v", err)
	}
	record, err := f.svc.CaptureHold(context.Background(), held.ID, nil)
	if !errors.Is(err, paymentdomain.ErrAlreadyCaptured) {
		t.Fatalf("expected already captured, got %v", err)
	}
	if record.PaymentStatus != sessiondomain.PaymentStatusCaptured {
		t.Fatalf("expected CAPTURED, got %s", record.PaymentStatus)
	}
	if f.processor.captureCalls != 1 {
		t.Fatalf("expected one capture call, got %d", f.processor.captureCalls)
	}

	var entries int64
	if err := f.db.Raw(`SELECT COUNT(1) FROM ledger_entries WHERE source_type = ?`, ledgerdomain.SourceTypePaymentCapture).Scan(&entries).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if entries != 1 {
		t.Fatalf("expected one capture entry, got %d", entries)
	}
}

func TestCaptureHoldRivalClaimBlocksProcessorCall(t *testing.T) {
	f := setupPaymentTest(t)
	held := f.holdSession(t, 45.00, 50.00)

	// A rival capture is mid-flight: it has claimed the window but not yet
	// heard back from the processor.
	if err := f.db.Exec(
		`UPDATE charging_sessions SET capture_claimed_at = ? WHERE id = ?`,
		time.Now().UTC(),
		held.ID,
	).Error; err != nil {
		t.Fatalf("seed claim: %v", err)
	}

	record, err := f.svc.CaptureHold(context.Background(), held.ID, nil)
	if !errors.Is(err, paymentdomain.ErrCaptureInFlight) {
		t.Fatalf("expected capture in flight, got %v", err)
	}
	if record.PaymentStatus != sessiondomain.PaymentStatusHoldOK {
		t.Fatalf("expected HOLD_OK untouched, got %s", record.PaymentStatus)
	}
	if f.processor.captureCalls != 0 {
		t.Fatalf("expected no processor call, got %d", f.processor.captureCalls)
	}
}

func TestCaptureHoldReclaimsExpiredClaim(t *testing.T) {
	f := setupPaymentTest(t)
	held := f.holdSession(t, 45.00, 50.00)

	// A claim orphaned by a crash must not block captures forever.
	if err := f.db.Exec(
		`UPDATE charging_sessions SET capture_claimed_at = ? WHERE id = ?`,
		time.Now().UTC().Add(-5*time.Minute),
		held.ID,
	).Error; err != nil {
		t.Fatalf("seed stale claim: %v", err)
	}

	record, err := f.svc.CaptureHold(context.Background(), held.ID, nil)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if record.PaymentStatus != sessiondomain.PaymentStatusCaptured {
		t.Fatalf("expected CAPTURED, got %s", record.PaymentStatus)
	}
	if f.processor.captureCalls != 1 {
		t.Fatalf("expected one capture call, got %d", f.processor.captureCalls)
	}
}

func TestCaptureExceedsHold(t *testing.T) {
	f := setupPaymentTest(t)
	held := f.holdSession(t, 60.00, 50.00)

	record, err := f.svc.CaptureHold(context.Background(), held.ID, nil)
	if !errors.Is(err, paymentdomain.ErrCaptureExceedsHold) {
		t.Fatalf("expected capture exceeds hold, got %v", err)
	}
	if record.PaymentStatus != sessiondomain.PaymentStatusPartialFailed {
		t.Fatalf("expected PARTIAL_FAILED, got %s", record.PaymentStatus)
	}
	if record.PaymentLastErrorCode == nil || *record.PaymentLastErrorCode != "capture_exceeds_hold" {
		t.Fatalf("expected error code stored, got %v", record.PaymentLastErrorCode)
	}
	if f.processor.captureCalls != 0 {
		t.Fatalf("expected no processor call, got %d", f.processor.captureCalls)
	}
}

func TestCaptureUnbilledWithoutAmount(t *testing.T) {
	f := setupPaymentTest(t)
	record := f.seedBilledSession(t, 45.00)
	if err := f.db.Exec(
		`UPDATE charging_sessions SET billing_status = ?, gross_amount = NULL WHERE id = ?`,
		sessiondomain.BillingStatusNotBilled, record.ID,
	).Error; err != nil {
		t.Fatalf("unbill session: %v", err)
	}
	if _, err := f.svc.CreateHold(context.Background(), paymentdomain.CreateHoldRequest{
		SessionID: record.ID, AmountEur: 50.00,
	}); err != nil {
		t.Fatalf("create hold: %v", err)
	}

	_, err := f.svc.CaptureHold(context.Background(), record.ID, nil)
	if !errors.Is(err, paymentdomain.ErrSessionNotBilled) {
		t.Fatalf("expected session not billed, got %v", err)
	}
}

func TestCaptureTrustsProcessorAmount(t *testing.T) {
	f := setupPaymentTest(t)
	held := f.holdSession(t, 45.00, 50.00)
	f.processor.reportDifferent = true
	f.processor.capturedCents = 4499

	captured, err := f.svc.CaptureHold(context.Background(), held.ID, nil)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if captured.CapturedAmountCents == nil || *captured.CapturedAmountCents != 4499 {
		t.Fatalf("expected processor-reported 4499, got %v", captured.CapturedAmountCents)
	}
}

func TestCaptureWithoutHold(t *testing.T) {
	f := setupPaymentTest(t)
	record := f.seedBilledSession(t, 45.00)

	_, err := f.svc.CaptureHold(context.Background(), record.ID, nil)
	if !errors.Is(err, paymentdomain.ErrNoOpenHold) {
		t.Fatalf("expected no open hold, got %v", err)
	}
}

func TestCancelHold(t *testing.T) {
	f := setupPaymentTest(t)
	held := f.holdSession(t, 45.00, 50.00)

	cancelled, err := f.svc.CancelHold(context.Background(), held.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.PaymentStatus != sessiondomain.PaymentStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.PaymentStatus)
	}
	if f.processor.cancelCalls != 1 {
		t.Fatalf("expected one cancel call, got %d", f.processor.cancelCalls)
	}

	_, err = f.svc.CaptureHold(context.Background(), held.ID, nil)
	if !errors.Is(err, paymentdomain.ErrPaymentTerminal) {
		t.Fatalf("expected terminal, got %v", err)
	}
}

func TestApplyWebhookSucceeded(t *testing.T) {
	f := setupPaymentTest(t)
	held := f.holdSession(t, 45.00, 50.00)

	applied, err := f.svc.ApplyWebhookEvent(context.Background(), &paymentdomain.PaymentEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_1",
		Type:            paymentdomain.EventTypePaymentSucceeded,
		PaymentIntentID: *held.StripePaymentIntentID,
		AmountCents:     4500,
		Currency:        "EUR",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !applied {
		t.Fatal("expected event to apply")
	}

	record, err := f.svc.loadSession(context.Background(), held.ID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if record.PaymentStatus != sessiondomain.PaymentStatusCaptured {
		t.Fatalf("expected CAPTURED, got %s", record.PaymentStatus)
	}
	if record.CapturedAmountCents == nil || *record.CapturedAmountCents != 4500 {
		t.Fatalf("expected captured 4500, got %v", record.CapturedAmountCents)
	}
}

func TestApplyWebhookFailedNeverUndoesCapture(t *testing.T) {
	f := setupPaymentTest(t)
	held := f.holdSession(t, 45.00, 50.00)
	if _, err := f.svc.CaptureHold(context.Background(), held.ID, nil); err != nil {
		t.Fatalf("capture: %v", err)
	}

	applied, err := f.svc.ApplyWebhookEvent(context.Background(), &paymentdomain.PaymentEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_2",
		Type:            paymentdomain.EventTypePaymentFailed,
		PaymentIntentID: *held.StripePaymentIntentID,
		ErrorCode:       "card_declined",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied {
		t.Fatal("expected failed event to be a no-op after capture")
	}

	record, err := f.svc.loadSession(context.Background(), held.ID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if record.PaymentStatus != sessiondomain.PaymentStatusCaptured {
		t.Fatalf("expected CAPTURED to stand, got %s", record.PaymentStatus)
	}
}

func TestApplyWebhookFailed(t *testing.T) {
	f := setupPaymentTest(t)
	held := f.holdSession(t, 45.00, 50.00)

	applied, err := f.svc.ApplyWebhookEvent(context.Background(), &paymentdomain.PaymentEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_3",
		Type:            paymentdomain.EventTypePaymentFailed,
		PaymentIntentID: *held.StripePaymentIntentID,
		ErrorCode:       "card_declined",
		ErrorMessage:    "insufficient funds",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !applied {
		t.Fatal("expected event to apply")
	}

	record, err := f.svc.loadSession(context.Background(), held.ID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if record.PaymentStatus != sessiondomain.PaymentStatusFailed {
		t.Fatalf("expected FAILED, got %s", record.PaymentStatus)
	}
	if record.PaymentLastErrorCode == nil || *record.PaymentLastErrorCode != "card_declined" {
		t.Fatalf("expected error code, got %v", record.PaymentLastErrorCode)
	}
}

func TestWebhookCaptureRacePostsOneLedgerEntry(t *testing.T) {
	f := setupPaymentTest(t)
	held := f.holdSession(t, 45.00, 50.00)

	if _, err := f.svc.CaptureHold(context.Background(), held.ID, nil); err != nil {
		t.Fatalf("capture: %v", err)
	}
	applied, err := f.svc.ApplyWebhookEvent(context.Background(), &paymentdomain.PaymentEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_4",
		Type:            paymentdomain.EventTypePaymentSucceeded,
		PaymentIntentID: *held.StripePaymentIntentID,
		AmountCents:     4500,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied {
		t.Fatal("expected webhook to lose the race")
	}

	var entries int64
	if err := f.db.Raw(`SELECT COUNT(1) FROM ledger_entries WHERE source_type = ?`, ledgerdomain.SourceTypePaymentCapture).Scan(&entries).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if entries != 1 {
		t.Fatalf("expected one capture entry, got %d", entries)
	}
}

func TestApplyWebhookUnknownIntent(t *testing.T) {
	f := setupPaymentTest(t)

	applied, err := f.svc.ApplyWebhookEvent(context.Background(), &paymentdomain.PaymentEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_5",
		Type:            paymentdomain.EventTypePaymentSucceeded,
		PaymentIntentID: "pi_unknown",
		AmountCents:     100,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied {
		t.Fatal("expected no-op for unknown intent")
	}
}

func signStripePayload(payload []byte, at time.Time) string {
	timestamp := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestIngestWebhook(t *testing.T) {
	f := setupPaymentTest(t)
	held := f.holdSession(t, 45.00, 50.00)

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_10","type":"payment_intent.succeeded","created":%d,"data":{"object":{"id":%q,"amount":5000,"amount_received":4500,"currency":"eur"}}}`,
		time.Now().Unix(),
		*held.StripePaymentIntentID,
	))
	headers := http.Header{}
	headers.Set("Stripe-Signature", signStripePayload(payload, time.Now()))

	if err := f.svc.IngestWebhook(context.Background(), "stripe", payload, headers); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	record, err := f.svc.loadSession(context.Background(), held.ID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if record.PaymentStatus != sessiondomain.PaymentStatusCaptured {
		t.Fatalf("expected CAPTURED, got %s", record.PaymentStatus)
	}

	// Redelivery of the same event is answered as a duplicate.
	err = f.svc.IngestWebhook(context.Background(), "stripe", payload, headers)
	if !errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestIngestWebhookBadSignature(t *testing.T) {
	f := setupPaymentTest(t)
	payload := []byte(`{"id":"evt_11","type":"payment_intent.succeeded","data":{"object":{"id":"pi_x"}}}`)
	headers := http.Header{}
	headers.Set("Stripe-Signature", "t=123,v1=deadbeef")

	err := f.svc.IngestWebhook(context.Background(), "stripe", payload, headers)
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}

func TestIngestWebhookUnknownProvider(t *testing.T) {
	f := setupPaymentTest(t)
	err := f.svc.IngestWebhook(context.Background(), "adyen", []byte(`{}`), http.Header{})
	if !errors.Is(err, paymentdomain.ErrProviderNotFound) {
		t.Fatalf("expected provider not found, got %v", err)
	}
}

func TestIngestWebhookIgnoredEventType(t *testing.T) {
	f := setupPaymentTest(t)
	payload := []byte(fmt.Sprintf(
		`{"id":"evt_12","type":"payment_intent.amount_capturable_updated","created":%d,"data":{"object":{"id":"pi_x"}}}`,
		time.Now().Unix(),
	))
	headers := http.Header{}
	headers.Set("Stripe-Signature", signStripePayload(payload, time.Now()))

	if err := f.svc.IngestWebhook(context.Background(), "stripe", payload, headers); err != nil {
		t.Fatalf("expected ignored event to succeed, got %v", err)
	}
}
