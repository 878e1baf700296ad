package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/gridfare/gridfare/internal/billing/domain"
	"github.com/gridfare/gridfare/internal/clock"
	"github.com/gridfare/gridfare/internal/events"
	ledgerdomain "github.com/gridfare/gridfare/internal/ledger/domain"
	ledgerservice "github.com/gridfare/gridfare/internal/ledger/service"
	"github.com/gridfare/gridfare/internal/migration"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
	tariffdomain "github.com/gridfare/gridfare/internal/tariff/domain"
	tariffservice "github.com/gridfare/gridfare/internal/tariff/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type billingFixture struct {
	svc       *Service
	tariffSvc tariffdomain.Service
	ledgerSvc ledgerdomain.Service
	db        *gorm.DB
}

func setupBillingTest(t *testing.T) *billingFixture {
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

	tariffSvc := tariffservice.NewService(tariffservice.ServiceParam{
		DB:    conn,
		Log:   log,
		GenID: node,
	})
	ledgerSvc := ledgerservice.NewService(ledgerservice.ServiceParam{
		DB:    conn,
		Log:   log,
		GenID: node,
	})

	svc := &Service{
		db:        conn,
		log:       log,
		genID:     node,
		clock:     clock.SystemClock{},
		tariffSvc: tariffSvc,
		ledgerSvc: ledgerSvc,
		outbox:    events.NewOutbox(conn, node),
	}
	return &billingFixture{svc: svc, tariffSvc: tariffSvc, ledgerSvc: ledgerSvc, db: conn}
}

func (f *billingFixture) createStandardTariff(t *testing.T, stationID snowflake.ID) *tariffdomain.TariffProfile {
	t.Helper()
	past := time.Now().UTC().Add(-time.Hour)
	profile, err := f.tariffSvc.CreateProfile(context.Background(), tariffdomain.CreateProfileRequest{
		WorkspaceID:        1,
		Name:               "Standard AC",
		BasePricePerKwh:    0.45,
		PlatformFeePercent: 15,
		ValidFrom:          past,
	})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	_, err = f.tariffSvc.Assign(context.Background(), tariffdomain.AssignRequest{
		WorkspaceID:     1,
		TariffProfileID: profile.ID,
		StationID:       stationID,
		ValidFrom:       past,
	})
	if err != nil {
		t.Fatalf("assign profile: %v", err)
	}
	return profile
}

func TestStartSessionFreezesTariff(t *testing.T) {
	f := setupBillingTest(t)
	profile := f.createStandardTariff(t, 10)

	record, err := f.svc.StartSession(context.Background(), billingdomain.StartSessionRequest{
		WorkspaceID: 1,
		StationID:   10,
		EndUserID:   5,
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if record.Status != sessiondomain.SessionStatusActive {
		t.Fatalf("expected ACTIVE, got %s", record.Status)
	}
	if record.TariffProfileID == nil || *record.TariffProfileID != profile.ID {
		t.Fatalf("expected frozen profile %d, got %v", profile.ID, record.TariffProfileID)
	}
	if record.BasePricePerKwh == nil || *record.BasePricePerKwh != 0.45 {
		t.Fatalf("expected frozen price 0.45, got %v", record.BasePricePerKwh)
	}
	if len(record.TariffSnapshotJSON) == 0 {
		t.Fatal("expected audit snapshot json")
	}
}

func TestStartSessionWithoutTariffIsUnbillable(t *testing.T) {
	f := setupBillingTest(t)

	record, err := f.svc.StartSession(context.Background(), billingdomain.StartSessionRequest{
		WorkspaceID: 1,
		StationID:   10,
		EndUserID:   5,
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if record.TariffProfileID != nil {
		t.Fatal("expected nil tariff pointer")
	}

	// Stopping completes the session but leaves it NOT_BILLED.
	stopped, err := f.svc.StopSession(context.Background(), billingdomain.StopSessionRequest{
		SessionID: record.ID, EnergyKwh: 10, DurationSeconds: 1800,
	})
	if err != nil {
		t.Fatalf("stop session: %v", err)
	}
	if stopped.Status != sessiondomain.SessionStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", stopped.Status)
	}
	if stopped.BillingStatus != sessiondomain.BillingStatusNotBilled {
		t.Fatalf("expected NOT_BILLED, got %s", stopped.BillingStatus)
	}
}

func TestStopSessionBills(t *testing.T) {
	f := setupBillingTest(t)
	f.createStandardTariff(t, 10)

	record, err := f.svc.StartSession(context.Background(), billingdomain.StartSessionRequest{
		WorkspaceID: 1, StationID: 10, EndUserID: 5,
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	stopped, err := f.svc.StopSession(context.Background(), billingdomain.StopSessionRequest{
		SessionID: record.ID, EnergyKwh: 10, DurationSeconds: 1800,
	})
	if err != nil {
		t.Fatalf("stop session: %v", err)
	}
	if stopped.BillingStatus != sessiondomain.BillingStatusBilled {
		t.Fatalf("expected BILLED, got %s", stopped.BillingStatus)
	}
	if stopped.GrossAmount == nil || *stopped.GrossAmount != 4.50 {
		t.Fatalf("expected gross 4.50, got %v", stopped.GrossAmount)
	}
	if stopped.PlatformFeeAmount == nil || *stopped.PlatformFeeAmount != 0.68 {
		t.Fatalf("expected fee 0.68, got %v", stopped.PlatformFeeAmount)
	}
	if stopped.OperatorEarningAmount == nil || *stopped.OperatorEarningAmount != 3.82 {
		t.Fatalf("expected earning 3.82, got %v", stopped.OperatorEarningAmount)
	}

	// Billing posts the balanced receivable entry.
	receivable, err := f.ledgerSvc.Balance(context.Background(), 1, ledgerdomain.AccountCodeAccountsReceivable, "EUR")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if receivable != 450 {
		t.Fatalf("expected receivable 450, got %d", receivable)
	}
}

func TestBillSessionIdempotent(t *testing.T) {
	f := setupBillingTest(t)
	f.createStandardTariff(t, 10)

	record, err := f.svc.StartSession(context.Background(), billingdomain.StartSessionRequest{
		WorkspaceID: 1, StationID: 10, EndUserID: 5,
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := f.svc.StopSession(context.Background(), billingdomain.StopSessionRequest{
		SessionID: record.ID, EnergyKwh: 10, DurationSeconds: 1800,
	}); err != nil {
		t.Fatalf("stop session: %v", err)
	}

	_, err = f.svc.BillSession(context.Background(), record.ID)
	if !errors.Is(err, billingdomain.ErrAlreadyBilled) {
		t.Fatalf("expected already billed, got %v", err)
	}

	var entries int64
	if err := f.db.Raw(`SELECT COUNT(1) FROM ledger_entries`).Scan(&entries).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if entries != 1 {
		t.Fatalf("expected one ledger entry, got %d", entries)
	}
}

func TestBilledAmountsSurviveTariffEdit(t *testing.T) {
	f := setupBillingTest(t)
	profile := f.createStandardTariff(t, 10)

	record, err := f.svc.StartSession(context.Background(), billingdomain.StartSessionRequest{
		WorkspaceID: 1, StationID: 10, EndUserID: 5,
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	// The operator doubles the price mid-charge; the frozen snapshot wins.
	newPrice := 0.90
	if _, err := f.tariffSvc.UpdateProfile(context.Background(), 1, profile.ID, tariffdomain.UpdateProfileRequest{
		BasePricePerKwh: &newPrice,
	}); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	stopped, err := f.svc.StopSession(context.Background(), billingdomain.StopSessionRequest{
		SessionID: record.ID, EnergyKwh: 10, DurationSeconds: 1800,
	})
	if err != nil {
		t.Fatalf("stop session: %v", err)
	}
	if stopped.GrossAmount == nil || *stopped.GrossAmount != 4.50 {
		t.Fatalf("expected gross from frozen price, got %v", stopped.GrossAmount)
	}
}

func TestStopSessionNotActive(t *testing.T) {
	f := setupBillingTest(t)
	f.createStandardTariff(t, 10)

	record, err := f.svc.StartSession(context.Background(), billingdomain.StartSessionRequest{
		WorkspaceID: 1, StationID: 10, EndUserID: 5,
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := f.svc.StopSession(context.Background(), billingdomain.StopSessionRequest{
		SessionID: record.ID, EnergyKwh: 10, DurationSeconds: 1800,
	}); err != nil {
		t.Fatalf("stop session: %v", err)
	}

	_, err = f.svc.StopSession(context.Background(), billingdomain.StopSessionRequest{
		SessionID: record.ID, EnergyKwh: 12, DurationSeconds: 2000,
	})
	if !errors.Is(err, billingdomain.ErrSessionNotActive) {
		t.Fatalf("expected session not active, got %v", err)
	}

	// The second stop must not overwrite the first meter figures.
	current, err := f.svc.GetSession(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if current.EnergyKwh != 10 {
		t.Fatalf("expected first stop figures to stand, got %v", current.EnergyKwh)
	}
}

func TestStopSessionRejectsNegativeMeterData(t *testing.T) {
	f := setupBillingTest(t)
	_, err := f.svc.StopSession(context.Background(), billingdomain.StopSessionRequest{
		SessionID: 1, EnergyKwh: -1,
	})
	if !errors.Is(err, billingdomain.ErrInvalidMeterData) {
		t.Fatalf("expected invalid meter data, got %v", err)
	}
}

func TestResnapshotTariff(t *testing.T) {
	f := setupBillingTest(t)

	record, err := f.svc.StartSession(context.Background(), billingdomain.StartSessionRequest{
		WorkspaceID: 1, StationID: 10, EndUserID: 5,
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if record.TariffProfileID != nil {
		t.Fatal("expected unbillable start")
	}

	// Operator assigns a tariff whose window covers the session start, then
	// corrects the session.
	profile := f.createStandardTariff(t, 10)
	fixed, err := f.svc.ResnapshotTariff(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("resnapshot: %v", err)
	}
	if fixed.TariffProfileID == nil || *fixed.TariffProfileID != profile.ID {
		t.Fatalf("expected profile %d, got %v", profile.ID, fixed.TariffProfileID)
	}

	billed, err := f.svc.StopSession(context.Background(), billingdomain.StopSessionRequest{
		SessionID: record.ID, EnergyKwh: 10, DurationSeconds: 1800,
	})
	if err != nil {
		t.Fatalf("stop session: %v", err)
	}
	if billed.BillingStatus != sessiondomain.BillingStatusBilled {
		t.Fatalf("expected BILLED after resnapshot, got %s", billed.BillingStatus)
	}
}

func TestResnapshotRejectedAfterBilling(t *testing.T) {
	f := setupBillingTest(t)
	f.createStandardTariff(t, 10)

	record, err := f.svc.StartSession(context.Background(), billingdomain.StartSessionRequest{
		WorkspaceID: 1, StationID: 10, EndUserID: 5,
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := f.svc.StopSession(context.Background(), billingdomain.StopSessionRequest{
		SessionID: record.ID, EnergyKwh: 10, DurationSeconds: 1800,
	}); err != nil {
		t.Fatalf("stop session: %v", err)
	}

	_, err = f.svc.ResnapshotTariff(context.Background(), record.ID)
	if !errors.Is(err, billingdomain.ErrAlreadyBilled) {
		t.Fatalf("expected already billed, got %v", err)
	}
}

func TestStartRoamingSessionOpensClearing(t *testing.T) {
	f := setupBillingTest(t)
	f.createStandardTariff(t, 10)

	hubject := "HBJ-1"
	record, err := f.svc.StartSession(context.Background(), billingdomain.StartSessionRequest{
		WorkspaceID:      1,
		StationID:        10,
		EndUserID:        5,
		RoamingType:      sessiondomain.RoamingTypeInbound,
		HubjectSessionID: &hubject,
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if record.ClearingStatus != sessiondomain.ClearingStatusPending {
		t.Fatalf("expected PENDING clearing, got %s", record.ClearingStatus)
	}
	if record.HubjectSessionID == nil || *record.HubjectSessionID != hubject {
		t.Fatalf("expected hubject id stored, got %v", record.HubjectSessionID)
	}
}
