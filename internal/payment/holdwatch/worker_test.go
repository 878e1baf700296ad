package holdwatch

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gridfare/gridfare/internal/clock"
	"github.com/gridfare/gridfare/internal/migration"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupHoldwatchTest(t *testing.T) (*Worker, *gorm.DB, *snowflake.Node) {
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
	worker := &Worker{
		db:    conn,
		log:   zap.NewNop(),
		clock: clock.SystemClock{},
		cfg:   DefaultConfig(),
	}
	return worker, conn, node
}

func seedSession(t *testing.T, db *gorm.DB, node *snowflake.Node, status sessiondomain.PaymentStatus, updatedAt time.Time) *sessiondomain.ChargingSession {
	t.Helper()
	record := &sessiondomain.ChargingSession{
		ID:            node.Generate(),
		WorkspaceID:   1,
		StationID:     10,
		EndUserID:     5,
		StartTime:     updatedAt.Add(-time.Hour),
		Status:        sessiondomain.SessionStatusCompleted,
		BillingStatus: sessiondomain.BillingStatusBilled,
		PaymentStatus: status,
		Currency:      "EUR",
		CreatedAt:     updatedAt,
		UpdatedAt:     updatedAt,
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return record
}

func paymentStatus(t *testing.T, db *gorm.DB, id snowflake.ID) sessiondomain.PaymentStatus {
	t.Helper()
	var status sessiondomain.PaymentStatus
	if err := db.Raw(`SELECT payment_status FROM charging_sessions WHERE id = ?`, id).Scan(&status).Error; err != nil {
		t.Fatalf("load status: %v", err)
	}
	return status
}

func TestSweepFailsStaleHolds(t *testing.T) {
	worker, db, node := setupHoldwatchTest(t)
	stale := seedSession(t, db, node, sessiondomain.PaymentStatusHoldPending, time.Now().UTC().Add(-time.Hour))

	if err := worker.RunOnce(); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if got := paymentStatus(t, db, stale.ID); got != sessiondomain.PaymentStatusFailed {
		t.Fatalf("expected FAILED, got %s", got)
	}

	var code string
	if err := db.Raw(`SELECT payment_last_error_code FROM charging_sessions WHERE id = ?`, stale.ID).Scan(&code).Error; err != nil {
		t.Fatalf("load code: %v", err)
	}
	if code != "hold_timeout" {
		t.Fatalf("expected hold_timeout code, got %s", code)
	}
}

func TestSweepSkipsFreshHolds(t *testing.T) {
	worker, db, node := setupHoldwatchTest(t)
	fresh := seedSession(t, db, node, sessiondomain.PaymentStatusHoldPending, time.Now().UTC())

	if err := worker.RunOnce(); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if got := paymentStatus(t, db, fresh.ID); got != sessiondomain.PaymentStatusHoldPending {
		t.Fatalf("expected fresh hold untouched, got %s", got)
	}
}

func TestSweepSkipsOtherStates(t *testing.T) {
	worker, db, node := setupHoldwatchTest(t)
	old := time.Now().UTC().Add(-time.Hour)
	holdOK := seedSession(t, db, node, sessiondomain.PaymentStatusHoldOK, old)
	captured := seedSession(t, db, node, sessiondomain.PaymentStatusCaptured, old)

	if err := worker.RunOnce(); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if got := paymentStatus(t, db, holdOK.ID); got != sessiondomain.PaymentStatusHoldOK {
		t.Fatalf("expected HOLD_OK untouched, got %s", got)
	}
	if got := paymentStatus(t, db, captured.ID); got != sessiondomain.PaymentStatusCaptured {
		t.Fatalf("expected CAPTURED untouched, got %s", got)
	}
}

func TestSweepHonorsBatchSize(t *testing.T) {
	worker, db, node := setupHoldwatchTest(t)
	old := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedSession(t, db, node, sessiondomain.PaymentStatusHoldPending, old)
	}

	failed, err := worker.sweep(context.Background(), 2)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if failed != 2 {
		t.Fatalf("expected 2 failed, got %d", failed)
	}

	var remaining int64
	if err := db.Raw(`SELECT COUNT(*) FROM charging_sessions WHERE payment_status = ?`, sessiondomain.PaymentStatusHoldPending).Scan(&remaining).Error; err != nil {
		t.Fatalf("count remaining: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected 1 hold left, got %d", remaining)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.BatchSize != 50 || cfg.PollInterval != 30*time.Second || cfg.StaleAfter != 15*time.Minute {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	custom := Config{BatchSize: 10, PollInterval: time.Second, StaleAfter: time.Minute}.withDefaults()
	if custom.BatchSize != 10 || custom.PollInterval != time.Second || custom.StaleAfter != time.Minute {
		t.Fatalf("expected explicit values kept, got %+v", custom)
	}
}
