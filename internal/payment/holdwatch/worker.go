// Package holdwatch fails sessions stuck in HOLD_PENDING past a deadline so
// no payment blocks forever on a processor call that never answered.
package holdwatch

import (
	"context"
	"errors"
	"time"

	"github.com/gridfare/gridfare/internal/clock"
	"github.com/gridfare/gridfare/internal/observability/metrics"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Config  Config                  `optional:"true"`
	Metrics *metrics.BillingMetrics `optional:"true"`
}

type Worker struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	cfg     Config
	metrics *metrics.BillingMetrics
}

func NewWorker(p Params) *Worker {
	cfg := p.Config.withDefaults()
	return &Worker{
		db:      p.DB,
		log:     p.Log.Named("payment.holdwatch"),
		clock:   p.Clock,
		cfg:     cfg,
		metrics: p.Metrics,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(); err != nil {
			w.log.Warn("stale hold sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	failed, err := w.sweep(ctx, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	if failed > 0 {
		w.log.Info("failed stale holds", zap.Int64("count", failed))
	}
	return nil
}

func (w *Worker) sweep(ctx context.Context, limit int) (int64, error) {
	if w.db == nil {
		return 0, errors.New("holdwatch_unavailable")
	}
	if limit <= 0 {
		limit = w.cfg.BatchSize
	}

	now := w.clock.Now()
	cutoff := now.Add(-w.cfg.StaleAfter)

	result := w.db.WithContext(ctx).Exec(
		`UPDATE charging_sessions
		 SET payment_status = ?, payment_last_error_code = ?, payment_last_error_message = ?, updated_at = ?
		 WHERE id IN (
			SELECT id FROM charging_sessions
			WHERE payment_status = ? AND updated_at < ?
			ORDER BY updated_at ASC
			LIMIT ?
		 ) AND payment_status = ?`,
		sessiondomain.PaymentStatusFailed,
		"hold_timeout",
		"pre-authorization never confirmed before the deadline",
		now,
		sessiondomain.PaymentStatusHoldPending,
		cutoff,
		limit,
		sessiondomain.PaymentStatusHoldPending,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 && w.metrics != nil {
		for i := int64(0); i < result.RowsAffected; i++ {
			w.metrics.IncPaymentTransition(string(sessiondomain.PaymentStatusFailed))
		}
	}
	return result.RowsAffected, nil
}
