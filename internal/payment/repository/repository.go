package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/gridfare/gridfare/internal/payment/domain"
	"gorm.io/gorm"
)

type repository struct{}

// Provide constructs the payment event repository.
func Provide() paymentdomain.Repository {
	return &repository{}
}

func (r *repository) FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*paymentdomain.EventRecord, error) {
	var record paymentdomain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM payment_events WHERE provider = ? AND provider_event_id = ?`,
		provider,
		providerEventID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repository) InsertEvent(ctx context.Context, db *gorm.DB, event *paymentdomain.EventRecord) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO payment_events (id, provider, provider_event_id, event_type, payment_intent_id, payload, received_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (provider, provider_event_id) DO NOTHING`,
		event.ID,
		event.Provider,
		event.ProviderEventID,
		event.EventType,
		event.PaymentIntentID,
		event.Payload,
		event.ReceivedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events SET processed_at = ? WHERE id = ? AND processed_at IS NULL`,
		processedAt,
		id,
	).Error
}
