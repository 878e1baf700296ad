package repository

import (
	"context"

	auditdomain "github.com/gridfare/gridfare/internal/audit/domain"
	"gorm.io/gorm"
)

type repository struct{}

// Provide constructs the audit repository.
func Provide() auditdomain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, entry *auditdomain.AuditLog) error {
	return db.WithContext(ctx).Create(entry).Error
}
