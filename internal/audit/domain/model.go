package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActorType represents who triggered an action.
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// AuditLog captures an immutable record of a financial action.
type AuditLog struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	WorkspaceID *snowflake.ID     `gorm:"index"`
	ActorType   string            `gorm:"type:text;not null"`
	ActorID     *string           `gorm:"type:text"`
	Action      string            `gorm:"type:text;not null;index"`
	TargetType  string            `gorm:"type:text;not null"`
	TargetID    *string           `gorm:"type:text"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	IPAddress   *string           `gorm:"type:text"`
	UserAgent   *string           `gorm:"type:text"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
}

// Service records audit entries; actor details come from auditcontext.
type Service interface {
	AuditLog(ctx context.Context, workspaceID *snowflake.ID, action, targetType string, targetID *string, metadata map[string]any) error
}
