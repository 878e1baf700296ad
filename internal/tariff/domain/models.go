// Package domain contains tariff price lists and their station/connector
// assignments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Lifecycle is the soft-delete state shared by tariff entities. Archived rows
// stay referencable by historic snapshots but never resolve again.
type Lifecycle string

const (
	LifecycleActive   Lifecycle = "ACTIVE"
	LifecycleArchived Lifecycle = "ARCHIVED"
)

// TariffProfile is a workspace-scoped price list. Edits bump Version; sessions
// reference (id, version) in their frozen snapshot, so history never rewrites.
type TariffProfile struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	WorkspaceID snowflake.ID `gorm:"not null;index"`
	Name        string       `gorm:"type:text;not null"`

	BasePricePerKwh    float64 `gorm:"not null"`
	PricePerMinute     float64 `gorm:"not null;default:0"`
	SessionStartFee    float64 `gorm:"not null;default:0"`
	PlatformFeePercent float64 `gorm:"not null;default:0"`
	Currency           string  `gorm:"type:text;not null;default:'EUR'"`

	Active     bool       `gorm:"not null;default:true"`
	ValidFrom  time.Time  `gorm:"not null"`
	ValidUntil *time.Time `gorm:""`
	Version    int        `gorm:"not null;default:1"`
	Lifecycle  Lifecycle  `gorm:"type:text;not null;default:'ACTIVE'"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TariffProfile) TableName() string { return "tariff_profiles" }

// TariffAssignment binds a profile to a station (connector_id null) or to one
// connector, each with its own validity window.
type TariffAssignment struct {
	ID              snowflake.ID  `gorm:"primaryKey"`
	WorkspaceID     snowflake.ID  `gorm:"not null;index"`
	TariffProfileID snowflake.ID  `gorm:"not null;index"`
	StationID       snowflake.ID  `gorm:"not null;index"`
	ConnectorID     *snowflake.ID `gorm:"index"`

	ValidFrom  time.Time  `gorm:"not null"`
	ValidUntil *time.Time `gorm:""`
	Lifecycle  Lifecycle  `gorm:"type:text;not null;default:'ACTIVE'"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TariffAssignment) TableName() string { return "tariff_assignments" }
