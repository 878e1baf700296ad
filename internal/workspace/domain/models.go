// Package domain holds the tenant directory: workspaces, their stations and
// connectors, and the end users charged against them. The billing engine only
// reads these referents; provisioning lives upstream.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Workspace is one operator tenant.
type Workspace struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex:ux_workspaces_slug"`
	IsDefault bool         `gorm:"not null;default:false"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Workspace) TableName() string { return "workspaces" }

// Station is one charging location within a workspace.
type Station struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	WorkspaceID snowflake.ID `gorm:"not null;index"`
	Name        string       `gorm:"type:text;not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Station) TableName() string { return "stations" }

// Connector is one physical plug on a station.
type Connector struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	StationID snowflake.ID `gorm:"not null;index"`
	Label     string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Connector) TableName() string { return "connectors" }

// EndUser is a driver account billed by the engine.
type EndUser struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	WorkspaceID snowflake.ID `gorm:"not null;index"`
	Email       string       `gorm:"type:text;not null"`
	DisplayName string       `gorm:"type:text"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (EndUser) TableName() string { return "end_users" }
