package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// CreateProfileRequest carries the fields of a new price list.
type CreateProfileRequest struct {
	WorkspaceID        snowflake.ID
	Name               string
	BasePricePerKwh    float64
	PricePerMinute     float64
	SessionStartFee    float64
	PlatformFeePercent float64
	Currency           string
	ValidFrom          time.Time
	ValidUntil         *time.Time
}

// UpdateProfileRequest edits a price list in place and bumps its version.
type UpdateProfileRequest struct {
	BasePricePerKwh    *float64
	PricePerMinute     *float64
	SessionStartFee    *float64
	PlatformFeePercent *float64
	Active             *bool
	ValidUntil         *time.Time
}

// AssignRequest binds a profile to a station or connector.
type AssignRequest struct {
	WorkspaceID     snowflake.ID
	TariffProfileID snowflake.ID
	StationID       snowflake.ID
	ConnectorID     *snowflake.ID
	ValidFrom       time.Time
	ValidUntil      *time.Time
}

type Service interface {
	// ResolveActiveTariff returns the single price list in force for a
	// station (and optionally connector) at the given instant. Connector
	// assignments override station ones; overlapping windows resolve to the
	// latest valid_from.
	ResolveActiveTariff(ctx context.Context, workspaceID, stationID snowflake.ID, connectorID *snowflake.ID, at time.Time) (*TariffProfile, error)

	CreateProfile(ctx context.Context, req CreateProfileRequest) (*TariffProfile, error)
	UpdateProfile(ctx context.Context, workspaceID, profileID snowflake.ID, req UpdateProfileRequest) (*TariffProfile, error)
	ArchiveProfile(ctx context.Context, workspaceID, profileID snowflake.ID) error

	Assign(ctx context.Context, req AssignRequest) (*TariffAssignment, error)
	RemoveAssignment(ctx context.Context, workspaceID, assignmentID snowflake.ID) error
}

var (
	ErrNoActiveTariff      = errors.New("no_active_tariff")
	ErrProfileNotFound     = errors.New("tariff_profile_not_found")
	ErrAssignmentNotFound  = errors.New("tariff_assignment_not_found")
	ErrInvalidTime         = errors.New("invalid_time")
	ErrInvalidWorkspace    = errors.New("invalid_workspace")
	ErrInvalidStation      = errors.New("invalid_station")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrInvalidFeePercent   = errors.New("invalid_fee_percent")
	ErrInvalidWindow       = errors.New("invalid_validity_window")
	ErrProfileArchived     = errors.New("tariff_profile_archived")
	ErrProfileNotReferable = errors.New("tariff_profile_not_referable")
)
