// Package domain defines the billing snapshot builder: freezing a tariff onto
// a session at start and computing its monetary outcome at stop.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
)

// StartSessionRequest opens a new charging session.
type StartSessionRequest struct {
	WorkspaceID      snowflake.ID
	StationID        snowflake.ID
	ConnectorID      *snowflake.ID
	EndUserID        snowflake.ID
	RoamingType      sessiondomain.RoamingType
	HubjectSessionID *string
}

// StopSessionRequest closes a session with its final meter figures.
type StopSessionRequest struct {
	SessionID       snowflake.ID
	EnergyKwh       float64
	DurationSeconds int64
}

type Service interface {
	// StartSession creates the session row and snapshots the active tariff.
	// A session with no resolvable tariff still starts, flagged unbillable
	// until ResnapshotTariff corrects it.
	StartSession(ctx context.Context, req StartSessionRequest) (*sessiondomain.ChargingSession, error)

	// ResnapshotTariff re-runs tariff resolution for a not-yet-billed
	// session, the manual correction path for unbillable starts.
	ResnapshotTariff(ctx context.Context, sessionID snowflake.ID) (*sessiondomain.ChargingSession, error)

	// StopSession completes the session and bills it when a snapshot is
	// present; without one the session completes and stays NOT_BILLED.
	StopSession(ctx context.Context, req StopSessionRequest) (*sessiondomain.ChargingSession, error)

	// BillSession freezes the monetary outcome computed from the snapshot
	// and the recorded meter figures. Refuses without a snapshot.
	BillSession(ctx context.Context, sessionID snowflake.ID) (*sessiondomain.ChargingSession, error)

	GetSession(ctx context.Context, sessionID snowflake.ID) (*sessiondomain.ChargingSession, error)
}

var (
	ErrSessionNotFound    = errors.New("session_not_found")
	ErrSessionNotActive   = errors.New("session_not_active")
	ErrSessionNotComplete = errors.New("session_not_complete")
	ErrAlreadyBilled      = errors.New("session_already_billed")
	ErrMissingSnapshot    = errors.New("missing_tariff_snapshot")
	ErrInvalidMeterData   = errors.New("invalid_meter_data")
	ErrInvalidWorkspace   = errors.New("invalid_workspace")
	ErrInvalidStation     = errors.New("invalid_station")
	ErrInvalidEndUser     = errors.New("invalid_end_user")
)
