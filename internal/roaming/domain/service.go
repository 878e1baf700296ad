// Package domain defines the roaming CDR reconciler: matching clearing-house
// charge detail records against the engine's own session figures.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
)

// CDR is a charge detail record delivered by the roaming clearing house.
type CDR struct {
	HubjectSessionID string
	EnergyKwh        float64
	DurationSeconds  int64
	GrossAmount      float64
	NetAmount        float64
	Currency         string
}

type Service interface {
	// MatchCDR compares the CDR against the session's recorded figures
	// within the tolerance band. Within tolerance the session becomes
	// MATCHED and the CDR's amounts become the settlement figures;
	// outside it the session becomes DISPUTED with the divergence
	// recorded, the session's own figures untouched.
	MatchCDR(ctx context.Context, cdr CDR) (*sessiondomain.ChargingSession, error)

	// ResolveDispute closes a DISPUTED session after human review,
	// either accepting the CDR amounts or keeping the session's own.
	ResolveDispute(ctx context.Context, sessionID snowflake.ID, acceptCDR bool) (*sessiondomain.ChargingSession, error)
}

var (
	ErrSessionNotFound = errors.New("session_not_found")
	ErrNotRoaming      = errors.New("session_not_roaming")
	ErrAlreadyMatched  = errors.New("cdr_already_matched")
	ErrNotDisputed     = errors.New("session_not_disputed")
	ErrInvalidCDR      = errors.New("invalid_cdr")
)
