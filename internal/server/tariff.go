package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	tariffdomain "github.com/gridfare/gridfare/internal/tariff/domain"
)

type createTariffRequest struct {
	WorkspaceID        string     `json:"workspace_id"`
	Name               string     `json:"name"`
	BasePricePerKwh    float64    `json:"base_price_per_kwh"`
	PricePerMinute     float64    `json:"price_per_minute"`
	SessionStartFee    float64    `json:"session_start_fee"`
	PlatformFeePercent float64    `json:"platform_fee_percent"`
	Currency           string     `json:"currency"`
	ValidFrom          *time.Time `json:"valid_from"`
	ValidUntil         *time.Time `json:"valid_until"`
}

func (s *Server) CreateTariffProfile(c *gin.Context) {
	if s.tariffSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req createTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	workspaceID, err := parseID(req.WorkspaceID)
	if err != nil {
		AbortWithError(c, newValidationError("workspace_id", "invalid_id", "workspace_id is invalid"))
		return
	}

	validFrom := time.Now().UTC()
	if req.ValidFrom != nil {
		validFrom = req.ValidFrom.UTC()
	}

	profile, err := s.tariffSvc.CreateProfile(c.Request.Context(), tariffdomain.CreateProfileRequest{
		WorkspaceID:        workspaceID,
		Name:               strings.TrimSpace(req.Name),
		BasePricePerKwh:    req.BasePricePerKwh,
		PricePerMinute:     req.PricePerMinute,
		SessionStartFee:    req.SessionStartFee,
		PlatformFeePercent: req.PlatformFeePercent,
		Currency:           req.Currency,
		ValidFrom:          validFrom,
		ValidUntil:         req.ValidUntil,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTariffProfileResponse(profile))
}

type updateTariffRequest struct {
	WorkspaceID        string     `json:"workspace_id"`
	BasePricePerKwh    *float64   `json:"base_price_per_kwh"`
	PricePerMinute     *float64   `json:"price_per_minute"`
	SessionStartFee    *float64   `json:"session_start_fee"`
	PlatformFeePercent *float64   `json:"platform_fee_percent"`
	Active             *bool      `json:"active"`
	ValidUntil         *time.Time `json:"valid_until"`
}

func (s *Server) UpdateTariffProfile(c *gin.Context) {
	if s.tariffSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	profileID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "tariff id is invalid"))
		return
	}

	var req updateTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	workspaceID, err := parseID(req.WorkspaceID)
	if err != nil {
		AbortWithError(c, newValidationError("workspace_id", "invalid_id", "workspace_id is invalid"))
		return
	}

	profile, err := s.tariffSvc.UpdateProfile(c.Request.Context(), workspaceID, profileID, tariffdomain.UpdateProfileRequest{
		BasePricePerKwh:    req.BasePricePerKwh,
		PricePerMinute:     req.PricePerMinute,
		SessionStartFee:    req.SessionStartFee,
		PlatformFeePercent: req.PlatformFeePercent,
		Active:             req.Active,
		ValidUntil:         req.ValidUntil,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTariffProfileResponse(profile))
}

func (s *Server) ArchiveTariffProfile(c *gin.Context) {
	if s.tariffSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	profileID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "tariff id is invalid"))
		return
	}

	workspaceID, err := parseID(c.Query("workspace_id"))
	if err != nil {
		AbortWithError(c, newValidationError("workspace_id", "invalid_id", "workspace_id is invalid"))
		return
	}

	if err := s.tariffSvc.ArchiveProfile(c.Request.Context(), workspaceID, profileID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "archived"})
}

type assignTariffRequest struct {
	WorkspaceID     string     `json:"workspace_id"`
	TariffProfileID string     `json:"tariff_profile_id"`
	StationID       string     `json:"station_id"`
	ConnectorID     *string    `json:"connector_id"`
	ValidFrom       *time.Time `json:"valid_from"`
	ValidUntil      *time.Time `json:"valid_until"`
}

func (s *Server) AssignTariff(c *gin.Context) {
	if s.tariffSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req assignTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	workspaceID, err := parseID(req.WorkspaceID)
	if err != nil {
		AbortWithError(c, newValidationError("workspace_id", "invalid_id", "workspace_id is invalid"))
		return
	}
	profileID, err := parseID(req.TariffProfileID)
	if err != nil {
		AbortWithError(c, newValidationError("tariff_profile_id", "invalid_id", "tariff_profile_id is invalid"))
		return
	}
	stationID, err := parseID(req.StationID)
	if err != nil {
		AbortWithError(c, newValidationError("station_id", "invalid_id", "station_id is invalid"))
		return
	}
	connectorID, err := parseOptionalID(req.ConnectorID)
	if err != nil {
		AbortWithError(c, newValidationError("connector_id", "invalid_id", "connector_id is invalid"))
		return
	}

	validFrom := time.Now().UTC()
	if req.ValidFrom != nil {
		validFrom = req.ValidFrom.UTC()
	}

	assignment, err := s.tariffSvc.Assign(c.Request.Context(), tariffdomain.AssignRequest{
		WorkspaceID:     workspaceID,
		TariffProfileID: profileID,
		StationID:       stationID,
		ConnectorID:     connectorID,
		ValidFrom:       validFrom,
		ValidUntil:      req.ValidUntil,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTariffAssignmentResponse(assignment))
}

func (s *Server) RemoveTariffAssignment(c *gin.Context) {
	if s.tariffSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	assignmentID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "assignment id is invalid"))
		return
	}

	workspaceID, err := parseID(c.Query("workspace_id"))
	if err != nil {
		AbortWithError(c, newValidationError("workspace_id", "invalid_id", "workspace_id is invalid"))
		return
	}

	if err := s.tariffSvc.RemoveAssignment(c.Request.Context(), workspaceID, assignmentID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// ResolveTariff answers which price list is in force for a station or
// connector at a given instant, the same resolution session start uses.
func (s *Server) ResolveTariff(c *gin.Context) {
	if s.tariffSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	workspaceID, err := parseID(c.Query("workspace_id"))
	if err != nil {
		AbortWithError(c, newValidationError("workspace_id", "invalid_id", "workspace_id is invalid"))
		return
	}
	stationID, err := parseID(c.Query("station_id"))
	if err != nil {
		AbortWithError(c, newValidationError("station_id", "invalid_id", "station_id is invalid"))
		return
	}

	var connectorID *string
	if value := strings.TrimSpace(c.Query("connector_id")); value != "" {
		connectorID = &value
	}
	connector, err := parseOptionalID(connectorID)
	if err != nil {
		AbortWithError(c, newValidationError("connector_id", "invalid_id", "connector_id is invalid"))
		return
	}

	at := time.Now().UTC()
	if value := strings.TrimSpace(c.Query("at")); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			AbortWithError(c, newValidationError("at", "invalid_time", "at must be RFC3339"))
			return
		}
		at = parsed.UTC()
	}

	profile, err := s.tariffSvc.ResolveActiveTariff(c.Request.Context(), workspaceID, stationID, connector, at)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTariffProfileResponse(profile))
}
