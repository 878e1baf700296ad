package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	roamingdomain "github.com/gridfare/gridfare/internal/roaming/domain"
)

type deliverCDRRequest struct {
	HubjectSessionID string  `json:"hubject_session_id"`
	EnergyKwh        float64 `json:"energy_kwh"`
	DurationSeconds  int64   `json:"duration_seconds"`
	GrossAmount      float64 `json:"gross_amount"`
	NetAmount        float64 `json:"net_amount"`
	Currency         string  `json:"currency"`
}

func (s *Server) DeliverCDR(c *gin.Context) {
	if s.roamingSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req deliverCDRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.HubjectSessionID) == "" {
		AbortWithError(c, newValidationError("hubject_session_id", "required", "hubject_session_id is required"))
		return
	}

	record, err := s.roamingSvc.MatchCDR(c.Request.Context(), roamingdomain.CDR{
		HubjectSessionID: req.HubjectSessionID,
		EnergyKwh:        req.EnergyKwh,
		DurationSeconds:  req.DurationSeconds,
		GrossAmount:      req.GrossAmount,
		NetAmount:        req.NetAmount,
		Currency:         req.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(record))
}

type resolveDisputeRequest struct {
	AcceptCDR bool `json:"accept_cdr"`
}

func (s *Server) ResolveDispute(c *gin.Context) {
	if s.roamingSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	sessionID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "session id is invalid"))
		return
	}

	var req resolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.roamingSvc.ResolveDispute(c.Request.Context(), sessionID, req.AcceptCDR)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(record))
}
