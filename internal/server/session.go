package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	billingdomain "github.com/gridfare/gridfare/internal/billing/domain"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
	"github.com/gridfare/gridfare/pkg/db/pagination"
	"github.com/gridfare/gridfare/pkg/repository"
	"gorm.io/gorm"
)

type startSessionRequest struct {
	WorkspaceID      string  `json:"workspace_id"`
	StationID        string  `json:"station_id"`
	ConnectorID      *string `json:"connector_id"`
	EndUserID        string  `json:"end_user_id"`
	RoamingType      string  `json:"roaming_type"`
	HubjectSessionID *string `json:"hubject_session_id"`
}

func (s *Server) StartSession(c *gin.Context) {
	if s.billingSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	workspaceID, err := parseID(req.WorkspaceID)
	if err != nil {
		AbortWithError(c, newValidationError("workspace_id", "invalid_id", "workspace_id is invalid"))
		return
	}
	stationID, err := parseID(req.StationID)
	if err != nil {
		AbortWithError(c, newValidationError("station_id", "invalid_id", "station_id is invalid"))
		return
	}
	endUserID, err := parseID(req.EndUserID)
	if err != nil {
		AbortWithError(c, newValidationError("end_user_id", "invalid_id", "end_user_id is invalid"))
		return
	}
	connectorID, err := parseOptionalID(req.ConnectorID)
	if err != nil {
		AbortWithError(c, newValidationError("connector_id", "invalid_id", "connector_id is invalid"))
		return
	}

	roamingType := sessiondomain.RoamingTypeNone
	switch strings.ToUpper(strings.TrimSpace(req.RoamingType)) {
	case "", string(sessiondomain.RoamingTypeNone):
	case string(sessiondomain.RoamingTypeInbound):
		roamingType = sessiondomain.RoamingTypeInbound
	case string(sessiondomain.RoamingTypeOutbound):
		roamingType = sessiondomain.RoamingTypeOutbound
	default:
		AbortWithError(c, newValidationError("roaming_type", "invalid_roaming_type", "roaming_type is invalid"))
		return
	}

	record, err := s.billingSvc.StartSession(c.Request.Context(), billingdomain.StartSessionRequest{
		WorkspaceID:      workspaceID,
		StationID:        stationID,
		ConnectorID:      connectorID,
		EndUserID:        endUserID,
		RoamingType:      roamingType,
		HubjectSessionID: req.HubjectSessionID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSessionResponse(record))
}

type stopSessionRequest struct {
	EnergyKwh       float64 `json:"energy_kwh"`
	DurationSeconds int64   `json:"duration_seconds"`
}

func (s *Server) StopSession(c *gin.Context) {
	if s.billingSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	sessionID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "session id is invalid"))
		return
	}

	var req stopSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.billingSvc.StopSession(c.Request.Context(), billingdomain.StopSessionRequest{
		SessionID:       sessionID,
		EnergyKwh:       req.EnergyKwh,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(record))
}

func (s *Server) BillSession(c *gin.Context) {
	if s.billingSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	sessionID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "session id is invalid"))
		return
	}

	record, err := s.billingSvc.BillSession(c.Request.Context(), sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(record))
}

func (s *Server) ResnapshotTariff(c *gin.Context) {
	if s.billingSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	sessionID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "session id is invalid"))
		return
	}

	record, err := s.billingSvc.ResnapshotTariff(c.Request.Context(), sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(record))
}

func (s *Server) GetSession(c *gin.Context) {
	if s.billingSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	sessionID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "session id is invalid"))
		return
	}

	record, err := s.billingSvc.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(record))
}

type listSessionsResponse struct {
	Sessions []sessionResponse    `json:"sessions"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

func (s *Server) ListSessions(c *gin.Context) {
	if s.sessions == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	workspaceID, err := parseID(c.Query("workspace_id"))
	if err != nil {
		AbortWithError(c, newValidationError("workspace_id", "invalid_id", "workspace_id is invalid"))
		return
	}

	pageSize := int32(50)
	if raw := strings.TrimSpace(c.Query("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, newValidationError("page_size", "invalid_page_size", "page_size must be a positive integer"))
			return
		}
		if parsed > 200 {
			parsed = 200
		}
		pageSize = int32(parsed)
	}

	cursor, err := pagination.DecodeCursor(c.Query("page_token"))
	if err != nil {
		AbortWithError(c, newValidationError("page_token", "invalid_page_token", "page_token is invalid"))
		return
	}

	filter := &sessiondomain.ChargingSession{WorkspaceID: workspaceID}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		filter.Status = sessiondomain.SessionStatus(raw)
	}

	opts := []repository.Option{
		func(query *gorm.DB) *gorm.DB {
			return query.Order("created_at DESC, id DESC").Limit(int(pageSize) + 1)
		},
	}
	if cursor.ID != "" {
		cursorID, err := parseID(cursor.ID)
		if err != nil {
			AbortWithError(c, newValidationError("page_token", "invalid_page_token", "page_token is invalid"))
			return
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			AbortWithError(c, newValidationError("page_token", "invalid_page_token", "page_token is invalid"))
			return
		}
		opts = append(opts, func(query *gorm.DB) *gorm.DB {
			return query.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, cursorID)
		})
	}

	records, err := s.sessions.Find(c.Request.Context(), filter, opts...)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pageInfo := pagination.BuildCursorPageInfo(records, pageSize, func(record *sessiondomain.ChargingSession) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        record.ID.String(),
			CreatedAt: record.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(records) > int(pageSize) {
		records = records[:pageSize]
	}

	sessions := make([]sessionResponse, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, toSessionResponse(record))
	}
	c.JSON(http.StatusOK, listSessionsResponse{Sessions: sessions, PageInfo: pageInfo})
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

func parseOptionalID(raw *string) (*snowflake.ID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := parseID(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
