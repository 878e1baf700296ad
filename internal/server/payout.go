package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	payoutdomain "github.com/gridfare/gridfare/internal/payout/domain"
)

type generatePayoutRequest struct {
	WorkspaceID string    `json:"workspace_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Mode        string    `json:"mode"`
}

func (s *Server) GeneratePayout(c *gin.Context) {
	if s.payoutSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req generatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	workspaceID, err := parseID(req.WorkspaceID)
	if err != nil {
		AbortWithError(c, newValidationError("workspace_id", "invalid_id", "workspace_id is invalid"))
		return
	}

	var mode payoutdomain.Mode
	switch strings.ToLower(strings.TrimSpace(req.Mode)) {
	case string(payoutdomain.ModePreview), "":
		mode = payoutdomain.ModePreview
	case string(payoutdomain.ModeCommit):
		mode = payoutdomain.ModeCommit
	default:
		AbortWithError(c, newValidationError("mode", "invalid_mode", "mode must be preview or commit"))
		return
	}

	statement, err := s.payoutSvc.Generate(c.Request.Context(), payoutdomain.GenerateRequest{
		WorkspaceID: workspaceID,
		PeriodStart: req.PeriodStart.UTC(),
		PeriodEnd:   req.PeriodEnd.UTC(),
		Mode:        mode,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if mode == payoutdomain.ModeCommit {
		status = http.StatusCreated
	}
	c.JSON(status, toPayoutStatementResponse(statement))
}

func (s *Server) GetPayout(c *gin.Context) {
	if s.payoutSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	statementID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "statement id is invalid"))
		return
	}

	statement, err := s.payoutSvc.GetStatement(c.Request.Context(), statementID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPayoutStatementResponse(statement))
}

func (s *Server) IssuePayout(c *gin.Context) {
	s.advancePayout(c, payoutdomain.Service.MarkIssued)
}

func (s *Server) PayPayout(c *gin.Context) {
	s.advancePayout(c, payoutdomain.Service.MarkPaid)
}

func (s *Server) CancelPayout(c *gin.Context) {
	s.advancePayout(c, payoutdomain.Service.Cancel)
}

func (s *Server) advancePayout(
	c *gin.Context,
	advance func(payoutdomain.Service, context.Context, snowflake.ID) (*payoutdomain.PayoutStatement, error),
) {
	if s.payoutSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	statementID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "statement id is invalid"))
		return
	}

	header, err := advance(s.payoutSvc, c.Request.Context(), statementID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPayoutHeaderResponse(header))
}
