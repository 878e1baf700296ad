package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/gridfare/gridfare/internal/payment/domain"
	"go.uber.org/zap"
)

type createHoldRequest struct {
	AmountEur float64 `json:"amount_eur"`
	Currency  string  `json:"currency"`
}

func (s *Server) CreateHold(c *gin.Context) {
	if s.paymentSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	sessionID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "session id is invalid"))
		return
	}

	var req createHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.paymentSvc.CreateHold(c.Request.Context(), paymentdomain.CreateHoldRequest{
		SessionID: sessionID,
		AmountEur: req.AmountEur,
		Currency:  req.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(record))
}

type captureHoldRequest struct {
	AmountEur *float64 `json:"amount_eur"`
}

func (s *Server) CaptureHold(c *gin.Context) {
	if s.paymentSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	sessionID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "session id is invalid"))
		return
	}

	var req captureHoldRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	record, err := s.paymentSvc.CaptureHold(c.Request.Context(), sessionID, req.AmountEur)
	if err != nil {
		// A repeat capture is a success for the caller, flagged so
		// clients can tell it apart from the first one.
		if errors.Is(err, paymentdomain.ErrAlreadyCaptured) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "already_captured",
				"session": toSessionResponse(record),
			})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(record))
}

func (s *Server) CancelHold(c *gin.Context) {
	if s.paymentSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	sessionID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "session id is invalid"))
		return
	}

	record, err := s.paymentSvc.CancelHold(c.Request.Context(), sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSessionResponse(record))
}

// IngestWebhook receives asynchronous provider deliveries. Duplicates answer
// 200 so the provider stops retrying.
func (s *Server) IngestWebhook(c *gin.Context) {
	if s.paymentSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.paymentSvc.IngestWebhook(c.Request.Context(), c.Param("provider"), payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
			c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
			return
		}
		s.log.Warn("webhook ingest failed",
			zap.String("provider", c.Param("provider")),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
