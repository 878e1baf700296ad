// Package stripe implements the outbound processor client against the
// Stripe payment-intents API.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gridfare/gridfare/internal/config"
	"github.com/gridfare/gridfare/internal/observability/metrics"
	paymentdomain "github.com/gridfare/gridfare/internal/payment/domain"
	"go.uber.org/zap"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
	metrics *metrics.BillingMetrics
}

// NewClient builds the processor client. The HTTP timeout bounds every call;
// a call past the bound fails instead of hanging a session in HOLD_PENDING.
func NewClient(cfg config.Config, log *zap.Logger, billingMetrics *metrics.BillingMetrics) *Client {
	timeout := cfg.ProcessorTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.ProcessorBaseURL, "/"),
		apiKey:  cfg.StripeAPIKey,
		http:    &http.Client{Timeout: timeout},
		log:     log.Named("payment.processor"),
		metrics: billingMetrics,
	}
}

type intentResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	AmountReceived int64  `json:"amount_received"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) CreateHold(ctx context.Context, req paymentdomain.HoldRequest) (*paymentdomain.HoldResult, error) {
	if req.AmountCents <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("capture_method", "manual")
	form.Set("confirm", "true")
	if req.EndUserRef != "" {
		form.Set("metadata[end_user_id]", req.EndUserRef)
	}
	if req.SessionRef != "" {
		form.Set("metadata[session_id]", req.SessionRef)
	}

	var resp intentResponse
	if err := c.call(ctx, "create_hold", "/v1/payment_intents", form, req.IdempotencyKey, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: empty intent id", paymentdomain.ErrProcessorUnavailable)
	}
	return &paymentdomain.HoldResult{IntentID: resp.ID}, nil
}

func (c *Client) Capture(ctx context.Context, intentID string, amountCents int64) (*paymentdomain.CaptureResult, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, paymentdomain.ErrMissingIntent
	}
	if amountCents <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}

	form := url.Values{}
	form.Set("amount_to_capture", strconv.FormatInt(amountCents, 10))

	var resp intentResponse
	path := "/v1/payment_intents/" + url.PathEscape(intentID) + "/capture"
	if err := c.call(ctx, "capture", path, form, uuid.NewString(), &resp); err != nil {
		return nil, err
	}

	// The processor's figure is authoritative; the requested amount is not
	// echoed back into the session.
	captured := resp.AmountReceived
	if captured == 0 {
		captured = amountCents
	}
	return &paymentdomain.CaptureResult{CapturedAmountCents: captured}, nil
}

func (c *Client) Cancel(ctx context.Context, intentID string) error {
	if strings.TrimSpace(intentID) == "" {
		return paymentdomain.ErrMissingIntent
	}
	path := "/v1/payment_intents/" + url.PathEscape(intentID) + "/cancel"
	var resp intentResponse
	return c.call(ctx, "cancel", path, url.Values{}, uuid.NewString(), &resp)
}

func (c *Client) call(ctx context.Context, operation, path string, form url.Values, idempotencyKey string, out any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		request.Header.Set("Idempotency-Key", idempotencyKey)
	}

	started := time.Now()
	response, err := c.http.Do(request)
	if err != nil {
		c.observe(operation, "error", started)
		c.log.Warn("processor call failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", paymentdomain.ErrProcessorUnavailable, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		c.observe(operation, "error", started)
		return fmt.Errorf("%w: %v", paymentdomain.ErrProcessorUnavailable, err)
	}

	if response.StatusCode >= 400 {
		c.observe(operation, "error", started)
		var decline errorResponse
		if err := json.Unmarshal(body, &decline); err == nil && decline.Error.Message != "" {
			return &paymentdomain.ProcessorError{
				Code:    decline.Error.Code,
				Message: decline.Error.Message,
			}
		}
		if response.StatusCode >= 500 {
			return fmt.Errorf("%w: status %d", paymentdomain.ErrProcessorUnavailable, response.StatusCode)
		}
		return &paymentdomain.ProcessorError{
			Code:    "http_" + strconv.Itoa(response.StatusCode),
			Message: "processor rejected the request",
		}
	}

	c.observe(operation, "ok", started)
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", paymentdomain.ErrProcessorUnavailable, err)
	}
	return nil
}

func (c *Client) observe(operation, result string, started time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveProcessorCall(operation, result, time.Since(started))
}
