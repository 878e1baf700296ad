package server

import (
	"time"

	"github.com/bwmarrin/snowflake"
	payoutdomain "github.com/gridfare/gridfare/internal/payout/domain"
	sessiondomain "github.com/gridfare/gridfare/internal/session/domain"
	tariffdomain "github.com/gridfare/gridfare/internal/tariff/domain"
)

type sessionResponse struct {
	ID          string  `json:"id"`
	WorkspaceID string  `json:"workspace_id"`
	StationID   string  `json:"station_id"`
	ConnectorID *string `json:"connector_id,omitempty"`
	EndUserID   string  `json:"end_user_id"`

	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	EnergyKwh       float64    `json:"energy_kwh"`
	DurationSeconds int64      `json:"duration_seconds"`

	Status        string `json:"status"`
	BillingStatus string `json:"billing_status"`
	PaymentStatus string `json:"payment_status"`

	TariffProfileID *string `json:"tariff_profile_id,omitempty"`
	TariffVersion   *int    `json:"tariff_version,omitempty"`
	Currency        string  `json:"currency"`

	GrossAmount           *float64   `json:"gross_amount,omitempty"`
	PlatformFeeAmount     *float64   `json:"platform_fee_amount,omitempty"`
	OperatorEarningAmount *float64   `json:"operator_earning_amount,omitempty"`
	BilledAt              *time.Time `json:"billed_at,omitempty"`

	PaymentIntentID         *string    `json:"payment_intent_id,omitempty"`
	HoldAmountCents         *int64     `json:"hold_amount_cents,omitempty"`
	CapturedAmountCents     *int64     `json:"captured_amount_cents,omitempty"`
	PaidAt                  *time.Time `json:"paid_at,omitempty"`
	PaymentLastErrorCode    *string    `json:"payment_last_error_code,omitempty"`
	PaymentLastErrorMessage *string    `json:"payment_last_error_message,omitempty"`

	RoamingType        string   `json:"roaming_type"`
	ClearingStatus     string   `json:"clearing_status"`
	HubjectSessionID   *string  `json:"hubject_session_id,omitempty"`
	RoamingGrossAmount *float64 `json:"roaming_gross_amount,omitempty"`
	RoamingNetAmount   *float64 `json:"roaming_net_amount,omitempty"`
	DisputeReason      *string  `json:"dispute_reason,omitempty"`

	PayoutStatementID *string `json:"payout_statement_id,omitempty"`
}

func toSessionResponse(record *sessiondomain.ChargingSession) sessionResponse {
	return sessionResponse{
		ID:          record.ID.String(),
		WorkspaceID: record.WorkspaceID.String(),
		StationID:   record.StationID.String(),
		ConnectorID: idString(record.ConnectorID),
		EndUserID:   record.EndUserID.String(),

		StartTime:       record.StartTime,
		EndTime:         record.EndTime,
		EnergyKwh:       record.EnergyKwh,
		DurationSeconds: record.DurationSeconds,

		Status:        string(record.Status),
		BillingStatus: string(record.BillingStatus),
		PaymentStatus: string(record.PaymentStatus),

		TariffProfileID: idString(record.TariffProfileID),
		TariffVersion:   record.TariffVersion,
		Currency:        record.Currency,

		GrossAmount:           record.GrossAmount,
		PlatformFeeAmount:     record.PlatformFeeAmount,
		OperatorEarningAmount: record.OperatorEarningAmount,
		BilledAt:              record.BilledAt,

		PaymentIntentID:         record.StripePaymentIntentID,
		HoldAmountCents:         record.HoldAmountCents,
		CapturedAmountCents:     record.CapturedAmountCents,
		PaidAt:                  record.PaidAt,
		PaymentLastErrorCode:    record.PaymentLastErrorCode,
		PaymentLastErrorMessage: record.PaymentLastErrorMessage,

		RoamingType:        string(record.RoamingType),
		ClearingStatus:     string(record.ClearingStatus),
		HubjectSessionID:   record.HubjectSessionID,
		RoamingGrossAmount: record.RoamingGrossAmount,
		RoamingNetAmount:   record.RoamingNetAmount,
		DisputeReason:      record.DisputeReason,

		PayoutStatementID: idString(record.PayoutStatementID),
	}
}

type tariffProfileResponse struct {
	ID                 string     `json:"id"`
	WorkspaceID        string     `json:"workspace_id"`
	Name               string     `json:"name"`
	BasePricePerKwh    float64    `json:"base_price_per_kwh"`
	PricePerMinute     float64    `json:"price_per_minute"`
	SessionStartFee    float64    `json:"session_start_fee"`
	PlatformFeePercent float64    `json:"platform_fee_percent"`
	Currency           string     `json:"currency"`
	Active             bool       `json:"active"`
	Lifecycle          string     `json:"lifecycle"`
	ValidFrom          time.Time  `json:"valid_from"`
	ValidUntil         *time.Time `json:"valid_until,omitempty"`
	Version            int        `json:"version"`
}

func toTariffProfileResponse(profile *tariffdomain.TariffProfile) tariffProfileResponse {
	return tariffProfileResponse{
		ID:                 profile.ID.String(),
		WorkspaceID:        profile.WorkspaceID.String(),
		Name:               profile.Name,
		BasePricePerKwh:    profile.BasePricePerKwh,
		PricePerMinute:     profile.PricePerMinute,
		SessionStartFee:    profile.SessionStartFee,
		PlatformFeePercent: profile.PlatformFeePercent,
		Currency:           profile.Currency,
		Active:             profile.Active,
		Lifecycle:          string(profile.Lifecycle),
		ValidFrom:          profile.ValidFrom,
		ValidUntil:         profile.ValidUntil,
		Version:            profile.Version,
	}
}

type tariffAssignmentResponse struct {
	ID              string     `json:"id"`
	WorkspaceID     string     `json:"workspace_id"`
	TariffProfileID string     `json:"tariff_profile_id"`
	StationID       string     `json:"station_id"`
	ConnectorID     *string    `json:"connector_id,omitempty"`
	ValidFrom       time.Time  `json:"valid_from"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
}

func toTariffAssignmentResponse(assignment *tariffdomain.TariffAssignment) tariffAssignmentResponse {
	return tariffAssignmentResponse{
		ID:              assignment.ID.String(),
		WorkspaceID:     assignment.WorkspaceID.String(),
		TariffProfileID: assignment.TariffProfileID.String(),
		StationID:       assignment.StationID.String(),
		ConnectorID:     idString(assignment.ConnectorID),
		ValidFrom:       assignment.ValidFrom,
		ValidUntil:      assignment.ValidUntil,
	}
}

type payoutLineItemResponse struct {
	SessionID             string    `json:"session_id"`
	StartTime             time.Time `json:"start_time"`
	EnergyKwh             float64   `json:"energy_kwh"`
	GrossAmount           float64   `json:"gross_amount"`
	PlatformFeeAmount     float64   `json:"platform_fee_amount"`
	OperatorEarningAmount float64   `json:"operator_earning_amount"`
	Currency              string    `json:"currency"`
}

type payoutStatementResponse struct {
	ID              string    `json:"id,omitempty"`
	WorkspaceID     string    `json:"workspace_id"`
	StatementNumber string    `json:"statement_number"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	Status          string    `json:"status"`

	SessionCount               int     `json:"session_count"`
	TotalEnergyKwh             float64 `json:"total_energy_kwh"`
	TotalGrossAmount           float64 `json:"total_gross_amount"`
	TotalPlatformFeeAmount     float64 `json:"total_platform_fee_amount"`
	TotalOperatorEarningAmount float64 `json:"total_operator_earning_amount"`
	Currency                   string  `json:"currency"`

	LineItems []payoutLineItemResponse `json:"line_items,omitempty"`
}

func toPayoutStatementResponse(statement *payoutdomain.Statement) payoutStatementResponse {
	resp := payoutStatementResponse{
		WorkspaceID:     statement.WorkspaceID.String(),
		StatementNumber: statement.StatementNumber,
		PeriodStart:     statement.PeriodStart,
		PeriodEnd:       statement.PeriodEnd,
		Status:          string(statement.Status),

		SessionCount:               statement.SessionCount,
		TotalEnergyKwh:             statement.TotalEnergyKwh,
		TotalGrossAmount:           statement.TotalGrossAmount,
		TotalPlatformFeeAmount:     statement.TotalPlatformFeeAmount,
		TotalOperatorEarningAmount: statement.TotalOperatorEarningAmount,
		Currency:                   statement.Currency,
	}
	if statement.ID != 0 {
		resp.ID = statement.ID.String()
	}
	for _, item := range statement.LineItems {
		resp.LineItems = append(resp.LineItems, payoutLineItemResponse{
			SessionID:             item.SessionID.String(),
			StartTime:             item.StartTime,
			EnergyKwh:             item.EnergyKwh,
			GrossAmount:           item.GrossAmount,
			PlatformFeeAmount:     item.PlatformFeeAmount,
			OperatorEarningAmount: item.OperatorEarningAmount,
			Currency:              item.Currency,
		})
	}
	return resp
}

func toPayoutHeaderResponse(header *payoutdomain.PayoutStatement) payoutStatementResponse {
	return toPayoutStatementResponse(&payoutdomain.Statement{PayoutStatement: *header})
}

func idString(id *snowflake.ID) *string {
	if id == nil {
		return nil
	}
	value := id.String()
	return &value
}
