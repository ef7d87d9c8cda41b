package model

import "time"

// APIResponse is the standard envelope for single-object responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// PortfolioChart is the per-product contract count breakdown.
type PortfolioChart struct {
	BonusLifeProgram           int64 `json:"bonus_life_program"`
	LifeProgram                int64 `json:"life_program"`
	AllianzCareNow             int64 `json:"allianz_care_now"`
	HealthProgram              int64 `json:"health_program"`
	MyhomeHomeInsurance        int64 `json:"myhome_home_insurance"`
	MfoHomeInsurance           int64 `json:"mfo_home_insurance"`
	CorporatePropertyInsurance int64 `json:"corporate_property_insurance"`
	Kgfb                       int64 `json:"kgfb"`
	Casco                      int64 `json:"casco"`
	TravelInsurance            int64 `json:"travel_insurance"`
	CondominiumInsurance       int64 `json:"condominium_insurance"`
	AgriculturalInsurance      int64 `json:"agricultural_insurance"`
}

// WeeklyProductionChart is the per-weekday contract count within a window.
type WeeklyProductionChart struct {
	Monday    int64 `json:"monday"`
	Tuesday   int64 `json:"tuesday"`
	Wednesday int64 `json:"wednesday"`
	Thursday  int64 `json:"thursday"`
	Friday    int64 `json:"friday"`
	Saturday  int64 `json:"saturday"`
	Sunday    int64 `json:"sunday"`
}

// MonthlyProductionChart is one month's production split by week-of-month.
// Values are counts or fee sums depending on the query that produced them.
type MonthlyProductionChart struct {
	Month int16 `json:"month"`
	Week1 int64 `json:"week1"`
	Week2 int64 `json:"week2"`
	Week3 int64 `json:"week3"`
	Week4 int64 `json:"week4"`
	Week5 int64 `json:"week5"`
}
