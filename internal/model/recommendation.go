package model

import "github.com/google/uuid"

// Recommendation is a referral: an existing customer named someone worth
// contacting. Phone is sensitive and searchable, city is sensitive only.
// Recommendations are standalone; they never link to a Customer row.
type Recommendation struct {
	UUID         uuid.UUID `json:"uuid"`
	FullName     string    `json:"full_name"`
	PhoneNumber  string    `json:"phone_number"`
	City         string    `json:"city"`
	ReferralName string    `json:"referral_name"`
	OwnerID      int64     `json:"-"`
	CreatedBy    string    `json:"created_by,omitempty"`
}
