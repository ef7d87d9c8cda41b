package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Recruitment is a candidate considered for joining the sales organization.
// Email and phone are sensitive and searchable; a candidate with a matching
// name, email or phone must not be registered twice.
type Recruitment struct {
	UUID        uuid.UUID `json:"uuid"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

// Validate checks the fields required for dedup matching.
func (r Recruitment) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("model: recruitment email is required")
	}
	if r.PhoneNumber == "" {
		return fmt.Errorf("model: recruitment phone number is required")
	}
	return nil
}
