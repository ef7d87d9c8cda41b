package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Customer is the canonical holder of a real person's contact data.
// Contracts, leads and intervention tasks reference a customer by internal
// id and never embed PII themselves. Phone, email and address are sensitive;
// phone and email additionally support blind-index equality search.
type Customer struct {
	ID          int64     `json:"-"`
	UUID        uuid.UUID `json:"uuid"`
	FullName    string    `json:"full_name"`
	PhoneNumber string    `json:"phone_number"`
	Email       string    `json:"email"`
	Address     string    `json:"address"`
	Comment     string    `json:"comment,omitempty"`
	OwnerID     int64     `json:"-"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

// Validate checks the fields required before a customer can be resolved:
// dedup matching needs both searchable values present.
func (c Customer) Validate() error {
	if c.FullName == "" {
		return fmt.Errorf("model: customer full name is required")
	}
	if c.Email == "" {
		return fmt.Errorf("model: customer email is required")
	}
	if c.PhoneNumber == "" {
		return fmt.Errorf("model: customer phone number is required")
	}
	return nil
}
