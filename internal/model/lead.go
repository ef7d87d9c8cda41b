package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeadStatus tracks the handling state of an inbound inquiry.
type LeadStatus string

const (
	LeadOpened     LeadStatus = "Opened"
	LeadInProgress LeadStatus = "InProgress"
	LeadClosed     LeadStatus = "Closed"
)

// ParseLeadStatus parses the canonical stored spelling.
func ParseLeadStatus(s string) (LeadStatus, error) {
	switch LeadStatus(s) {
	case LeadOpened, LeadInProgress, LeadClosed:
		return LeadStatus(s), nil
	default:
		return "", fmt.Errorf("model: unknown lead status %q", s)
	}
}

// Lead is an inbound inquiry attached to a customer.
type Lead struct {
	ID          int64      `json:"-"`
	UUID        uuid.UUID  `json:"uuid"`
	LeadType    string     `json:"lead_type"`
	InquiryType string     `json:"inquiry_type"`
	Status      LeadStatus `json:"lead_status"`
	CustomerID  int64      `json:"-"`
	OwnerID     int64      `json:"-"`
	HandledAt   time.Time  `json:"handle_at"`
}

// LeadListItem joins a lead with its customer's decrypted contact fields.
type LeadListItem struct {
	Lead
	CustomerName  string `json:"full_name"`
	CustomerPhone string `json:"phone_number"`
	CustomerEmail string `json:"email"`
	CustomerAddr  string `json:"address"`
	CreatedBy     string `json:"created_by,omitempty"`
}
