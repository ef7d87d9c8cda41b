package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MeetingType categorizes a scheduled customer meeting.
type MeetingType string

const (
	MeetNeedsAssessment MeetingType = "NeedsAssessment"
	MeetConsultation    MeetingType = "Consultation"
	MeetService         MeetingType = "Service"
	MeetAnnualReview    MeetingType = "AnnualReview"
)

// ParseMeetingType parses the canonical stored spelling.
func ParseMeetingType(s string) (MeetingType, error) {
	switch MeetingType(s) {
	case MeetNeedsAssessment, MeetConsultation, MeetService, MeetAnnualReview:
		return MeetingType(s), nil
	default:
		return "", fmt.Errorf("model: unknown meeting type %q", s)
	}
}

// MeetingWeekChart counts meetings per weekday inside a date range.
type MeetingWeekChart struct {
	Monday    int64 `json:"monday"`
	Tuesday   int64 `json:"tuesday"`
	Wednesday int64 `json:"wednesday"`
	Thursday  int64 `json:"thursday"`
	Friday    int64 `json:"friday"`
	Saturday  int64 `json:"saturday"`
	Sunday    int64 `json:"sunday"`
}

// MeetingMonthChart counts meetings per calendar month inside a date range.
type MeetingMonthChart struct {
	January   int64 `json:"january"`
	February  int64 `json:"february"`
	March     int64 `json:"march"`
	April     int64 `json:"april"`
	May       int64 `json:"may"`
	June      int64 `json:"june"`
	July      int64 `json:"july"`
	August    int64 `json:"august"`
	September int64 `json:"september"`
	October   int64 `json:"october"`
	November  int64 `json:"november"`
	December  int64 `json:"december"`
}

// Meeting is a scheduled appointment in an agent's calendar. The contact
// phone number is sensitive and searchable; the name and location are not.
type Meeting struct {
	ID          int64       `json:"-"`
	UUID        uuid.UUID   `json:"uuid"`
	MeetDate    time.Time   `json:"meet_date"`
	FullName    string      `json:"full_name"`
	PhoneNumber string      `json:"phone_number"`
	Location    string      `json:"meet_location"`
	Type        MeetingType `json:"meet_type"`
	IsCompleted bool        `json:"is_completed"`
	OwnerID     int64       `json:"-"`
	CreatedBy   string      `json:"created_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
