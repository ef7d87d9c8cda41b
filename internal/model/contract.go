package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ContractType enumerates the insurance products a contract can cover.
type ContractType string

const (
	ContractBonusLifeProgram           ContractType = "BonusLifeProgram"
	ContractLifeProgram                ContractType = "LifeProgram"
	ContractAllianzCareNow             ContractType = "AllianzCareNow"
	ContractHealthProgram              ContractType = "HealthProgram"
	ContractMyhomeHomeInsurance        ContractType = "MyhomeHomeInsurance"
	ContractMfoHomeInsurance           ContractType = "MfoHomeInsurance"
	ContractCorporatePropertyInsurance ContractType = "CorporatePropertyInsurance"
	ContractKgfb                       ContractType = "Kgfb"
	ContractCasco                      ContractType = "Casco"
	ContractTravelInsurance            ContractType = "TravelInsurance"
	ContractCondominiumInsurance       ContractType = "CondominiumInsurance"
	ContractAgriculturalInsurance      ContractType = "AgriculturalInsurance"
)

// ParseContractType parses the canonical stored spelling.
func ParseContractType(s string) (ContractType, error) {
	switch ContractType(s) {
	case ContractBonusLifeProgram, ContractLifeProgram, ContractAllianzCareNow,
		ContractHealthProgram, ContractMyhomeHomeInsurance, ContractMfoHomeInsurance,
		ContractCorporatePropertyInsurance, ContractKgfb, ContractCasco,
		ContractTravelInsurance, ContractCondominiumInsurance, ContractAgriculturalInsurance:
		return ContractType(s), nil
	default:
		return "", fmt.Errorf("model: unknown contract type %q", s)
	}
}

// PaymentFrequency is how often the contract fee is collected.
type PaymentFrequency string

const (
	PayMonthly    PaymentFrequency = "Monthly"
	PayQuarterly  PaymentFrequency = "Quarterly"
	PaySemiannual PaymentFrequency = "Semiannual"
	PayAnnual     PaymentFrequency = "Annual"
)

// ParsePaymentFrequency parses the canonical stored spelling.
func ParsePaymentFrequency(s string) (PaymentFrequency, error) {
	switch PaymentFrequency(s) {
	case PayMonthly, PayQuarterly, PaySemiannual, PayAnnual:
		return PaymentFrequency(s), nil
	default:
		return "", fmt.Errorf("model: unknown payment frequency %q", s)
	}
}

// PaymentMethod is the collection channel for the contract fee.
type PaymentMethod string

const (
	PayCreditCard  PaymentMethod = "CreditCard"
	PayTransfer    PaymentMethod = "Transfer"
	PayDirectDebit PaymentMethod = "DirectDebit"
	PayCheck       PaymentMethod = "Check"
)

// ParsePaymentMethod parses the canonical stored spelling.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PayCreditCard, PayTransfer, PayDirectDebit, PayCheck:
		return PaymentMethod(s), nil
	default:
		return "", fmt.Errorf("model: unknown payment method %q", s)
	}
}

// Contract is one insurance contract belonging to a customer.
// OwnerID is the currently responsible agent; it starts as the creator and
// can be bulk-reassigned independently of the customer's owner.
type Contract struct {
	ID               int64            `json:"-"`
	UUID             uuid.UUID        `json:"uuid"`
	ContractNumber   string           `json:"contract_number"`
	ContractType     ContractType     `json:"contract_type"`
	AnnualFee        int32            `json:"annual_fee"`
	FirstPayment     bool             `json:"first_payment"`
	PaymentFrequency PaymentFrequency `json:"payment_frequency"`
	PaymentMethod    PaymentMethod    `json:"payment_method"`
	CustomerID       int64            `json:"-"`
	OwnerID          int64            `json:"-"`
	CreatedBy        string           `json:"created_by,omitempty"`
	HandledAt        time.Time        `json:"handle_at"`
}

// ContractListItem joins a contract with its customer's decrypted contact
// fields for list views. Never carries ciphertext, nonces or hashes.
type ContractListItem struct {
	Contract
	CustomerName  string `json:"full_name"`
	CustomerPhone string `json:"phone_number"`
	CustomerEmail string `json:"email"`
	CustomerAddr  string `json:"address"`
}
