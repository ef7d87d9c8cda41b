package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the processing state of an intervention task.
type TaskStatus string

const (
	TaskPending         TaskStatus = "Pending"
	TaskPaymentPromise  TaskStatus = "PaymentPromise"
	TaskProcessed       TaskStatus = "Processed"
	TaskNonpayment      TaskStatus = "Nonpayment"
	TaskPendingDeletion TaskStatus = "PendingDeletion"
)

// ParseTaskStatus parses the canonical stored spelling.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case TaskPending, TaskPaymentPromise, TaskProcessed, TaskNonpayment, TaskPendingDeletion:
		return TaskStatus(s), nil
	default:
		return "", fmt.Errorf("model: unknown task status %q", s)
	}
}

// InterventionTask is a collections follow-up on an outstanding contract
// balance, attached to the customer that owes it.
type InterventionTask struct {
	ID                 int64      `json:"-"`
	UUID               uuid.UUID  `json:"uuid"`
	ContractNumber     string     `json:"contract_number"`
	ProductName        string     `json:"product_name"`
	OutstandingDays    int32      `json:"outstanding_days"`
	Balance            int32      `json:"balance"`
	ProcessingDeadline time.Time  `json:"processing_deadline"`
	Comment            string     `json:"comment,omitempty"`
	Status             TaskStatus `json:"status"`
	CustomerID         int64      `json:"-"`
	OwnerID            int64      `json:"-"`
	CreatedBy          string     `json:"created_by,omitempty"`
}

// TaskListItem joins a task with its customer's decrypted contact fields.
type TaskListItem struct {
	InterventionTask
	CustomerName  string `json:"full_name"`
	CustomerPhone string `json:"phone_number"`
	CustomerEmail string `json:"email"`
	CustomerAddr  string `json:"address"`
}
