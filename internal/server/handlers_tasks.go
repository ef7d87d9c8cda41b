package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

type taskRequest struct {
	Customer customerRequest `json:"customer"`

	ContractNumber     string    `json:"contract_number"`
	ProductName        string    `json:"product_name"`
	OutstandingDays    int32     `json:"outstanding_days"`
	Balance            int32     `json:"balance"`
	ProcessingDeadline time.Time `json:"processing_deadline"`
	Comment            string    `json:"comment,omitempty"`
	Status             string    `json:"status"`
}

func (req taskRequest) toModel() (model.InterventionTask, error) {
	status, err := model.ParseTaskStatus(req.Status)
	if err != nil {
		return model.InterventionTask{}, err
	}
	return model.InterventionTask{
		ContractNumber:     req.ContractNumber,
		ProductName:        req.ProductName,
		OutstandingDays:    req.OutstandingDays,
		Balance:            req.Balance,
		ProcessingDeadline: req.ProcessingDeadline,
		Comment:            req.Comment,
		Status:             status,
	}, nil
}

// HandleCreateTask handles POST /v1/tasks. The embedded customer is resolved
// find-or-create.
func (h *Handlers) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	var req taskRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	task, err := req.toModel()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	customer := req.Customer.toModel()
	if err := customer.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	taskUUID, err := h.db.CreateInterventionTask(r.Context(), actorUUID, customer, task)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]uuid.UUID{"uuid": taskUUID})
}

// HandleListTasks handles GET /v1/tasks.
func (h *Handlers) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	tasks, err := h.db.ListTasksByOwner(r.Context(), actorUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tasks)
}

// HandleTasksByCustomer handles GET /v1/customers/{customer_uuid}/tasks.
func (h *Handlers) HandleTasksByCustomer(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	customerUUID, err := pathUUID(r, "customer_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid customer uuid")
		return
	}
	tasks, err := h.db.TasksByCustomer(r.Context(), customerUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tasks)
}

// HandleGetTask handles GET /v1/tasks/{task_uuid}.
func (h *Handlers) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	taskUUID, err := pathUUID(r, "task_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid task uuid")
		return
	}
	task, err := h.db.GetInterventionTask(r.Context(), taskUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, task)
}

// HandleTaskCustomer handles GET /v1/tasks/{task_uuid}/customer.
func (h *Handlers) HandleTaskCustomer(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	taskUUID, err := pathUUID(r, "task_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid task uuid")
		return
	}
	customerUUID, err := h.db.TaskCustomerUUID(r.Context(), taskUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]uuid.UUID{"customer_uuid": customerUUID})
}

// HandleUpdateTask handles PUT /v1/tasks/{task_uuid}.
func (h *Handlers) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	taskUUID, err := pathUUID(r, "task_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid task uuid")
		return
	}
	var req taskRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	task, err := req.toModel()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if err := h.db.UpdateInterventionTask(r.Context(), taskUUID, task); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleReassignTasks handles POST /v1/tasks/reassign (Leader only).
func (h *Handlers) HandleReassignTasks(w http.ResponseWriter, r *http.Request) {
	h.handleReassign(w, r, h.db.ReassignTasks)
}

// HandleDeleteTasks handles DELETE /v1/tasks.
func (h *Handlers) HandleDeleteTasks(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	var req deleteRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if len(req.UUIDs) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "uuids must not be empty")
		return
	}
	if err := h.db.DeleteTasks(r.Context(), req.UUIDs); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}
