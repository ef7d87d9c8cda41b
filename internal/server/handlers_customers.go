package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

type customerRequest struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	Comment     string `json:"comment,omitempty"`
}

func (req customerRequest) toModel() model.Customer {
	return model.Customer{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Address:     req.Address,
		Comment:     req.Comment,
	}
}

// HandleCreateCustomer handles POST /v1/customers. Resolution is
// find-or-create on the email and phone blind indexes; a direct create that
// lands on an existing person is a conflict rather than a silent reuse.
func (h *Handlers) HandleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	var req customerRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	customer := req.toModel()
	if err := customer.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	_, created, err := h.db.ResolveCustomer(r.Context(), actorUUID, customer)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	if !created {
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "customer already exists")
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]string{"status": "created"})
}

// HandleListCustomers handles GET /v1/customers.
func (h *Handlers) HandleListCustomers(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	customers, err := h.db.ListCustomersByOwner(r.Context(), actorUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, customers)
}

// HandleGetCustomer handles GET /v1/customers/{customer_uuid}.
func (h *Handlers) HandleGetCustomer(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	customerUUID, err := pathUUID(r, "customer_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid customer uuid")
		return
	}
	customer, err := h.db.GetCustomer(r.Context(), customerUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, customer)
}

// HandleUpdateCustomer handles PUT /v1/customers/{customer_uuid}. Empty
// fields keep their stored values; all sensitive fields are re-encrypted
// with fresh nonces.
func (h *Handlers) HandleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	customerUUID, err := pathUUID(r, "customer_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid customer uuid")
		return
	}
	var req customerRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := h.db.UpdateCustomer(r.Context(), customerUUID, req.toModel()); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

type commentRequest struct {
	Comment string `json:"comment"`
}

// HandleSaveCustomerComment handles PUT /v1/customers/{customer_uuid}/comment.
func (h *Handlers) HandleSaveCustomerComment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	customerUUID, err := pathUUID(r, "customer_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid customer uuid")
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := h.db.SaveCustomerComment(r.Context(), customerUUID, req.Comment); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

type reassignRequest struct {
	OwnerFullName string      `json:"owner_full_name"`
	UUIDs         []uuid.UUID `json:"uuids"`
}

func (req reassignRequest) validate() string {
	if req.OwnerFullName == "" {
		return "owner_full_name is required"
	}
	if len(req.UUIDs) == 0 {
		return "uuids must not be empty"
	}
	return ""
}

// handleReassign implements the shared bulk-reassignment flow: Leader only,
// target user resolved by display name once for the whole batch.
func (h *Handlers) handleReassign(w http.ResponseWriter, r *http.Request,
	reassign func(ctx context.Context, targetFullName string, ids []uuid.UUID) error) {
	if _, ok := h.requireActor(w, r, model.RoleLeader); !ok {
		return
	}
	var req reassignRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, msg)
		return
	}
	if err := reassign(r.Context(), req.OwnerFullName, req.UUIDs); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "reassigned"})
}

// HandleReassignCustomers handles POST /v1/customers/reassign (Leader only).
func (h *Handlers) HandleReassignCustomers(w http.ResponseWriter, r *http.Request) {
	h.handleReassign(w, r, h.db.ReassignCustomers)
}

type deleteRequest struct {
	UUIDs []uuid.UUID `json:"uuids"`
}

// HandleDeleteCustomers handles DELETE /v1/customers. Dependent contracts,
// leads and tasks cascade.
func (h *Handlers) HandleDeleteCustomers(w http.ResponseWriter, r *http.Request) {
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
	if err := h.db.DeleteCustomers(r.Context(), req.UUIDs); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}
