package server

import (
	"net/http"
	"time"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

type leadRequest struct {
	Customer customerRequest `json:"customer"`

	LeadType    string     `json:"lead_type"`
	InquiryType string     `json:"inquiry_type"`
	Status      string     `json:"lead_status"`
	HandledAt   *time.Time `json:"handle_at,omitempty"`
}

// HandleCreateLead handles POST /v1/leads. The embedded customer is resolved
// find-or-create.
func (h *Handlers) HandleCreateLead(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	var req leadRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	status, err := model.ParseLeadStatus(req.Status)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	customer := req.Customer.toModel()
	if err := customer.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	lead := model.Lead{
		LeadType:    req.LeadType,
		InquiryType: req.InquiryType,
		Status:      status,
	}
	if req.HandledAt != nil {
		lead.HandledAt = *req.HandledAt
	}

	leadUUID, err := h.db.CreateLead(r.Context(), actorUUID, customer, lead)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{"uuid": leadUUID})
}

// HandleListLeads handles GET /v1/leads.
func (h *Handlers) HandleListLeads(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	leads, err := h.db.ListLeadsByOwner(r.Context(), actorUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, leads)
}

// HandleLeadsByCustomer handles GET /v1/customers/{customer_uuid}/leads.
func (h *Handlers) HandleLeadsByCustomer(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	customerUUID, err := pathUUID(r, "customer_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid customer uuid")
		return
	}
	leads, err := h.db.LeadsByCustomer(r.Context(), customerUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, leads)
}

type leadStatusRequest struct {
	Status string `json:"lead_status"`
}

// HandleUpdateLeadStatus handles PUT /v1/leads/{lead_uuid}/status.
func (h *Handlers) HandleUpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	leadUUID, err := pathUUID(r, "lead_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid lead uuid")
		return
	}
	var req leadStatusRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	status, err := model.ParseLeadStatus(req.Status)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if err := h.db.UpdateLeadStatus(r.Context(), leadUUID, status); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleReassignLeads handles POST /v1/leads/reassign (Leader only).
func (h *Handlers) HandleReassignLeads(w http.ResponseWriter, r *http.Request) {
	h.handleReassign(w, r, h.db.ReassignLeads)
}

// HandleDeleteLeads handles DELETE /v1/leads.
func (h *Handlers) HandleDeleteLeads(w http.ResponseWriter, r *http.Request) {
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
	if err := h.db.DeleteLeads(r.Context(), req.UUIDs); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}
