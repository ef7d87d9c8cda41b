package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

type recruitmentRequest struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Description string `json:"description,omitempty"`
}

func (req recruitmentRequest) toModel() model.Recruitment {
	return model.Recruitment{
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Description: req.Description,
	}
}

// HandleCreateRecruitment handles POST /v1/recruitments. Candidates are an
// organization-wide pool; a matching name, email or phone blind index is a
// conflict.
func (h *Handlers) HandleCreateRecruitment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	var req recruitmentRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	rec := req.toModel()
	if err := rec.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	recUUID, err := h.db.CreateRecruitment(r.Context(), rec)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]uuid.UUID{"uuid": recUUID})
}

// HandleListRecruitments handles GET /v1/recruitments.
func (h *Handlers) HandleListRecruitments(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	recs, err := h.db.ListRecruitments(r.Context())
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, recs)
}

// HandleGetRecruitment handles GET /v1/recruitments/{rec_uuid}.
func (h *Handlers) HandleGetRecruitment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	recUUID, err := pathUUID(r, "rec_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid recruitment uuid")
		return
	}
	rec, err := h.db.GetRecruitment(r.Context(), recUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

// HandleUpdateRecruitment handles PUT /v1/recruitments/{rec_uuid}. Empty
// fields keep their stored values.
func (h *Handlers) HandleUpdateRecruitment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	recUUID, err := pathUUID(r, "rec_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid recruitment uuid")
		return
	}
	var req recruitmentRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := h.db.UpdateRecruitment(r.Context(), recUUID, req.toModel()); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleDeleteRecruitment handles DELETE /v1/recruitments/{rec_uuid}.
func (h *Handlers) HandleDeleteRecruitment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	recUUID, err := pathUUID(r, "rec_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid recruitment uuid")
		return
	}
	if err := h.db.DeleteRecruitment(r.Context(), recUUID); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}
