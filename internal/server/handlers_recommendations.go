package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

type recommendationRequest struct {
	FullName     string `json:"full_name"`
	PhoneNumber  string `json:"phone_number"`
	City         string `json:"city"`
	ReferralName string `json:"referral_name"`
}

func (req recommendationRequest) toModel() model.Recommendation {
	return model.Recommendation{
		FullName:     req.FullName,
		PhoneNumber:  req.PhoneNumber,
		City:         req.City,
		ReferralName: req.ReferralName,
	}
}

// HandleCreateRecommendation handles POST /v1/recommendations. A matching
// name or phone blind index is a conflict.
func (h *Handlers) HandleCreateRecommendation(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	var req recommendationRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.FullName == "" || req.PhoneNumber == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "full_name and phone_number are required")
		return
	}

	recUUID, err := h.db.CreateRecommendation(r.Context(), actorUUID, req.toModel())
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]uuid.UUID{"uuid": recUUID})
}

// HandleListRecommendations handles GET /v1/recommendations.
func (h *Handlers) HandleListRecommendations(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	recs, err := h.db.ListRecommendationsByOwner(r.Context(), actorUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, recs)
}

// HandleGetRecommendation handles GET /v1/recommendations/{rec_uuid}.
func (h *Handlers) HandleGetRecommendation(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	recUUID, err := pathUUID(r, "rec_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid recommendation uuid")
		return
	}
	rec, err := h.db.GetRecommendation(r.Context(), recUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

// HandleUpdateRecommendation handles PUT /v1/recommendations/{rec_uuid}.
// Empty fields keep their stored values.
func (h *Handlers) HandleUpdateRecommendation(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	recUUID, err := pathUUID(r, "rec_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid recommendation uuid")
		return
	}
	var req recommendationRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := h.db.UpdateRecommendation(r.Context(), recUUID, req.toModel()); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleReassignRecommendations handles POST /v1/recommendations/reassign (Leader only).
func (h *Handlers) HandleReassignRecommendations(w http.ResponseWriter, r *http.Request) {
	h.handleReassign(w, r, h.db.ReassignRecommendations)
}

// HandleDeleteRecommendations handles DELETE /v1/recommendations.
func (h *Handlers) HandleDeleteRecommendations(w http.ResponseWriter, r *http.Request) {
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
	if err := h.db.DeleteRecommendations(r.Context(), req.UUIDs); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}
