package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

type meetingRequest struct {
	MeetDate    time.Time `json:"meet_date"`
	FullName    string    `json:"full_name"`
	PhoneNumber string    `json:"phone_number"`
	Location    string    `json:"meet_location"`
	Type        string    `json:"meet_type"`
}

func (req meetingRequest) toModel() (model.Meeting, error) {
	meetType, err := model.ParseMeetingType(req.Type)
	if err != nil {
		return model.Meeting{}, err
	}
	return model.Meeting{
		MeetDate:    req.MeetDate,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Location:    req.Location,
		Type:        meetType,
	}, nil
}

// HandleCreateMeeting handles POST /v1/meetings.
func (h *Handlers) HandleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	var req meetingRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.FullName == "" || req.PhoneNumber == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "full_name and phone_number are required")
		return
	}
	meeting, err := req.toModel()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	meetingUUID, err := h.db.CreateMeeting(r.Context(), actorUUID, meeting)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]uuid.UUID{"uuid": meetingUUID})
}

// HandleListMeetings handles GET /v1/meetings?month=N.
func (h *Handlers) HandleListMeetings(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "month must be between 1 and 12")
		return
	}
	meetings, err := h.db.ListMeetingsByMonth(r.Context(), actorUUID, month)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, meetings)
}

// HandleGetMeeting handles GET /v1/meetings/{meeting_uuid}.
func (h *Handlers) HandleGetMeeting(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	meetingUUID, err := pathUUID(r, "meeting_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid meeting uuid")
		return
	}
	meeting, err := h.db.GetMeeting(r.Context(), meetingUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, meeting)
}

// HandleUpdateMeeting handles PUT /v1/meetings/{meeting_uuid}. An empty
// phone number keeps the stored value.
func (h *Handlers) HandleUpdateMeeting(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	meetingUUID, err := pathUUID(r, "meeting_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid meeting uuid")
		return
	}
	var req meetingRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	meeting, err := req.toModel()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if err := h.db.UpdateMeeting(r.Context(), meetingUUID, meeting); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

type completedRequest struct {
	Completed bool `json:"completed"`
}

// HandleSetMeetingCompleted handles PUT /v1/meetings/{meeting_uuid}/completed.
func (h *Handlers) HandleSetMeetingCompleted(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	meetingUUID, err := pathUUID(r, "meeting_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid meeting uuid")
		return
	}
	var req completedRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := h.db.SetMeetingCompleted(r.Context(), meetingUUID, req.Completed); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleReassignMeetings handles POST /v1/meetings/reassign (Leader only).
func (h *Handlers) HandleReassignMeetings(w http.ResponseWriter, r *http.Request) {
	h.handleReassign(w, r, h.db.ReassignMeetings)
}

// HandleDeleteMeetings handles DELETE /v1/meetings.
func (h *Handlers) HandleDeleteMeetings(w http.ResponseWriter, r *http.Request) {
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
	if err := h.db.DeleteMeetings(r.Context(), req.UUIDs); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleMeetingCompletionChart handles GET /v1/charts/meetings/completion (Manager+).
func (h *Handlers) HandleMeetingCompletionChart(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleManager); !ok {
		return
	}
	owner, err := chartOwner(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid owner uuid")
		return
	}
	completed, pending, err := h.db.MeetingCompletionChart(r.Context(), owner)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int64{"completed": completed, "pending": pending})
}

// HandleWeeklyMeetingChart handles GET /v1/charts/meetings/weekly (Manager+).
func (h *Handlers) HandleWeeklyMeetingChart(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleManager); !ok {
		return
	}
	owner, err := chartOwner(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid owner uuid")
		return
	}
	from, to, err := chartWindow(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "from and to must be RFC 3339 timestamps")
		return
	}
	chart, err := h.db.MeetingWeekdayChart(r.Context(), owner, from, to)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chart)
}

// HandleMonthlyMeetingChart handles GET /v1/charts/meetings/monthly (Manager+).
func (h *Handlers) HandleMonthlyMeetingChart(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleManager); !ok {
		return
	}
	owner, err := chartOwner(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid owner uuid")
		return
	}
	from, to, err := chartWindow(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "from and to must be RFC 3339 timestamps")
		return
	}
	chart, err := h.db.MeetingMonthChart(r.Context(), owner, from, to)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chart)
}

// HandleMeetingTypeChart handles GET /v1/charts/meetings/types (Manager+).
func (h *Handlers) HandleMeetingTypeChart(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleManager); !ok {
		return
	}
	owner, err := chartOwner(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid owner uuid")
		return
	}
	counts, err := h.db.MeetingTypeChart(r.Context(), owner)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, counts)
}
