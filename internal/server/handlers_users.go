package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fieldbook-crm/fieldbook/internal/auth"
	"github.com/fieldbook-crm/fieldbook/internal/model"
	"github.com/fieldbook-crm/fieldbook/internal/storage"
)

type registerRequest struct {
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Password    string     `json:"password"`
	ManagerUUID *uuid.UUID `json:"manager_uuid,omitempty"`
	FullName    string     `json:"full_name"`
	PhoneNumber string     `json:"phone_number"`
	HufaCode    string     `json:"hufa_code,omitempty"`
	AgentCode   string     `json:"agent_code,omitempty"`
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	UserUUID  uuid.UUID      `json:"user_uuid"`
	Role      model.UserRole `json:"role"`
}

// HandleRegister handles POST /v1/users. Only Leaders enroll new users; the
// new user's role is inferred from manager presence, never taken from input.
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleLeader); !ok {
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" || req.FullName == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
			"email, username, password and full_name are required")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeInternalError(w, r, "failed to hash password", err)
		return
	}

	user := model.User{
		Email:     req.Email,
		Username:  req.Username,
		ManagerID: req.ManagerUUID,
		Info: model.UserInfo{
			FullName:    req.FullName,
			PhoneNumber: req.PhoneNumber,
			HufaCode:    req.HufaCode,
			AgentCode:   req.AgentCode,
		},
	}
	if err := h.db.CreateUser(r.Context(), user, passwordHash); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]string{"status": "created"})
}

// HandleSignIn handles POST /auth/sign-in.
func (h *Handlers) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	user, passwordHash, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Burn comparable time so response latency does not reveal
			// whether the username exists.
			auth.DummyVerify()
			writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
			return
		}
		h.writeInternalError(w, r, "sign-in lookup failed", err)
		return
	}

	valid, err := auth.VerifyPassword(req.Password, passwordHash)
	if err != nil || !valid {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueToken(user)
	if err != nil {
		h.writeInternalError(w, r, "failed to issue token", err)
		return
	}
	if err := h.sessions.Track(r.Context(), token, expiresAt); err != nil {
		h.writeInternalError(w, r, "failed to track session", err)
		return
	}

	writeJSON(w, r, http.StatusOK, signInResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		UserUUID:  user.UUID,
		Role:      user.Role,
	})
}

// HandleSignOut handles POST /auth/sign-out.
func (h *Handlers) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Revoke(r.Context(), TokenFromContext(r.Context())); err != nil {
		h.writeInternalError(w, r, "failed to revoke session", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "signed out"})
}

// HandleGetProfile handles GET /v1/users/me.
func (h *Handlers) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	user, err := h.db.GetUserProfile(r.Context(), actorUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

// HandleGetRole handles GET /v1/users/me/role. The role comes from storage,
// not from the token, so promotions and demotions are visible immediately.
func (h *Handlers) HandleGetRole(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	role, err := h.db.UserRole(r.Context(), actorUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]model.UserRole{"role": role})
}

// HandleListUsers handles GET /v1/users (Leader only).
func (h *Handlers) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleLeader); !ok {
		return
	}
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, users)
}

// HandleSubUsers handles GET /v1/users/sub-users. Visibility depends on the
// actor's role: Leaders see the whole organization, Managers their reports,
// Agents only themselves. An optional min_role query narrows the result.
func (h *Handlers) HandleSubUsers(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	minRole := model.RoleAgent
	if v := r.URL.Query().Get("min_role"); v != "" {
		parsed, err := model.ParseUserRole(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid min_role")
			return
		}
		minRole = parsed
	}
	users, err := h.db.SubUsers(r.Context(), actorUUID, minRole)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, users)
}

// HandleListManagers handles GET /v1/users/managers (Manager+). Lists users
// eligible to be assigned as someone's manager, excluding the actor.
func (h *Handlers) HandleListManagers(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleManager)
	if !ok {
		return
	}
	managers, err := h.db.Managers(r.Context(), actorUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, managers)
}

type updateManagerRequest struct {
	ManagerUUID *uuid.UUID `json:"manager_uuid"`
}

// HandleUpdateManager handles PUT /v1/users/{user_uuid}/manager (Leader only).
// Assigning a manager resets the user's role to Agent; detaching promotes to
// Manager.
func (h *Handlers) HandleUpdateManager(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleLeader); !ok {
		return
	}
	userUUID, err := pathUUID(r, "user_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid user uuid")
		return
	}
	var req updateManagerRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := h.db.UpdateUserManager(r.Context(), userUUID, req.ManagerUUID); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

type updateUserInfoRequest struct {
	Email       string `json:"email,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	HufaCode    string `json:"hufa_code,omitempty"`
	AgentCode   string `json:"agent_code,omitempty"`
}

// HandleGetUserInfo handles GET /v1/users/{user_uuid}/info (Manager+).
func (h *Handlers) HandleGetUserInfo(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleManager); !ok {
		return
	}
	userUUID, err := pathUUID(r, "user_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid user uuid")
		return
	}
	user, err := h.db.GetUserProfile(r.Context(), userUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

// HandleUpdateUserInfo handles PUT /v1/users/{user_uuid}/info (Manager+).
// Empty fields keep their stored values.
func (h *Handlers) HandleUpdateUserInfo(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleManager); !ok {
		return
	}
	userUUID, err := pathUUID(r, "user_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid user uuid")
		return
	}
	var req updateUserInfoRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	info := model.UserInfo{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		HufaCode:    req.HufaCode,
		AgentCode:   req.AgentCode,
	}
	if err := h.db.UpdateUserInfo(r.Context(), userUUID, req.Email, info); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleDeleteUser handles DELETE /v1/users/{user_uuid} (Leader only).
func (h *Handlers) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleLeader)
	if !ok {
		return
	}
	userUUID, err := pathUUID(r, "user_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid user uuid")
		return
	}
	if userUUID == actorUUID {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "cannot delete yourself")
		return
	}
	if err := h.db.DeleteUser(r.Context(), userUUID); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}
