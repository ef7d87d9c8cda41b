package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fieldbook-crm/fieldbook/internal/auth"
	"github.com/fieldbook-crm/fieldbook/internal/authz"
	"github.com/fieldbook-crm/fieldbook/internal/model"
	"github.com/fieldbook-crm/fieldbook/internal/session"
	"github.com/fieldbook-crm/fieldbook/internal/storage"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	db                  *storage.DB
	jwtMgr              *auth.JWTManager
	sessions            *session.Store
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Sessions may be nil (allow-list disabled).
type HandlersDeps struct {
	DB                  *storage.DB
	JWTMgr              *auth.JWTManager
	Sessions            *session.Store
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		db:                  d.DB,
		jwtMgr:              d.JWTMgr,
		sessions:            d.Sessions,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
	}
}

// requireActor resolves the authenticated actor's UUID and enforces a minimum
// role. The role is re-read from storage on every call, so a demotion takes
// effect on the next request rather than at token expiry. On failure the
// error response has already been written and ok is false.
func (h *Handlers) requireActor(w http.ResponseWriter, r *http.Request, minRole model.UserRole) (uuid.UUID, bool) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "no claims in context")
		return uuid.Nil, false
	}
	actorUUID, err := claims.SubjectUUID()
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid token subject")
		return uuid.Nil, false
	}
	if err := authz.RequireMinRole(r.Context(), h.db, actorUUID, minRole); err != nil {
		switch {
		case errors.Is(err, authz.ErrForbidden):
			writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "insufficient permissions")
		case errors.Is(err, storage.ErrActorNotFound):
			writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "unknown user")
		default:
			h.writeInternalError(w, r, "role check failed", err)
		}
		return uuid.Nil, false
	}
	return actorUUID, true
}

// writeStorageError maps storage sentinel errors to HTTP statuses.
func (h *Handlers) writeStorageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrActorNotFound):
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "record not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "record already exists")
	case errors.Is(err, storage.ErrAmbiguousOwner):
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "owner name matches more than one user")
	case errors.Is(err, storage.ErrRecordsAttached):
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "records are still assigned to this user; reassign them first")
	default:
		h.writeInternalError(w, r, "storage operation failed", err)
	}
}

func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "request_id", RequestIDFromContext(r.Context()))
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, msg)
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, map[string]any{
		"status":     status,
		"version":    h.version,
		"uptime_sec": int64(time.Since(h.startedAt).Seconds()),
	})
}
