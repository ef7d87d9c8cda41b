package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fieldbook-crm/fieldbook/internal/auth"
	"github.com/fieldbook-crm/fieldbook/internal/session"
	"github.com/fieldbook-crm/fieldbook/internal/storage"
)

// Server is the Fieldbook HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Sessions may be nil, which disables the token allow-list.
type ServerConfig struct {
	DB       *storage.DB
	JWTMgr   *auth.JWTManager
	Sessions *session.Store
	Logger   *slog.Logger

	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:                  cfg.DB,
		JWTMgr:              cfg.JWTMgr,
		Sessions:            cfg.Sessions,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	mux := http.NewServeMux()

	// Auth (sign-in is the only route open without a token).
	mux.HandleFunc("POST /auth/sign-in", h.HandleSignIn)
	mux.HandleFunc("POST /auth/sign-out", h.HandleSignOut)

	// Users.
	mux.HandleFunc("POST /v1/users", h.HandleRegister)
	mux.HandleFunc("GET /v1/users", h.HandleListUsers)
	mux.HandleFunc("GET /v1/users/me", h.HandleGetProfile)
	mux.HandleFunc("GET /v1/users/me/role", h.HandleGetRole)
	mux.HandleFunc("GET /v1/users/sub-users", h.HandleSubUsers)
	mux.HandleFunc("GET /v1/users/managers", h.HandleListManagers)
	mux.HandleFunc("PUT /v1/users/{user_uuid}/manager", h.HandleUpdateManager)
	mux.HandleFunc("GET /v1/users/{user_uuid}/info", h.HandleGetUserInfo)
	mux.HandleFunc("PUT /v1/users/{user_uuid}/info", h.HandleUpdateUserInfo)
	mux.HandleFunc("DELETE /v1/users/{user_uuid}", h.HandleDeleteUser)

	// Customers.
	mux.HandleFunc("POST /v1/customers", h.HandleCreateCustomer)
	mux.HandleFunc("GET /v1/customers", h.HandleListCustomers)
	mux.HandleFunc("POST /v1/customers/reassign", h.HandleReassignCustomers)
	mux.HandleFunc("DELETE /v1/customers", h.HandleDeleteCustomers)
	mux.HandleFunc("GET /v1/customers/{customer_uuid}", h.HandleGetCustomer)
	mux.HandleFunc("PUT /v1/customers/{customer_uuid}", h.HandleUpdateCustomer)
	mux.HandleFunc("PUT /v1/customers/{customer_uuid}/comment", h.HandleSaveCustomerComment)
	mux.HandleFunc("GET /v1/customers/{customer_uuid}/contracts", h.HandleContractsByCustomer)
	mux.HandleFunc("GET /v1/customers/{customer_uuid}/leads", h.HandleLeadsByCustomer)
	mux.HandleFunc("GET /v1/customers/{customer_uuid}/tasks", h.HandleTasksByCustomer)

	// Contracts.
	mux.HandleFunc("POST /v1/contracts", h.HandleCreateContract)
	mux.HandleFunc("GET /v1/contracts", h.HandleListContracts)
	mux.HandleFunc("POST /v1/contracts/reassign", h.HandleReassignContracts)
	mux.HandleFunc("DELETE /v1/contracts", h.HandleDeleteContracts)
	mux.HandleFunc("GET /v1/contracts/{contract_uuid}", h.HandleGetContract)
	mux.HandleFunc("PUT /v1/contracts/{contract_uuid}", h.HandleUpdateContract)
	mux.HandleFunc("GET /v1/contracts/{contract_uuid}/customer", h.HandleContractCustomer)
	mux.HandleFunc("PUT /v1/contracts/{contract_uuid}/first-payment", h.HandleSetFirstPayment)

	// Leads.
	mux.HandleFunc("POST /v1/leads", h.HandleCreateLead)
	mux.HandleFunc("GET /v1/leads", h.HandleListLeads)
	mux.HandleFunc("DELETE /v1/leads", h.HandleDeleteLeads)
	mux.HandleFunc("POST /v1/leads/reassign", h.HandleReassignLeads)
	mux.HandleFunc("PUT /v1/leads/{lead_uuid}/status", h.HandleUpdateLeadStatus)

	// Intervention tasks.
	mux.HandleFunc("POST /v1/tasks", h.HandleCreateTask)
	mux.HandleFunc("GET /v1/tasks", h.HandleListTasks)
	mux.HandleFunc("POST /v1/tasks/reassign", h.HandleReassignTasks)
	mux.HandleFunc("DELETE /v1/tasks", h.HandleDeleteTasks)
	mux.HandleFunc("GET /v1/tasks/{task_uuid}", h.HandleGetTask)
	mux.HandleFunc("PUT /v1/tasks/{task_uuid}", h.HandleUpdateTask)
	mux.HandleFunc("GET /v1/tasks/{task_uuid}/customer", h.HandleTaskCustomer)

	// Meetings.
	mux.HandleFunc("POST /v1/meetings", h.HandleCreateMeeting)
	mux.HandleFunc("GET /v1/meetings", h.HandleListMeetings)
	mux.HandleFunc("POST /v1/meetings/reassign", h.HandleReassignMeetings)
	mux.HandleFunc("DELETE /v1/meetings", h.HandleDeleteMeetings)
	mux.HandleFunc("GET /v1/meetings/{meeting_uuid}", h.HandleGetMeeting)
	mux.HandleFunc("PUT /v1/meetings/{meeting_uuid}", h.HandleUpdateMeeting)
	mux.HandleFunc("PUT /v1/meetings/{meeting_uuid}/completed", h.HandleSetMeetingCompleted)

	// Recommendations.
	mux.HandleFunc("POST /v1/recommendations", h.HandleCreateRecommendation)
	mux.HandleFunc("GET /v1/recommendations", h.HandleListRecommendations)
	mux.HandleFunc("POST /v1/recommendations/reassign", h.HandleReassignRecommendations)
	mux.HandleFunc("DELETE /v1/recommendations", h.HandleDeleteRecommendations)
	mux.HandleFunc("GET /v1/recommendations/{rec_uuid}", h.HandleGetRecommendation)
	mux.HandleFunc("PUT /v1/recommendations/{rec_uuid}", h.HandleUpdateRecommendation)

	// Recruitment candidates.
	mux.HandleFunc("POST /v1/recruitments", h.HandleCreateRecruitment)
	mux.HandleFunc("GET /v1/recruitments", h.HandleListRecruitments)
	mux.HandleFunc("GET /v1/recruitments/{rec_uuid}", h.HandleGetRecruitment)
	mux.HandleFunc("PUT /v1/recruitments/{rec_uuid}", h.HandleUpdateRecruitment)
	mux.HandleFunc("DELETE /v1/recruitments/{rec_uuid}", h.HandleDeleteRecruitment)

	// Reporting charts (role-gated inside the handlers).
	mux.HandleFunc("GET /v1/charts/production/total", h.HandleProductionTotal)
	mux.HandleFunc("GET /v1/charts/production/weekly", h.HandleWeeklyProductionChart)
	mux.HandleFunc("GET /v1/charts/production/monthly", h.HandleMonthlyProductionChart)
	mux.HandleFunc("GET /v1/charts/portfolio", h.HandlePortfolioChart)
	mux.HandleFunc("GET /v1/charts/meetings/completion", h.HandleMeetingCompletionChart)
	mux.HandleFunc("GET /v1/charts/meetings/types", h.HandleMeetingTypeChart)
	mux.HandleFunc("GET /v1/charts/meetings/weekly", h.HandleWeeklyMeetingChart)
	mux.HandleFunc("GET /v1/charts/meetings/monthly", h.HandleMonthlyMeetingChart)

	// Health.
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.JWTMgr, cfg.Sessions, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Handlers returns the underlying Handlers for tests.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
