package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

type contractRequest struct {
	Customer customerRequest `json:"customer"`

	ContractNumber   string `json:"contract_number"`
	ContractType     string `json:"contract_type"`
	AnnualFee        int32  `json:"annual_fee"`
	FirstPayment     bool   `json:"first_payment"`
	PaymentFrequency string `json:"payment_frequency"`
	PaymentMethod    string `json:"payment_method"`
}

func (req contractRequest) toModel() (model.Contract, error) {
	var c model.Contract
	var err error
	if c.ContractType, err = model.ParseContractType(req.ContractType); err != nil {
		return model.Contract{}, err
	}
	if c.PaymentFrequency, err = model.ParsePaymentFrequency(req.PaymentFrequency); err != nil {
		return model.Contract{}, err
	}
	if c.PaymentMethod, err = model.ParsePaymentMethod(req.PaymentMethod); err != nil {
		return model.Contract{}, err
	}
	c.ContractNumber = req.ContractNumber
	c.AnnualFee = req.AnnualFee
	c.FirstPayment = req.FirstPayment
	return c, nil
}

// HandleCreateContract handles POST /v1/contracts. The embedded customer is
// resolved find-or-create before the contract row is written; both writes
// share one transaction.
func (h *Handlers) HandleCreateContract(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	var req contractRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.ContractNumber == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "contract_number is required")
		return
	}
	contract, err := req.toModel()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	customer := req.Customer.toModel()
	if err := customer.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	contractUUID, err := h.db.CreateContract(r.Context(), actorUUID, customer, contract)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]uuid.UUID{"uuid": contractUUID})
}

// HandleListContracts handles GET /v1/contracts.
func (h *Handlers) HandleListContracts(w http.ResponseWriter, r *http.Request) {
	actorUUID, ok := h.requireActor(w, r, model.RoleAgent)
	if !ok {
		return
	}
	contracts, err := h.db.ListContractsByOwner(r.Context(), actorUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, contracts)
}

// HandleGetContract handles GET /v1/contracts/{contract_uuid}.
func (h *Handlers) HandleGetContract(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	contractUUID, err := pathUUID(r, "contract_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid contract uuid")
		return
	}
	contract, err := h.db.GetContract(r.Context(), contractUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, contract)
}

// HandleContractCustomer handles GET /v1/contracts/{contract_uuid}/customer.
// Returns the public UUID of the contract's customer for navigation.
func (h *Handlers) HandleContractCustomer(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	contractUUID, err := pathUUID(r, "contract_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid contract uuid")
		return
	}
	customerUUID, err := h.db.ContractCustomerUUID(r.Context(), contractUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]uuid.UUID{"customer_uuid": customerUUID})
}

// HandleContractsByCustomer handles GET /v1/customers/{customer_uuid}/contracts.
func (h *Handlers) HandleContractsByCustomer(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	customerUUID, err := pathUUID(r, "customer_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid customer uuid")
		return
	}
	contracts, err := h.db.ContractsByCustomer(r.Context(), customerUUID)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, contracts)
}

// HandleUpdateContract handles PUT /v1/contracts/{contract_uuid}.
func (h *Handlers) HandleUpdateContract(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	contractUUID, err := pathUUID(r, "contract_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid contract uuid")
		return
	}
	var req contractRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	contract, err := req.toModel()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if err := h.db.UpdateContract(r.Context(), contractUUID, contract); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

type firstPaymentRequest struct {
	Value bool `json:"value"`
}

// HandleSetFirstPayment handles PUT /v1/contracts/{contract_uuid}/first-payment.
func (h *Handlers) HandleSetFirstPayment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleAgent); !ok {
		return
	}
	contractUUID, err := pathUUID(r, "contract_uuid")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid contract uuid")
		return
	}
	var req firstPaymentRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := h.db.SetFirstPayment(r.Context(), contractUUID, req.Value); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleReassignContracts handles POST /v1/contracts/reassign (Leader only).
func (h *Handlers) HandleReassignContracts(w http.ResponseWriter, r *http.Request) {
	h.handleReassign(w, r, h.db.ReassignContracts)
}

// HandleDeleteContracts handles DELETE /v1/contracts.
func (h *Handlers) HandleDeleteContracts(w http.ResponseWriter, r *http.Request) {
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
	if err := h.db.DeleteContracts(r.Context(), req.UUIDs); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

// chartOwner parses the optional owner query parameter. Absent means the
// whole organization.
func chartOwner(r *http.Request) (*uuid.UUID, error) {
	v := r.URL.Query().Get("owner")
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// chartWindow parses the from/to query parameters as RFC 3339 timestamps.
func chartWindow(r *http.Request) (from, to time.Time, err error) {
	if from, err = time.Parse(time.RFC3339, r.URL.Query().Get("from")); err != nil {
		return
	}
	to, err = time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	return
}

// HandleProductionTotal handles GET /v1/charts/production/total (Manager+).
// by_value=true sums annual fees, otherwise contracts are counted.
func (h *Handlers) HandleProductionTotal(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleManager); !ok {
		return
	}
	owner, err := chartOwner(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid owner uuid")
		return
	}
	var total int64
	if r.URL.Query().Get("by_value") == "true" {
		total, err = h.db.ProductionValue(r.Context(), owner)
	} else {
		total, err = h.db.ProductionCount(r.Context(), owner)
	}
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int64{"total": total})
}

// HandlePortfolioChart handles GET /v1/charts/portfolio (Manager+).
func (h *Handlers) HandlePortfolioChart(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, model.RoleManager); !ok {
		return
	}
	owner, err := chartOwner(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid owner uuid")
		return
	}
	chart, err := h.db.PortfolioChart(r.Context(), owner)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chart)
}

// HandleWeeklyProductionChart handles GET /v1/charts/production/weekly (Manager+).
func (h *Handlers) HandleWeeklyProductionChart(w http.ResponseWriter, r *http.Request) {
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
	chart, err := h.db.WeeklyProductionChart(r.Context(), owner, from, to)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chart)
}

// HandleMonthlyProductionChart handles GET /v1/charts/production/monthly (Manager+).
func (h *Handlers) HandleMonthlyProductionChart(w http.ResponseWriter, r *http.Request) {
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
	byValue := r.URL.Query().Get("by_value") == "true"
	chart, err := h.db.MonthlyProductionChart(r.Context(), owner, from, to, byValue)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chart)
}
