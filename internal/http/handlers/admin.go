package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/globalbank/globalbank-be/internal/bank"
	"github.com/globalbank/globalbank-be/internal/http/respond"
	"github.com/globalbank/globalbank-be/internal/mining"
	"github.com/globalbank/globalbank-be/internal/models"
)

// AdminHandler owns the admin panel endpoints: crediting/debiting accounts,
// customer management, settings, and the mining toggle.
type AdminHandler struct {
	bank  *bank.Service
	miner *mining.Miner
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(bank *bank.Service, miner *mining.Miner) *AdminHandler {
	return &AdminHandler{bank: bank, miner: miner}
}

// Register attaches routes to the admin subrouter.
func (h *AdminHandler) Register(router *mux.Router) {
	router.HandleFunc("/credit", h.handleCredit).Methods(http.MethodPost)
	router.HandleFunc("/debit", h.handleDebit).Methods(http.MethodPost)
	router.HandleFunc("/customers", h.handleCreateCustomer).Methods(http.MethodPost)
	router.HandleFunc("/users", h.handleUsers).Methods(http.MethodGet)
	router.HandleFunc("/transactions", h.handleTransactions).Methods(http.MethodGet)
	router.HandleFunc("/overview", h.handleOverview).Methods(http.MethodGet)
	router.HandleFunc("/settings", h.handleGetSettings).Methods(http.MethodGet)
	router.HandleFunc("/settings", h.handlePatchSettings).Methods(http.MethodPatch)
	router.HandleFunc("/mining", h.handleMining).Methods(http.MethodPost)
}

type creditResponse struct {
	Transaction models.Transaction `json:"transaction"`
	Balance     float64            `json:"balance"`
}

func (h *AdminHandler) handleCredit(w http.ResponseWriter, r *http.Request) {
	var req bank.CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}
	tx, balance, err := h.bank.Credit(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "account credited", creditResponse{Transaction: tx, Balance: balance})
}

func (h *AdminHandler) handleDebit(w http.ResponseWriter, r *http.Request) {
	var req bank.DebitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}
	tx, err := h.bank.Debit(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "account debited", tx)
}

type createCustomerResponse struct {
	User         models.User `json:"user"`
	TempPassword string      `json:"temp_password"`
}

func (h *AdminHandler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req bank.CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	user, password, err := h.bank.CreateCustomer(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "customer created", createCustomerResponse{User: user, TempPassword: password})
}

func (h *AdminHandler) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.bank.Users(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "users", users)
}

func (h *AdminHandler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.bank.Transactions(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "transactions", txs)
}

func (h *AdminHandler) handleOverview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.bank.Overview(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "overview", stats)
}

func (h *AdminHandler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.bank.Settings(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "settings", settings)
}

func (h *AdminHandler) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	var patch bank.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	settings, err := h.bank.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.syncMiner(settings.MiningEnabled)
	respond.JSON(w, http.StatusOK, "settings updated", settings)
}

type miningRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *AdminHandler) handleMining(w http.ResponseWriter, r *http.Request) {
	var req miningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	settings, err := h.bank.SetMining(r.Context(), req.Enabled)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.syncMiner(settings.MiningEnabled)
	respond.JSON(w, http.StatusOK, "mining updated", settings)
}

// syncMiner brings the background job in line with the persisted flag.
// The flag is committed first, so a tick that races the toggle still sees
// the final state.
func (h *AdminHandler) syncMiner(enabled bool) {
	if h.miner == nil {
		return
	}
	if enabled {
		h.miner.Start()
	} else {
		h.miner.Stop()
	}
}
