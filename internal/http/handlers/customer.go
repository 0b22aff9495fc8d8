package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/globalbank/globalbank-be/internal/bank"
	"github.com/globalbank/globalbank-be/internal/http/respond"
	"github.com/globalbank/globalbank-be/internal/invoice"
	"github.com/globalbank/globalbank-be/internal/middleware"
	"github.com/globalbank/globalbank-be/internal/models"
)

// CustomerHandler owns the self-service endpoints for the logged-in user.
type CustomerHandler struct {
	bank *bank.Service
}

// NewCustomerHandler constructs the handler.
func NewCustomerHandler(bank *bank.Service) *CustomerHandler {
	return &CustomerHandler{bank: bank}
}

// Register attaches routes to the authenticated subrouter.
func (h *CustomerHandler) Register(router *mux.Router) {
	router.HandleFunc("/me", h.handleMe).Methods(http.MethodGet)
	router.HandleFunc("/me/transactions", h.handleMyTransactions).Methods(http.MethodGet)
	router.HandleFunc("/me/address", h.handleUpdateAddress).Methods(http.MethodPatch)
	router.HandleFunc("/transactions/{id}/receipt", h.handleReceipt).Methods(http.MethodGet)
}

func (h *CustomerHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing claims")
		return
	}
	user, err := h.bank.User(r.Context(), claims.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "profile", user)
}

func (h *CustomerHandler) handleMyTransactions(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing claims")
		return
	}
	txs, err := h.bank.Transactions(r.Context(), claims.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "transactions", txs)
}

type updateAddressRequest struct {
	Address string `json:"address"`
}

func (h *CustomerHandler) handleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing claims")
		return
	}
	var req updateAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	user, err := h.bank.UpdateAddress(r.Context(), claims.Email, req.Address)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "address updated", user)
}

func (h *CustomerHandler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing claims")
		return
	}
	tx, user, err := h.bank.Transaction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	// Customers may only fetch receipts for their own transactions.
	if claims.Role != models.RoleAdmin && tx.UserEmail != claims.Email {
		respond.Error(w, http.StatusForbidden, "not your transaction")
		return
	}
	receipt, err := invoice.Render(tx, user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(receipt))
}
