package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/globalbank/globalbank-be/internal/auth"
	"github.com/globalbank/globalbank-be/internal/bank"
	"github.com/globalbank/globalbank-be/internal/http/respond"
	"github.com/globalbank/globalbank-be/internal/models"
)

// AuthHandler owns the register/login/logout endpoints.
type AuthHandler struct {
	bank   *bank.Service
	tokens *auth.TokenManager
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(bank *bank.Service, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{bank: bank, tokens: tokens}
}

// Register attaches the public auth routes.
func (h *AuthHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/register", h.handleRegister).Methods(http.MethodPost)
	router.HandleFunc("/api/login", h.handleLogin).Methods(http.MethodPost)
}

// RegisterSecured attaches routes that require an authenticated caller.
func (h *AuthHandler) RegisterSecured(router *mux.Router) {
	router.HandleFunc("/logout", h.handleLogout).Methods(http.MethodPost)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req bank.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	user, err := h.bank.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "account created", user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	user, err := h.bank.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	token, err := h.tokens.Generate(user)
	if err != nil {
		log.WithError(err).Error("token generation failed")
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", loginResponse{Token: token, User: user})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.bank.Logout(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "logged out", nil)
}
