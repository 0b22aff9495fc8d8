package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/globalbank/globalbank-be/internal/bank"
	"github.com/globalbank/globalbank-be/internal/http/respond"
	"github.com/globalbank/globalbank-be/internal/storage"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("respondJSON failed")
	}
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Application errors surface verbatim; anything unrecognized is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bank.ErrInvalidInput):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, bank.ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrAlreadyExists):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, bank.ErrInsufficientFunds):
		respond.Error(w, http.StatusUnprocessableEntity, "insufficient funds")
	case errors.Is(err, storage.ErrCorrupt):
		log.WithError(err).Error("stored document is corrupt")
		respond.Error(w, http.StatusInternalServerError, "storage error")
	default:
		log.WithError(err).Error("unhandled service error")
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
