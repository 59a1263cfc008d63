package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
)

// response is the envelope every API endpoint returns.
type response struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message,omitempty"`
	Data       any                  `json:"data,omitempty"`
	Pagination *entities.Pagination `json:"pagination,omitempty"`
	Error      string               `json:"error,omitempty"`
	Field      string               `json:"field,omitempty"`
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

// respondError maps the service error taxonomy onto HTTP statuses:
// validation and invalid-state errors to 400, missing records to 404,
// everything else to 500.
func (h *HTTPHandler) respondError(w http.ResponseWriter, err error) {
	var vErr *entities.ValidationError
	if errors.As(err, &vErr) {
		h.respondJSON(w, http.StatusBadRequest, response{Error: vErr.Message, Field: vErr.Field})
		return
	}

	switch {
	case errors.Is(err, entities.ErrUserNotFound),
		errors.Is(err, entities.ErrDepositNotFound):
		h.respondJSON(w, http.StatusNotFound, response{Error: err.Error()})
	case errors.Is(err, entities.ErrUserInactive),
		errors.Is(err, entities.ErrDepositNotManual),
		errors.Is(err, entities.ErrDepositAlreadyCancelled),
		errors.Is(err, entities.ErrNonPositiveAmount):
		h.respondJSON(w, http.StatusBadRequest, response{Error: err.Error()})
	default:
		h.logger.Error("Request failed", "error", err)
		h.respondJSON(w, http.StatusInternalServerError, response{Error: "Internal server error"})
	}
}
