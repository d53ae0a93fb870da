package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/zappabad/coinsim/internal/admin"
	"github.com/zappabad/coinsim/internal/market/core"
	"github.com/zappabad/coinsim/internal/market/service"
)

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// writeDomainError maps service and core errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		WriteError(w, http.StatusBadRequest, core.ErrorCode(err), "Amount must be a positive number")
	case errors.Is(err, core.ErrUnknownAsset):
		WriteError(w, http.StatusNotFound, core.ErrorCode(err), "Unknown asset")
	case errors.Is(err, core.ErrInsufficientFunds):
		WriteError(w, http.StatusUnprocessableEntity, core.ErrorCode(err), "Insufficient USD")
	case errors.Is(err, core.ErrInsufficientHoldings):
		WriteError(w, http.StatusUnprocessableEntity, core.ErrorCode(err), "Not enough holdings to sell")
	case errors.Is(err, core.ErrNoSupply):
		WriteError(w, http.StatusUnprocessableEntity, core.ErrorCode(err), "Nothing left in circulation")
	case errors.Is(err, admin.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid admin password")
	case errors.Is(err, admin.ErrDisabled):
		WriteError(w, http.StatusForbidden, "admin_disabled", "Admin access is disabled")
	case errors.Is(err, service.ErrClosed):
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "Market is shutting down")
	default:
		WriteError(w, http.StatusInternalServerError, "internal", "Internal error")
	}
}

// ParseJSON decodes the request body as JSON into v.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return errors.New("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("Request body must be valid JSON with Content-Type: application/json")
	}
	return nil
}
