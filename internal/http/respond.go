package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/storefront-checkout/internal/location"
	"github.com/fjod/storefront-checkout/internal/navstate"
	"github.com/fjod/storefront-checkout/internal/service"
	"github.com/fjod/storefront-checkout/internal/storefront"
	"github.com/sony/gobreaker/v2"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleServiceError maps checkout errors to HTTP answers.
func handleServiceError(w http.ResponseWriter, err error) {
	var (
		httpStatus int
		code       string
	)

	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		httpStatus, code = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, service.ErrNoPaymentIntent):
		httpStatus, code = http.StatusConflict, "no_payment_intent"
	case errors.Is(err, service.ErrPaymentNotReady):
		httpStatus, code = http.StatusConflict, "payment_not_ready"
	case errors.Is(err, service.ErrMissingCardRef),
		errors.Is(err, service.ErrInvalidBuyNowLine),
		errors.Is(err, service.ErrInvalidCartLine),
		errors.Is(err, navstate.ErrInvalidRoute):
		httpStatus, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, location.ErrUnknownProvince),
		errors.Is(err, location.ErrUnknownDistrict),
		errors.Is(err, location.ErrUnknownMunicipality),
		errors.Is(err, location.ErrInvalidPin):
		httpStatus, code = http.StatusUnprocessableEntity, "invalid_location"
	case errors.Is(err, navstate.ErrNoState), errors.Is(err, storefront.ErrNotFound):
		httpStatus, code = http.StatusNotFound, "not_found"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		httpStatus, code = http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus, code = http.StatusGatewayTimeout, "timeout"
	default:
		slog.Error("unhandled service error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}
