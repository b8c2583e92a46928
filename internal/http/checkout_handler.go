package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/service"
	"github.com/fjod/storefront-checkout/internal/validation"
)

type CheckoutHandler struct {
	svc     service.CheckoutService
	timeout time.Duration
}

func NewCheckoutHandler(svc service.CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		svc:     svc,
		timeout: timeout,
	}
}

type ValidateResponseDTO struct {
	Valid  bool                   `json:"valid"`
	Errors validation.FieldErrors `json:"errors,omitempty"`
}

type MountRequestDTO struct {
	CardRef string `json:"card_ref"`
}

type CardCompleteRequestDTO struct {
	Complete bool `json:"complete"`
}

type CartLinesRequestDTO struct {
	Lines []domain.CartLine `json:"lines"`
}

type MergeResponseDTO struct {
	Lines []domain.CartLine `json:"lines"`
}

// GET /api/v1/checkout/cart?buy_now=true
func (h *CheckoutHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	buyNow, ok := buyNowParam(w, r)
	if !ok {
		return
	}

	cart, err := h.svc.Resolve(ctx, service.ResolveRequest{
		SessionID: getSessionID(r.Context()),
		UserID:    getIdentity(r.Context()).UserID,
		BuyNow:    buyNow,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// PUT /api/v1/checkout/buy-now
func (h *CheckoutHandler) StageBuyNow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var line domain.CartLine
	if !decodeJSON(w, r, &line) {
		return
	}

	if err := h.svc.StageBuyNow(ctx, getSessionID(r.Context()), line); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/cart
func (h *CheckoutHandler) GetGuestCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.svc.GuestCart(ctx, getSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// PUT /api/v1/cart
func (h *CheckoutHandler) ReplaceGuestCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CartLinesRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.svc.ReplaceGuestCart(ctx, getSessionID(r.Context()), req.Lines)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// POST /api/v1/cart/items
func (h *CheckoutHandler) AddGuestCartItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CartLinesRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Lines) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_argument", "lines must not be empty")
		return
	}

	cart, err := h.svc.AddToGuestCart(ctx, getSessionID(r.Context()), req.Lines)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cart)
}

// POST /api/v1/cart/merge
func (h *CheckoutHandler) MergeCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getIdentity(r.Context()).UserID
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	lines, err := h.svc.MergeOnLogin(ctx, getSessionID(r.Context()), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, MergeResponseDTO{Lines: lines})
}

// GET /api/v1/locations
func (h *CheckoutHandler) GetLocations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	table, err := h.svc.Locations(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, table)
}

// GET /api/v1/checkout/form
func (h *CheckoutHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	state, err := h.svc.GetForm(ctx, getSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// PUT /api/v1/checkout/form
func (h *CheckoutHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var update service.FormUpdate
	if !decodeJSON(w, r, &update) {
		return
	}

	state, err := h.svc.UpdateForm(ctx, getSessionID(r.Context()), update)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// POST /api/v1/checkout/validate
func (h *CheckoutHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	errs, err := h.svc.Validate(ctx, getSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if len(errs) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, ValidateResponseDTO{Errors: errs})
		return
	}
	respondJSON(w, http.StatusOK, ValidateResponseDTO{Valid: true})
}

// POST /api/v1/checkout/intent?buy_now=true
func (h *CheckoutHandler) StartPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	buyNow, ok := buyNowParam(w, r)
	if !ok {
		return
	}

	res, err := h.svc.StartPayment(ctx, service.StartPaymentRequest{
		SessionID: getSessionID(r.Context()),
		UserID:    getIdentity(r.Context()).UserID,
		BuyNow:    buyNow,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	switch {
	case len(res.Errors) > 0:
		respondJSON(w, http.StatusUnprocessableEntity, res)
	case res.Intent != nil:
		respondJSON(w, http.StatusCreated, res)
	default:
		respondJSON(w, http.StatusOK, res)
	}
}

// POST /api/v1/checkout/confirmation/mount
func (h *CheckoutHandler) Mount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req MountRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	state, err := h.svc.Mount(ctx, getSessionID(r.Context()), req.CardRef)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// POST /api/v1/checkout/confirmation/card
func (h *CheckoutHandler) SetCardComplete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CardCompleteRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	state, err := h.svc.SetCardComplete(ctx, getSessionID(r.Context()), req.Complete)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// POST /api/v1/checkout/confirmation/submit
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := getIdentity(r.Context())
	outcome, err := h.svc.Submit(ctx, service.SubmitRequest{
		SessionID: getSessionID(r.Context()),
		UserID:    id.UserID,
		Username:  id.Username,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

func buyNowParam(w http.ResponseWriter, r *http.Request) (bool, bool) {
	raw := r.URL.Query().Get("buy_now")
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_buy_now", "buy_now must be a boolean")
		return false, false
	}
	return v, true
}
