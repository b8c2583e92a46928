package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/storefront-checkout/internal/navstate"
	"github.com/go-chi/chi/v5"
)

// PageStateHandler exposes route-scoped page state. The route is the rest
// of the path after /pagestate/.
type PageStateHandler struct {
	store   *navstate.Store
	timeout time.Duration
}

func NewPageStateHandler(store *navstate.Store, timeout time.Duration) *PageStateHandler {
	return &PageStateHandler{
		store:   store,
		timeout: timeout,
	}
}

func (h *PageStateHandler) scope(w http.ResponseWriter, r *http.Request) (*navstate.Scope, bool) {
	sc, err := h.store.Open(getSessionID(r.Context()), chi.URLParam(r, "*"))
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return sc, true
}

// GET /api/v1/pagestate/{route}
func (h *PageStateHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sc, ok := h.scope(w, r)
	if !ok {
		return
	}

	var state json.RawMessage
	if err := sc.Load(ctx, &state); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// PUT /api/v1/pagestate/{route}
func (h *PageStateHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sc, ok := h.scope(w, r)
	if !ok {
		return
	}

	var state json.RawMessage
	if !decodeJSON(w, r, &state) {
		return
	}
	if err := sc.Save(ctx, state); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/pagestate/{route}
func (h *PageStateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sc, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := sc.Close(ctx); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
