package api

import (
	"net/http"

	"github.com/erazemk/rewear/internal/exchange"
)

// ExchangeHandler handles redeem and swap.
type ExchangeHandler struct {
	Coordinator *exchange.Coordinator
}

// Redeem handles POST /api/items/{id}/redeem.
func (h *ExchangeHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Coordinator.Redeem(r.Context(), GetUser(r.Context()).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// Swap handles POST /api/items/{id}/swap.
func (h *ExchangeHandler) Swap(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Coordinator.Swap(r.Context(), GetUser(r.Context()).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}
