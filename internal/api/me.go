package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/rewear/internal/model"
	"github.com/erazemk/rewear/internal/store"
)

// MeHandler serves the caller's own balance and history.
type MeHandler struct {
	DB *sqlx.DB
}

// Points handles GET /api/me/points.
func (h *MeHandler) Points(w http.ResponseWriter, r *http.Request) {
	points, err := store.GetBalance(r.Context(), h.DB, GetUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"points": points})
}

// Swaps handles GET /api/me/swaps: the caller's listings that have been
// swapped or redeemed.
func (h *MeHandler) Swaps(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListCompletedByOwner(r.Context(), h.DB, GetUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Transactions handles GET /api/me/transactions, newest first.
func (h *MeHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	var page store.Page
	var err error
	if page.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, r, err)
		return
	}
	if page.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := store.TransactionHistory(r.Context(), h.DB, GetUser(r.Context()).ID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, txs)
}
