package api

import (
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/rewear/internal/model"
	"github.com/erazemk/rewear/internal/store"
)

// AdminHandler handles moderation endpoints. Routes are mounted behind
// RequireRole(admin); the store re-checks the actor inside each write.
type AdminHandler struct {
	DB     *sqlx.DB
	Logger *slog.Logger
}

// Pending handles GET /api/admin/pending.
func (h *AdminHandler) Pending(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListPendingItems(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// moderate runs op on the {id} item and answers with the item afterwards.
func (h *AdminHandler) moderate(w http.ResponseWriter, r *http.Request, action string,
	op func(db *sqlx.DB, id, actorID int64) error) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	admin := GetUser(r.Context())

	if err := op(h.DB, id, admin.ID); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.Logger.Info("item moderated", "action", action, "admin", admin.ID, "item", id)
	jsonResponse(w, http.StatusOK, item)
}

// Approve handles POST /api/admin/items/{id}/approve.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, model.ItemActionApproved, func(db *sqlx.DB, id, actorID int64) error {
		return store.ApproveItem(r.Context(), db, id, actorID)
	})
}

// Reject handles DELETE /api/admin/items/{id}.
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, model.ItemActionRejected, func(db *sqlx.DB, id, actorID int64) error {
		return store.RejectItem(r.Context(), db, id, actorID)
	})
}

// Feature handles POST /api/admin/items/{id}/feature.
func (h *AdminHandler) Feature(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, model.ItemActionFeatured, func(db *sqlx.DB, id, actorID int64) error {
		return store.FeatureItem(r.Context(), db, id, actorID)
	})
}

// Events handles GET /api/admin/items/{id}/events.
func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	events, err := store.ItemEvents(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if events == nil {
		events = []model.ItemEvent{}
	}
	jsonResponse(w, http.StatusOK, events)
}
