package api

import (
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/rewear/internal/imaging"
	"github.com/erazemk/rewear/internal/model"
	"github.com/erazemk/rewear/internal/store"
)

// DefaultPageSize applies when a catalog request gives no limit.
const DefaultPageSize = 20

// DefaultSuggestions is the number of tag suggestions returned by default.
const DefaultSuggestions = 10

// ItemsHandler handles the catalog and listing endpoints.
type ItemsHandler struct {
	DB     *sqlx.DB
	Logger *slog.Logger
}

// filterFromQuery reads catalog filters from the query string.
func filterFromQuery(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	f := store.Filter{
		Category:      q.Get("category"),
		Type:          q.Get("type"),
		Tag:           q.Get("tag"),
		Size:          q.Get("size"),
		Condition:     q.Get("condition"),
		Query:         strings.TrimSpace(q.Get("q")),
		Sort:          q.Get("sort"),
		AvailableOnly: q.Get("available") == "true",
		FeaturedOnly:  q.Get("featured") == "true",
	}
	if !store.ValidSort(f.Sort) {
		return f, model.Errorf(model.KindInvalidInput, "unknown sort %q", f.Sort)
	}

	var err error
	if f.Limit, err = queryInt(r, "limit", DefaultPageSize); err != nil {
		return f, err
	}
	if f.Limit == 0 || f.Limit > store.MaxPageSize {
		f.Limit = store.MaxPageSize
	}
	if f.Offset, err = queryInt(r, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}

func (h *ItemsHandler) search(w http.ResponseWriter, r *http.Request, adjust func(*store.Filter)) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if adjust != nil {
		adjust(&f)
	}

	items, err := store.SearchItems(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, nil)
}

// Available handles GET /api/items/available.
func (h *ItemsHandler) Available(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, func(f *store.Filter) { f.AvailableOnly = true })
}

// Featured handles GET /api/items/featured.
func (h *ItemsHandler) Featured(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, func(f *store.Filter) {
		f.FeaturedOnly = true
		f.AvailableOnly = true
	})
}

// Suggest handles GET /api/items/suggest?type=tag&query=.
func (h *ItemsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if kind := r.URL.Query().Get("type"); kind != "" && kind != "tag" {
		badRequest(w, "only tag suggestions are supported")
		return
	}
	limit, err := queryInt(r, "limit", DefaultSuggestions)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tags, err := store.SuggestTags(r.Context(), h.DB, r.URL.Query().Get("query"), min(limit, store.MaxPageSize))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, tags)
}

// Mine handles GET /api/items/me.
func (h *ItemsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItemsByOwner(r.Context(), h.DB, GetUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// viewable loads an item the caller may see: any approved listing, or a
// pending one when the caller is its owner or an admin.
func (h *ItemsHandler) viewable(r *http.Request, id int64) (*model.Item, error) {
	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, model.Errorf(model.KindNotFound, "item %d not found", id)
	}
	if item.Approved() {
		return item, nil
	}
	caller := identity(r.Context())
	if caller.IsAdmin || (caller.UserID != 0 && caller.UserID == item.OwnerID) {
		return item, nil
	}
	return nil, model.Errorf(model.KindNotFound, "item %d not found", id)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.viewable(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/items. The body is either JSON or a multipart
// form with an optional "image" file.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())

	var in model.ItemInput
	var photo *imaging.Photo

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var err error
		if in, photo, err = parseItemForm(w, r); err != nil {
			writeError(w, r, err)
			return
		}
	} else if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	var data []byte
	var mimeType string
	if photo != nil {
		data, mimeType = photo.Data, photo.MIME
	}
	item, err := store.SubmitItemWithImage(r.Context(), h.DB, in, user.ID, data, mimeType)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.Logger.Info("item submitted", "user", user.ID, "item", item.ID, "title", item.Title)
	jsonResponse(w, http.StatusCreated, item)
}

func parseItemForm(w http.ResponseWriter, r *http.Request) (model.ItemInput, *imaging.Photo, error) {
	var in model.ItemInput

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		return in, nil, model.Errorf(model.KindInvalidInput, "file too large or invalid multipart form")
	}

	in = model.ItemInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Size:        r.FormValue("size"),
		Condition:   r.FormValue("condition"),
		Category:    r.FormValue("category"),
		Type:        r.FormValue("type"),
		Tags:        model.ParseTags(r.FormValue("tags")),
	}
	if v := r.FormValue("point_cost"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return in, nil, model.Errorf(model.KindInvalidInput, "point_cost must be an integer")
		}
		in.PointCost = cost
	}

	file, _, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, model.Errorf(model.KindInvalidInput, "invalid image upload")
	}
	defer file.Close()

	photo, err := imaging.Normalize(file)
	if err != nil {
		return in, nil, err
	}
	return in, photo, nil
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user := GetUser(r.Context())

	if err := store.DeleteItem(r.Context(), h.DB, id, user.ID); err != nil {
		writeError(w, r, err)
		return
	}

	h.Logger.Info("item deleted", "user", user.ID, "item", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/items/{id}/image. Only the owner or an admin
// may replace a listing's photo.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	caller := identity(r.Context())

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, model.KindNotFound, "item not found")
		return
	}
	if item.OwnerID != caller.UserID && !caller.IsAdmin {
		jsonError(w, http.StatusForbidden, model.KindForbidden, "only the owner can change the photo")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		badRequest(w, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		badRequest(w, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Normalize(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, photo.Data, photo.MIME); err != nil {
		writeError(w, r, err)
		return
	}

	item.HasImage = true
	h.Logger.Info("item image uploaded", "user", caller.UserID, "item", id, "bytes", len(photo.Data))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded", "image_url": item.ImageURL()})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.viewable(r, id); err != nil {
		writeError(w, r, err)
		return
	}

	data, mimeType, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, model.KindNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
