package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/rewear/internal/model"
)

type errorResponse struct {
	Error  model.ErrorKind `json:"error"`
	Detail string          `json:"detail,omitempty"`
}

// jsonResponse writes a JSON response with the given status code. A body
// that cannot be encoded turns into a 500, which the request log records.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	if data == nil {
		w.WriteHeader(status)
		return
	}
	body, err := json.Marshal(data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal","detail":"internal error"}` + "\n"))
		return
	}
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, kind model.ErrorKind, detail string) {
	jsonResponse(w, status, errorResponse{Error: kind, Detail: detail})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindUnauthenticated:
		return http.StatusUnauthorized
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindItemNotAvailable, model.KindInvalidState:
		return http.StatusConflict
	case model.KindInsufficientPoints:
		return http.StatusUnprocessableEntity
	case model.KindInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError reports err to the client. Typed errors keep their detail;
// anything else is logged and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *model.Error
	if errors.As(err, &e) && e.Kind != model.KindInternal {
		jsonError(w, statusFor(e.Kind), e.Kind, e.Detail)
		return
	}

	requestLog(r.Context()).Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	jsonError(w, http.StatusInternalServerError, model.KindInternal, "internal error")
}

func badRequest(w http.ResponseWriter, detail string) {
	jsonError(w, http.StatusBadRequest, model.KindInvalidInput, detail)
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.Errorf(model.KindInvalidInput, "invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// queryInt reads a non-negative integer query parameter, or def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, model.Errorf(model.KindInvalidInput, "%s must be a non-negative integer", name)
	}
	return n, nil
}
