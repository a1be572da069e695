package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
	"github.com/haukened/rr-callguard/internal/callguard/repos/calllog"
	"github.com/haukened/rr-callguard/internal/callguard/services/rules"
)

// maxBodyBytes caps request bodies, import documents included.
const maxBodyBytes = 1 << 20

var errBadID = errors.New("invalid id")

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyPattern),
		errors.Is(err, domain.ErrInvalidPattern),
		errors.Is(err, rules.ErrInvalidDocument),
		errors.Is(err, rules.ErrUnsupportedFormat),
		errors.Is(err, errBadID):
		return http.StatusBadRequest
	case errors.Is(err, rules.ErrNotFound), errors.Is(err, calllog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, rules.ErrDuplicatePattern):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Internal errors are logged and
// answered with a generic message.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err,
		}, "request failed")
		respondError(w, status, "internal error")
		return
	}
	respondError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func idParam(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == domain.UnassignedID {
		return 0, errBadID
	}
	return id, nil
}

// intQuery parses an optional integer query parameter.
func intQuery(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}
