package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ad402/ad402/internal/config"
	"github.com/ad402/ad402/internal/models"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.APIError{
		Error: models.APIErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeServiceError maps service sentinel errors onto HTTP statuses and
// API error codes. Unknown errors become opaque 500s; the detail stays
// in the log.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, config.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, config.ErrorInvalidInput, err.Error())
	case errors.Is(err, config.ErrNotFound):
		writeError(w, http.StatusNotFound, config.ErrorNotFound, err.Error())
	case errors.Is(err, config.ErrForbidden):
		writeError(w, http.StatusForbidden, config.ErrorForbidden, err.Error())
	case errors.Is(err, config.ErrInvalidState):
		writeError(w, http.StatusConflict, config.ErrorInvalidState, err.Error())
	case errors.Is(err, config.ErrPaymentRequired):
		writeError(w, http.StatusPaymentRequired, config.ErrorPaymentRequired, err.Error())
	case errors.Is(err, config.ErrVerificationFailed):
		writeError(w, http.StatusPaymentRequired, config.ErrorVerificationFailed, err.Error())
	case errors.Is(err, config.ErrInsufficientBalance):
		writeError(w, http.StatusBadRequest, config.ErrorInsufficientBalance, err.Error())
	case errors.Is(err, config.ErrEmptyQueue):
		writeError(w, http.StatusNotFound, config.ErrorEmptyQueue, err.Error())
	case errors.Is(err, config.ErrConflict):
		writeError(w, http.StatusConflict, config.ErrorConflict, err.Error())
	default:
		slog.Error("unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, config.ErrorInternal, "internal error")
	}
}

// decodeJSON parses a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// parseIntParam extracts an integer query parameter with a default value.
func parseIntParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		slog.Debug("invalid int param, using default",
			"key", key,
			"value", val,
			"default", defaultVal,
		)
		return defaultVal
	}
	return n
}

// pagination clamps limit/offset query parameters.
func pagination(r *http.Request) (limit, offset int) {
	limit = parseIntParam(r, "limit", config.DefaultLimit)
	offset = parseIntParam(r, "offset", 0)
	if limit > config.MaxLimit {
		limit = config.MaxLimit
	}
	if limit < 1 {
		limit = config.DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// listMeta builds pagination metadata for a listing response.
func listMeta(limit, offset int, total int64, elapsed int64) *models.APIMeta {
	return &models.APIMeta{
		Limit:         limit,
		Offset:        offset,
		Total:         total,
		HasMore:       int64(offset+limit) < total,
		ExecutionTime: elapsed,
	}
}
