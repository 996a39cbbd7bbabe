package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fitly/tryon/pkg/session"
	"github.com/go-chi/chi/v5/middleware"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	slog.Warn("http_error",
		"status", status,
		"code", code,
		"message", message,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()))
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// classify maps a session error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrTaskAlreadyInProgress):
		return http.StatusConflict, "task_in_progress"
	case errors.Is(err, session.ErrMissingInput):
		return http.StatusBadRequest, "missing_input"
	case errors.Is(err, session.ErrPhotoTooLarge):
		return http.StatusRequestEntityTooLarge, "photo_too_large"
	case errors.Is(err, session.ErrInvalidPhotoType):
		return http.StatusBadRequest, "invalid_photo_type"
	case errors.Is(err, session.ErrPhotoRead):
		return http.StatusBadRequest, "photo_read_failed"
	case errors.Is(err, session.ErrEntryNotFound):
		return http.StatusNotFound, "not_found"
	}
	return http.StatusInternalServerError, "internal"
}

func writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	writeError(w, r, status, code, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
