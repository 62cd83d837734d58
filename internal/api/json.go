package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/kdoc/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// writeOK writes a success envelope: fields plus "ok": true.
func writeOK(w http.ResponseWriter, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["ok"] = true
	writeJSON(w, http.StatusOK, body)
}

type errResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusOf maps service errors onto HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidName),
		errors.Is(err, apperr.ErrInvalidPayload),
		errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, apperr.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	}
	return http.StatusInternalServerError
}

// writeError logs unexpected failures and writes the error envelope. Client
// errors carry their message; server errors are reported as "internal error".
func writeError(w http.ResponseWriter, op string, err error, attrs ...slog.Attr) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		args := []any{slog.String("error", err.Error())}
		for _, a := range attrs {
			args = append(args, a)
		}
		slog.Error(op+" failed", args...)
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errorBody(err.Error()))
}
