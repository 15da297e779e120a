package web

// errors.go centralizes error responses for the API.
//
// Row-level mapping failures reject the whole file, so they surface as
// 422 responses carrying the exact row/field/reason message. Everything
// else is logged with full detail server-side and returned to clients
// in sanitized form.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Barczakson/inwentura-op-sub002/internal/core"
	"github.com/Barczakson/inwentura-op-sub002/internal/store"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the JSON shape of all API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Row   *int   `json:"row,omitempty"`
	Field string `json:"field,omitempty"`
}

// respondError maps an error to a status code and JSON body. Mapping
// errors keep their message verbatim because the row and reason are the
// point; unexpected errors are sanitized.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var mapErr *core.MappingError
	status := http.StatusInternalServerError
	body := ErrorResponse{Error: "internal server error"}

	switch {
	case errors.As(err, &mapErr):
		status = http.StatusUnprocessableEntity
		row := mapErr.Row
		body = ErrorResponse{Error: mapErr.Message, Row: &row, Field: string(mapErr.Field)}
	case errors.Is(err, core.ErrInvalidMapping):
		status = http.StatusBadRequest
		body = ErrorResponse{Error: err.Error()}
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		body = ErrorResponse{Error: "not found"}
	case errors.Is(err, core.ErrTooManyIngests):
		status = http.StatusTooManyRequests
		body = ErrorResponse{Error: err.Error()}
		w.Header().Set("Retry-After", "30")
	}

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		slog.Error("json encode error", "error", encErr)
	}
}

// writeError writes a JSON error response with a fixed message.
// Logs the full message server-side but returns a sanitized one to the
// client.
func writeError(w http.ResponseWriter, status int, message string) {
	slog.Warn("http error", "status", status, "message", message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, sanitizeErrorMessage(message))
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// sanitizeErrorMessage strips internal detail (connection strings, file
// paths, SQL fragments) from messages before they reach clients.
func sanitizeErrorMessage(message string) string {
	lower := strings.ToLower(message)
	for _, marker := range []string{"postgres://", "sqlstate", "dial tcp", "/root/", "/home/", "/tmp/"} {
		if strings.Contains(lower, marker) {
			return "internal server error"
		}
	}
	return message
}
