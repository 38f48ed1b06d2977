// Package handler contains the HTTP handlers for the stockfolio REST API.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// defaultOwner is the portfolio owner used when a request does not name one.
// There is no account system; every client shares one portfolio unless it
// passes an explicit owner.
const defaultOwner = "default"

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ownerParam extracts the portfolio owner from the query string, falling back
// to the shared default owner.
func ownerParam(r *http.Request) string {
	if owner := r.URL.Query().Get("owner"); owner != "" {
		return owner
	}
	return defaultOwner
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
