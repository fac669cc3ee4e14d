package web

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jarruego/academyhub-sub000/internal/importer"
)

// handleHealth reports service liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleImport runs one import phase over an uploaded CSV file.
// The request is multipart form data with a "file" part and a "phase" field.
// Structural problems with the request are rejected before any row is
// processed; row-level problems are reported in the response body instead.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, r, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	phase, ok := importer.ParsePhase(r.FormValue("phase"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "missing or unknown phase")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "failed to read file")
		return
	}

	slog.Info("import requested",
		"phase", phase,
		"filename", header.Filename,
		"size", header.Size,
		"request_id", middleware.GetReqID(r.Context()),
	)

	report, err := s.service.Run(r.Context(), phase, data)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, report)
}

// writeError logs the error with request context and writes a sanitized
// JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", message,
		"request_id", middleware.GetReqID(r.Context()),
	)

	safeMessage := sanitizeErrorMessage(message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, safeMessage)
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// sanitizeErrorMessage strips internal details that should not reach clients.
func sanitizeErrorMessage(message string) string {
	lower := strings.ToLower(message)
	for _, needle := range []string{"sqlstate", "pq:", "pgx", "dial tcp", "connection refused"} {
		if strings.Contains(lower, needle) {
			return "internal error"
		}
	}
	return message
}
