package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/store"
	"github.com/jackzampolin/docfields/version"
)

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)

	mux.HandleFunc("GET /api/apps", s.handleListApps)
	mux.HandleFunc("GET /api/apps/{name}", s.handleGetApp)
	mux.HandleFunc("PUT /api/apps/{name}", s.handlePutApp)
	mux.HandleFunc("DELETE /api/apps/{name}", s.handleDeleteApp)
	mux.HandleFunc("POST /api/apps/{name}/extract", s.handleExtract)
	mux.HandleFunc("GET /api/apps/{name}/documents/{document}/status", s.handleDocumentStatus)

	mux.HandleFunc("GET /api/apps/{name}/prompts", s.handleListAppPrompts)
	mux.HandleFunc("GET /api/apps/{name}/prompts/{key}", s.handleGetAppPrompt)
	mux.HandleFunc("PUT /api/apps/{name}/prompts/{key}", s.handleSetAppPrompt)
	mux.HandleFunc("DELETE /api/apps/{name}/prompts/{key}", s.handleClearAppPrompt)
	mux.HandleFunc("GET /api/prompts", s.handleListPrompts)

	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("PATCH /api/runs/{id}", s.handleUpdateRun)
	mux.HandleFunc("GET /api/metrics/summary", s.handleMetricsSummary)
	mux.HandleFunc("GET /api/metrics/cost", s.handleMetricsCost)
}

// HealthResponse is the response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server    string          `json:"server"`
	Version   string          `json:"version"`
	Store     string          `json:"store"`
	Providers ProvidersStatus `json:"providers"`
}

// ProvidersStatus shows registered OCR and LLM providers.
type ProvidersStatus struct {
	OCR []string `json:"ocr"`
	LLM []string `json:"llm"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Server:  "running",
		Version: version.GitRelease,
		Store:   s.store.Path(),
		Providers: ProvidersStatus{
			OCR: s.registry.ListOCR(),
			LLM: s.registry.ListLLM(),
		},
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeErr maps a store or schema error to its status code.
func writeErr(w http.ResponseWriter, err error) {
	var schemaErr *fieldschema.SchemaError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalid), errors.As(err, &schemaErr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON reads a bounded JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 8<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
