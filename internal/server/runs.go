package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackzampolin/docfields/internal/extraction"
	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/metrics"
	"github.com/jackzampolin/docfields/internal/store"
)

// StatusNotStarted is reported for a document with no recorded run.
const StatusNotStarted = "not_started"

// RunsListResponse contains matching runs, newest first.
type RunsListResponse struct {
	Runs []*extraction.Run `json:"runs"`
}

// UpdateRunRequest is the request body for correcting a run's values.
// Indices is optional; the stored index tree is rebuilt to match Values.
type UpdateRunRequest struct {
	Values  json.RawMessage `json:"values"`
	Indices json.RawMessage `json:"indices,omitempty"`
}

// DocumentStatusResponse is the latest state of one document.
type DocumentStatusResponse struct {
	Status    string     `json:"status"`
	RunID     string     `json:"run_id,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// handleListRuns handles GET /api/runs?app=&status=&limit=.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		App:    q.Get("app"),
		Status: extraction.Status(q.Get("status")),
		Limit:  50,
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeErr(w, err)
		return
	}
	if runs == nil {
		runs = []*extraction.Run{}
	}
	writeJSON(w, http.StatusOK, RunsListResponse{Runs: runs})
}

// handleGetRun handles GET /api/runs/{id}.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleUpdateRun handles PATCH /api/runs/{id}. When the run's app still
// exists the values are checked against its schema first.
func (s *Server) handleUpdateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req UpdateRunRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Values) == 0 {
		writeError(w, http.StatusBadRequest, "values is required")
		return
	}

	run, err := s.store.GetRun(ctx, r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	app, err := s.store.GetApp(ctx, run.App)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.logger.Warn("app not found; values not checked against a schema", "app", run.App, "run", run.ID)
	case err != nil:
		writeErr(w, err)
		return
	default:
		if err := fieldschema.ValidateValues(app.Schema, req.Values); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	updated, err := s.store.UpdateRunValues(ctx, run.ID, req.Values, req.Indices)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDocumentStatus handles GET /api/apps/{name}/documents/{document}/status.
func (s *Server) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), store.RunFilter{App: r.PathValue("name")})
	if err != nil {
		writeErr(w, err)
		return
	}
	document := r.PathValue("document")
	for _, run := range runs {
		if run.Document == document {
			updated := run.UpdatedAt
			writeJSON(w, http.StatusOK, DocumentStatusResponse{
				Status:    string(run.Status),
				RunID:     run.ID,
				UpdatedAt: &updated,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, DocumentStatusResponse{Status: StatusNotStarted})
}

func metricsFilter(r *http.Request) (metrics.Filter, error) {
	q := r.URL.Query()
	f := metrics.Filter{
		App:      q.Get("app"),
		Provider: q.Get("provider"),
		Model:    q.Get("model"),
	}
	if since := q.Get("since"); since != "" {
		d, err := time.ParseDuration(since)
		if err != nil {
			return f, err
		}
		f.After = time.Now().Add(-d)
	}
	return f, nil
}

// handleMetricsSummary handles GET /api/metrics/summary.
func (s *Server) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	f, err := metricsFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid since: "+err.Error())
		return
	}
	stats, err := metrics.NewQuery(s.store).GetDetailedStats(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleMetricsCost handles GET /api/metrics/cost?by=app|provider|model|strategy.
func (s *Server) handleMetricsCost(w http.ResponseWriter, r *http.Request) {
	f, err := metricsFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid since: "+err.Error())
		return
	}
	by := r.URL.Query().Get("by")
	if by == "" {
		by = metrics.ByModel
	}
	switch by {
	case metrics.ByApp, metrics.ByProvider, metrics.ByModel, metrics.ByStrategy:
	default:
		writeError(w, http.StatusBadRequest, "by must be app, provider, model or strategy")
		return
	}

	costs, err := metrics.NewQuery(s.store).CostBy(r.Context(), by, f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, costs)
}
