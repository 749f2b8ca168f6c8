package server

import (
	"net/http"
	"time"

	"github.com/jackzampolin/docfields/internal/extraction"
	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/store"
)

// AppSummary is the list view of an app.
type AppSummary struct {
	Name         string             `json:"name"`
	DisplayName  string             `json:"display_name"`
	Fields       int                `json:"fields"`
	PageMode     string             `json:"page_mode,omitempty"`
	InputMethods store.InputMethods `json:"input_methods"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// AppsListResponse contains all apps.
type AppsListResponse struct {
	Apps []AppSummary `json:"apps"`
}

// PutAppRequest is the request body for creating or replacing an app.
type PutAppRequest struct {
	DisplayName  string              `json:"display_name,omitempty"`
	Description  string              `json:"description,omitempty"`
	Schema       *fieldschema.Schema `json:"schema"`
	CustomPrompt string              `json:"custom_prompt,omitempty"`
	PageMode     string              `json:"page_mode,omitempty"`
	InputMethods *store.InputMethods `json:"input_methods,omitempty"`
}

// handleListApps handles GET /api/apps.
func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.store.ListApps(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}

	resp := AppsListResponse{Apps: make([]AppSummary, 0, len(apps))}
	for _, a := range apps {
		sum := AppSummary{
			Name:         a.Name,
			DisplayName:  a.Label(),
			PageMode:     a.PageMode,
			InputMethods: a.InputMethods,
			UpdatedAt:    a.UpdatedAt,
		}
		if a.Schema != nil {
			sum.Fields = len(a.Schema.Fields)
		}
		resp.Apps = append(resp.Apps, sum)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetApp handles GET /api/apps/{name}.
func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	app, err := s.store.GetApp(r.Context(), r.PathValue("name"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// handlePutApp handles PUT /api/apps/{name}. Input methods default to file
// upload only.
func (s *Server) handlePutApp(w http.ResponseWriter, r *http.Request) {
	var req PutAppRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := extraction.ParsePageMode(req.PageMode); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	app := &store.App{
		Name:         r.PathValue("name"),
		DisplayName:  req.DisplayName,
		Description:  req.Description,
		Schema:       req.Schema,
		CustomPrompt: req.CustomPrompt,
		PageMode:     req.PageMode,
		InputMethods: store.InputMethods{FileUpload: true},
	}
	if req.InputMethods != nil {
		app.InputMethods = *req.InputMethods
	}
	if err := s.store.PutApp(r.Context(), app); err != nil {
		writeErr(w, err)
		return
	}
	s.logger.Info("app saved", "app", app.Name, "fields", len(app.Schema.Fields))
	writeJSON(w, http.StatusOK, app)
}

// handleDeleteApp handles DELETE /api/apps/{name}. Runs of the app are kept.
func (s *Server) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.store.DeleteApp(r.Context(), name); err != nil {
		writeErr(w, err)
		return
	}
	s.logger.Info("app deleted", "app", name)
	w.WriteHeader(http.StatusNoContent)
}
