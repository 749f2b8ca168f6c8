package server

import (
	"net/http"

	"github.com/jackzampolin/docfields/internal/prompts"
)

// PromptResponse represents a single prompt.
type PromptResponse struct {
	Key         string   `json:"key"`
	Text        string   `json:"text,omitempty"`
	Description string   `json:"description,omitempty"`
	Variables   []string `json:"variables,omitempty"`
	Hash        string   `json:"hash"`
	IsOverride  bool     `json:"is_override"`
}

// PromptsListResponse contains all prompts.
type PromptsListResponse struct {
	App     string           `json:"app,omitempty"`
	Prompts []PromptResponse `json:"prompts"`
}

// SetPromptRequest is the request body for setting an app prompt override.
type SetPromptRequest struct {
	Text string `json:"text"`
	Note string `json:"note,omitempty"`
}

// handleListPrompts handles GET /api/prompts.
func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	embedded := s.resolver.AllEmbedded()
	resp := PromptsListResponse{Prompts: make([]PromptResponse, 0, len(embedded))}
	for _, p := range embedded {
		resp.Prompts = append(resp.Prompts, PromptResponse{
			Key:         p.Key,
			Text:        p.Text,
			Description: p.Description,
			Variables:   p.Variables,
			Hash:        p.Hash,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListAppPrompts handles GET /api/apps/{name}/prompts.
func (s *Server) handleListAppPrompts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	app, err := s.store.GetApp(ctx, r.PathValue("name"))
	if err != nil {
		writeErr(w, err)
		return
	}

	embedded := s.resolver.AllEmbedded()
	resp := PromptsListResponse{App: app.Name, Prompts: make([]PromptResponse, 0, len(embedded))}
	for _, p := range embedded {
		resolved, err := s.resolver.Resolve(ctx, p.Key, app.Name)
		if err != nil {
			writeErr(w, err)
			return
		}
		resp.Prompts = append(resp.Prompts, PromptResponse{
			Key:         p.Key,
			Description: p.Description,
			Variables:   resolved.Variables,
			Hash:        resolved.Hash,
			IsOverride:  resolved.IsOverride,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetAppPrompt handles GET /api/apps/{name}/prompts/{key}.
func (s *Server) handleGetAppPrompt(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if _, ok := s.resolver.GetEmbedded(key); !ok {
		writeError(w, http.StatusNotFound, "prompt not found: "+key)
		return
	}
	p, err := s.resolver.Resolve(r.Context(), key, r.PathValue("name"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, promptResponse(p))
}

// handleSetAppPrompt handles PUT /api/apps/{name}/prompts/{key}.
func (s *Server) handleSetAppPrompt(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if _, ok := s.resolver.GetEmbedded(key); !ok {
		writeError(w, http.StatusNotFound, "prompt not found: "+key)
		return
	}
	var req SetPromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := s.store.SetPromptOverride(r.Context(), r.PathValue("name"), key, req.Text, req.Note)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// handleClearAppPrompt handles DELETE /api/apps/{name}/prompts/{key}.
func (s *Server) handleClearAppPrompt(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePromptOverride(r.Context(), r.PathValue("name"), r.PathValue("key")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func promptResponse(p *prompts.ResolvedPrompt) PromptResponse {
	return PromptResponse{
		Key:        p.Key,
		Text:       p.Text,
		Variables:  p.Variables,
		Hash:       p.Hash,
		IsOverride: p.IsOverride,
	}
}
