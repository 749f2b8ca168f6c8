// Package metrics provides cost and usage reporting over recorded
// extraction runs.
package metrics

import (
	"time"

	"github.com/jackzampolin/docfields/internal/extraction"
)

// Metric is the usage of one run, flattened for aggregation.
type Metric struct {
	RunID     string `json:"run_id"`
	App       string `json:"app,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
	PageCount int    `json:"page_count,omitempty"`

	// Provider info
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// Cost and tokens
	CostUSD          float64 `json:"cost_usd,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	ReasoningTokens  int     `json:"reasoning_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens,omitempty"`
	Attempts         int     `json:"attempts,omitempty"`

	// Timing
	TotalSeconds float64 `json:"total_seconds,omitempty"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// FromRun flattens a run. Runs still in flight report false.
func FromRun(r *extraction.Run) (Metric, bool) {
	if !r.Status.Terminal() {
		return Metric{}, false
	}
	m := Metric{
		RunID:     r.ID,
		App:       r.App,
		Strategy:  string(r.Strategy),
		PageCount: r.PageCount,
		Success:   r.Status == extraction.StatusCompleted && r.Error == "",
		Error:     r.Error,
		CreatedAt: r.CreatedAt,
	}
	if u := r.Usage; u != nil {
		m.Provider = u.Provider
		m.Model = u.Model
		m.CostUSD = u.CostUSD
		m.PromptTokens = u.PromptTokens
		m.CompletionTokens = u.CompletionTokens
		m.ReasoningTokens = u.ReasoningTokens
		m.TotalTokens = u.TotalTokens
		m.Attempts = u.Attempts
		m.TotalSeconds = u.DurationSeconds
	}
	return m, true
}
