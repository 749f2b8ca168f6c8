// Package extraction runs one schema-driven extraction over a document: it
// selects the strategy, assembles the prompt, calls the model, reconciles the
// response and records the run.
package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/docfields/internal/prompts/extract"
	"github.com/jackzampolin/docfields/internal/response"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrInvalidTransition is returned for a status change the lifecycle forbids.
var ErrInvalidTransition = errors.New("invalid run status transition")

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// Usage records what the model call cost.
type Usage struct {
	Provider         string  `json:"provider,omitempty"`
	Model            string  `json:"model,omitempty"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	ReasoningTokens  int     `json:"reasoning_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
	Attempts         int     `json:"attempts"`
	DurationSeconds  float64 `json:"duration_seconds"`
}

// Run is one extraction attempt. A retried extraction is a new Run.
type Run struct {
	ID        string           `json:"id"`
	App       string           `json:"app"`
	Document  string           `json:"document,omitempty"`
	Status    Status           `json:"status"`
	Strategy  extract.Strategy `json:"strategy,omitempty"`
	PageCount int              `json:"page_count,omitempty"`

	// Values and Indices hold the reconciled trees in schema key order.
	Values  json.RawMessage `json:"values,omitempty"`
	Indices json.RawMessage `json:"indices,omitempty"`

	Error  string   `json:"error,omitempty"`
	Issues []string `json:"issues,omitempty"`

	SystemPromptHash string `json:"system_prompt_hash,omitempty"`
	UserPromptHash   string `json:"user_prompt_hash,omitempty"`
	Usage            *Usage `json:"usage,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// EditedAt is set when values were corrected after completion.
	EditedAt *time.Time `json:"edited_at,omitempty"`
}

// NewRun creates a pending run for app.
func NewRun(app, document string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:        uuid.New().String(),
		App:       app,
		Document:  document,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the run to next, rejecting anything outside
// pending -> processing -> completed | failed.
func (r *Run) Transition(next Status) error {
	for _, allowed := range transitions[r.Status] {
		if allowed == next {
			now := time.Now().UTC()
			r.Status = next
			r.UpdatedAt = now
			if next.Terminal() {
				r.CompletedAt = &now
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
}

// Fail marks the run failed with err's message.
func (r *Run) Fail(err error) error {
	r.Error = err.Error()
	return r.Transition(StatusFailed)
}

// Complete records a parse result and marks the run completed. A response
// that could not be read as JSON still completes: Error carries the same
// marker text as the value tree and the decode cause goes to Issues.
func (r *Run) Complete(res *response.Result) error {
	values, err := json.Marshal(res.Values)
	if err != nil {
		return fmt.Errorf("failed to encode values: %w", err)
	}
	indices, err := json.Marshal(res.Indices)
	if err != nil {
		return fmt.Errorf("failed to encode indices: %w", err)
	}
	r.Values = values
	r.Indices = indices
	r.Issues = append([]string(nil), res.Issues...)
	if res.Err != nil {
		r.Error = response.ErrorMessage
		r.Issues = append(r.Issues, res.Err.Error())
	}
	return r.Transition(StatusCompleted)
}
