package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackzampolin/docfields/internal/extraction"
	"github.com/jackzampolin/docfields/internal/store"
)

// RunLister lists stored runs.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]*extraction.Run, error)
}

// Query provides queries for metrics.
type Query struct {
	runs RunLister
}

// NewQuery creates a new metrics query helper.
func NewQuery(runs RunLister) *Query {
	return &Query{runs: runs}
}

// Filter specifies query filters.
type Filter struct {
	App      string
	Provider string
	Model    string
	After    time.Time
	Before   time.Time
	Success  *bool // nil = any, true = success only, false = errors only
}

func (f Filter) match(m Metric) bool {
	if f.Provider != "" && m.Provider != f.Provider {
		return false
	}
	if f.Model != "" && m.Model != f.Model {
		return false
	}
	if !f.After.IsZero() && !m.CreatedAt.After(f.After) {
		return false
	}
	if !f.Before.IsZero() && !m.CreatedAt.Before(f.Before) {
		return false
	}
	if f.Success != nil && m.Success != *f.Success {
		return false
	}
	return true
}

// List returns metrics matching the filter, newest first.
func (q *Query) List(ctx context.Context, f Filter, limit int) ([]Metric, error) {
	runs, err := q.runs.ListRuns(ctx, store.RunFilter{App: f.App})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var metrics []Metric
	for _, r := range runs {
		if limit > 0 && len(metrics) >= limit {
			break
		}
		m, ok := FromRun(r)
		if !ok || !f.match(m) {
			continue
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}
