package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cockroachdb/apd/v3"
	"go.etcd.io/bbolt"

	"github.com/jackzampolin/docfields/internal/extraction"
	"github.com/jackzampolin/docfields/internal/numeric"
	"github.com/jackzampolin/docfields/internal/response"
)

// runRecord is the stored form of a run. Usage amounts are kept as exact
// decimal text so a cost of 0.0012 reads back as 0.0012.
type runRecord struct {
	*extraction.Run
	Usage *usageRecord `json:"usage,omitempty"`
}

type usageRecord struct {
	Provider         string `json:"provider,omitempty"`
	Model            string `json:"model,omitempty"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	ReasoningTokens  int    `json:"reasoning_tokens,omitempty"`
	TotalTokens      int    `json:"total_tokens"`
	CostUSD          string `json:"cost_usd"`
	Attempts         int    `json:"attempts"`
	DurationSeconds  string `json:"duration_seconds"`
}

func decimalText(f float64) string {
	if d, ok := numeric.FloatToDecimal(f).(*apd.Decimal); ok {
		return d.String()
	}
	return "0"
}

func decimalValue(s string) float64 {
	d, ok := numeric.ParseDecimal(s)
	if !ok {
		return 0
	}
	if f, ok := numeric.DecimalToFloat(d).(float64); ok {
		return f
	}
	return 0
}

func toRecord(r *extraction.Run) runRecord {
	rec := runRecord{Run: r}
	if u := r.Usage; u != nil {
		rec.Usage = &usageRecord{
			Provider:         u.Provider,
			Model:            u.Model,
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			ReasoningTokens:  u.ReasoningTokens,
			TotalTokens:      u.TotalTokens,
			CostUSD:          decimalText(u.CostUSD),
			Attempts:         u.Attempts,
			DurationSeconds:  decimalText(u.DurationSeconds),
		}
	}
	return rec
}

func (rec runRecord) toRun() *extraction.Run {
	r := rec.Run
	if u := rec.Usage; u != nil {
		r.Usage = &extraction.Usage{
			Provider:         u.Provider,
			Model:            u.Model,
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			ReasoningTokens:  u.ReasoningTokens,
			TotalTokens:      u.TotalTokens,
			CostUSD:          decimalValue(u.CostUSD),
			Attempts:         u.Attempts,
			DurationSeconds:  decimalValue(u.DurationSeconds),
		}
	}
	return r
}

func decodeRun(data []byte) (*extraction.Run, error) {
	rec := runRecord{Run: &extraction.Run{}}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec.toRun(), nil
}

// SaveRun writes a run, replacing any previous version with the same ID.
func (s *Store) SaveRun(ctx context.Context, r *extraction.Run) error {
	if r.ID == "" {
		return fmt.Errorf("run has no id")
	}
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		return put(tx, bucketRuns, r.ID, toRecord(r))
	})
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.ID, err)
	}
	s.logger.Debug("run saved", "run_id", r.ID, "status", r.Status)
	return nil
}

// GetRun loads a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*extraction.Run, error) {
	var run *extraction.Run
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRuns).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("runs %q: %w", id, ErrNotFound)
		}
		r, err := decodeRun(data)
		if err != nil {
			return fmt.Errorf("failed to decode run %s: %w", id, err)
		}
		run = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	App    string
	Status extraction.Status
	Limit  int
}

// ListRuns returns matching runs, newest first.
func (s *Store) ListRuns(ctx context.Context, filter RunFilter) ([]*extraction.Run, error) {
	var runs []*extraction.Run
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			r, err := decodeRun(v)
			if err != nil {
				return fmt.Errorf("failed to decode run %s: %w", k, err)
			}
			if filter.App != "" && r.App != filter.App {
				return nil
			}
			if filter.Status != "" && r.Status != filter.Status {
				return nil
			}
			runs = append(runs, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if filter.Limit > 0 && len(runs) > filter.Limit {
		runs = runs[:filter.Limit]
	}
	return runs, nil
}

// UpdateRunValues replaces the value tree of a completed run with corrected
// values. The index tree is rebuilt to mirror them: entries of indices (or of
// the stored tree when indices is empty) that still line up are kept, every
// other leaf loses its evidence.
func (s *Store) UpdateRunValues(ctx context.Context, id string, values, indices json.RawMessage) (*extraction.Run, error) {
	var obj map[string]any
	if err := json.Unmarshal(values, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%w: values must be a JSON object", ErrInvalid)
	}

	var run *extraction.Run
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRuns).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("runs %q: %w", id, ErrNotFound)
		}
		r, err := decodeRun(data)
		if err != nil {
			return fmt.Errorf("failed to decode run %s: %w", id, err)
		}
		if r.Status != extraction.StatusCompleted {
			return fmt.Errorf("%w: run %s is %s; only completed runs can be edited", ErrInvalid, id, r.Status)
		}

		prev := indices
		if len(prev) == 0 {
			prev = r.Indices
		}
		mirrored, err := response.Reindex(values, prev)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}

		now := time.Now().UTC()
		r.Values = values
		r.Indices = mirrored
		r.UpdatedAt = now
		r.EditedAt = &now
		run = r
		return put(tx, bucketRuns, id, toRecord(r))
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}
