package metrics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jackzampolin/docfields/internal/extraction"
	"github.com/jackzampolin/docfields/internal/prompts/extract"
	"github.com/jackzampolin/docfields/internal/store"
)

type fakeRuns struct {
	runs []*extraction.Run
	got  store.RunFilter
}

func (f *fakeRuns) ListRuns(_ context.Context, filter store.RunFilter) ([]*extraction.Run, error) {
	f.got = filter
	var out []*extraction.Run
	for _, r := range f.runs {
		if filter.App != "" && r.App != filter.App {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func run(app string, status extraction.Status, created time.Time, u *extraction.Usage) *extraction.Run {
	return &extraction.Run{
		ID:        app + created.Format("150405"),
		App:       app,
		Status:    status,
		Strategy:  extract.SingleWithEvidence,
		PageCount: 2,
		Usage:     u,
		CreatedAt: created,
	}
}

func testRuns() *fakeRuns {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &fakeRuns{runs: []*extraction.Run{
		run("invoices", extraction.StatusCompleted, base.Add(3*time.Minute), &extraction.Usage{
			Provider: "openrouter", Model: "gemini", CostUSD: 0.02,
			PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, Attempts: 1, DurationSeconds: 2,
		}),
		run("invoices", extraction.StatusFailed, base.Add(2*time.Minute), &extraction.Usage{
			Provider: "openai", Model: "gpt-4o-mini", CostUSD: 0.01,
			PromptTokens: 80, TotalTokens: 80, Attempts: 3, DurationSeconds: 4,
		}),
		run("receipts", extraction.StatusCompleted, base.Add(time.Minute), &extraction.Usage{
			Provider: "openrouter", Model: "gemini", CostUSD: 0.03,
			PromptTokens: 200, CompletionTokens: 100, ReasoningTokens: 20, TotalTokens: 320, Attempts: 1, DurationSeconds: 6,
		}),
		run("receipts", extraction.StatusProcessing, base, nil),
	}}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFromRunSkipsUnfinished(t *testing.T) {
	if _, ok := FromRun(&extraction.Run{Status: extraction.StatusPending}); ok {
		t.Error("pending run should not produce a metric")
	}

	r := &extraction.Run{ID: "r1", Status: extraction.StatusCompleted, Error: "response was not JSON"}
	m, ok := FromRun(r)
	if !ok {
		t.Fatal("completed run should produce a metric")
	}
	if m.Success {
		t.Error("completed run with an error should not count as success")
	}
}

func TestListFilters(t *testing.T) {
	q := NewQuery(testRuns())
	ctx := context.Background()

	all, err := q.List(ctx, Filter{}, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List() returned %d metrics, want 3", len(all))
	}

	success := true
	ok, err := q.List(ctx, Filter{Success: &success}, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ok) != 2 {
		t.Errorf("successful metrics = %d, want 2", len(ok))
	}

	byModel, _ := q.List(ctx, Filter{Model: "gpt-4o-mini"}, 0)
	if len(byModel) != 1 || byModel[0].Provider != "openai" {
		t.Errorf("model filter = %+v", byModel)
	}

	after, _ := q.List(ctx, Filter{After: time.Date(2026, 3, 1, 12, 1, 30, 0, time.UTC)}, 0)
	if len(after) != 2 {
		t.Errorf("after filter = %d metrics, want 2", len(after))
	}

	limited, _ := q.List(ctx, Filter{}, 1)
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d metrics", len(limited))
	}
}

func TestListPassesAppToStore(t *testing.T) {
	runs := testRuns()
	q := NewQuery(runs)

	metrics, err := q.List(context.Background(), Filter{App: "receipts"}, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if runs.got.App != "receipts" {
		t.Errorf("store filter app = %q", runs.got.App)
	}
	if len(metrics) != 1 {
		t.Errorf("receipts metrics = %d, want 1", len(metrics))
	}
}

func TestGetSummary(t *testing.T) {
	q := NewQuery(testRuns())

	s, err := q.GetSummary(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if s.Count != 3 || s.SuccessCount != 2 || s.ErrorCount != 1 {
		t.Errorf("counts = %d/%d/%d", s.Count, s.SuccessCount, s.ErrorCount)
	}
	if !near(s.TotalCostUSD, 0.06) {
		t.Errorf("TotalCostUSD = %v, want 0.06", s.TotalCostUSD)
	}
	if s.TotalTokens != 550 {
		t.Errorf("TotalTokens = %d, want 550", s.TotalTokens)
	}
	if s.TotalTime != 12*time.Second {
		t.Errorf("TotalTime = %v, want 12s", s.TotalTime)
	}
	if !near(s.AvgTimeSeconds, 4) {
		t.Errorf("AvgTimeSeconds = %v, want 4", s.AvgTimeSeconds)
	}
}

func TestGetDetailedStats(t *testing.T) {
	q := NewQuery(testRuns())

	stats, err := q.GetDetailedStats(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("GetDetailedStats() error = %v", err)
	}
	if stats.Retried != 1 {
		t.Errorf("Retried = %d, want 1", stats.Retried)
	}
	if stats.Tokens.Reasoning != 20 {
		t.Errorf("reasoning tokens = %d, want 20", stats.Tokens.Reasoning)
	}
	if stats.Latency.Min != 2 || stats.Latency.Max != 6 || stats.Latency.P50 != 4 {
		t.Errorf("latency min/p50/max = %v/%v/%v", stats.Latency.Min, stats.Latency.P50, stats.Latency.Max)
	}
	if !near(stats.Tokens.AvgPrompt, 380.0/3) {
		t.Errorf("avg prompt tokens = %v", stats.Tokens.AvgPrompt)
	}
	if stats.Pages != 6 || !near(stats.CostPerPageUSD, 0.01) {
		t.Errorf("pages = %d, cost per page = %v", stats.Pages, stats.CostPerPageUSD)
	}

	empty, err := NewQuery(&fakeRuns{}).GetDetailedStats(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("GetDetailedStats() error = %v", err)
	}
	if empty.Count != 0 || empty.AvgCostUSD != 0 || empty.Latency != (Distribution{}) {
		t.Errorf("empty stats = %+v", empty)
	}
}

func TestAppDetailedStats(t *testing.T) {
	q := NewQuery(testRuns())

	byApp, err := q.AppDetailedStats(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("AppDetailedStats() error = %v", err)
	}
	if len(byApp) != 2 {
		t.Fatalf("apps = %d, want 2", len(byApp))
	}
	if byApp["invoices"].Count != 2 || byApp["invoices"].ErrorCount != 1 {
		t.Errorf("invoices stats = %+v", byApp["invoices"])
	}
	if byApp["receipts"].Count != 1 {
		t.Errorf("receipts stats = %+v", byApp["receipts"])
	}
}

func TestCostBreakdowns(t *testing.T) {
	q := NewQuery(testRuns())
	ctx := context.Background()

	byProvider, err := q.CostByProvider(ctx, Filter{})
	if err != nil {
		t.Fatalf("CostByProvider() error = %v", err)
	}
	if !near(byProvider["openrouter"], 0.05) || !near(byProvider["openai"], 0.01) {
		t.Errorf("CostByProvider() = %v", byProvider)
	}

	byModel, _ := q.CostByModel(ctx, Filter{})
	if !near(byModel["gemini"], 0.05) {
		t.Errorf("CostByModel() = %v", byModel)
	}

	byApp, _ := q.CostBy(ctx, ByApp, Filter{})
	if !near(byApp["invoices"], 0.03) || !near(byApp["receipts"], 0.03) {
		t.Errorf("CostBy(app) = %v", byApp)
	}

	byStrategy, _ := q.CostBy(ctx, ByStrategy, Filter{})
	if len(byStrategy) != 1 || !near(byStrategy[string(extract.SingleWithEvidence)], 0.06) {
		t.Errorf("CostBy(strategy) = %v", byStrategy)
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{"empty", nil, 50, 0},
		{"single", []float64{3}, 99, 3},
		{"median", []float64{1, 2, 3, 4, 5}, 50, 3},
		{"interpolated", []float64{1, 2}, 50, 1.5},
		{"max", []float64{1, 2, 3}, 100, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentile(tt.values, tt.p); !near(got, tt.want) {
				t.Errorf("percentile(%v, %v) = %v, want %v", tt.values, tt.p, got, tt.want)
			}
		})
	}
}
