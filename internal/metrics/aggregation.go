package metrics

import (
	"context"
	"sort"
	"time"
)

// TotalCost returns the total cost for metrics matching the filter.
func (q *Query) TotalCost(ctx context.Context, f Filter) (float64, error) {
	metrics, err := q.List(ctx, f, 0)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, m := range metrics {
		total += m.CostUSD
	}
	return total, nil
}

// Summary is the short form of DetailedStats.
type Summary struct {
	Count          int           `json:"count"`
	TotalCostUSD   float64       `json:"total_cost_usd"`
	TotalTokens    int           `json:"total_tokens"`
	TotalTime      time.Duration `json:"total_time"`
	SuccessCount   int           `json:"success_count"`
	ErrorCount     int           `json:"error_count"`
	AvgCostUSD     float64       `json:"avg_cost_usd"`
	AvgTokens      float64       `json:"avg_tokens"`
	AvgTimeSeconds float64       `json:"avg_time_seconds"`
}

// GetSummary returns a summary of metrics matching the filter.
func (q *Query) GetSummary(ctx context.Context, f Filter) (*Summary, error) {
	stats, err := q.GetDetailedStats(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Count:          stats.Count,
		TotalCostUSD:   stats.TotalCostUSD,
		TotalTokens:    stats.Tokens.Total,
		TotalTime:      time.Duration(stats.TotalSeconds * float64(time.Second)),
		SuccessCount:   stats.SuccessCount,
		ErrorCount:     stats.ErrorCount,
		AvgCostUSD:     stats.AvgCostUSD,
		AvgTokens:      stats.Tokens.AvgTotal,
		AvgTimeSeconds: stats.Latency.Avg,
	}, nil
}

// Distribution summarizes a set of observations.
type Distribution struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// TokenStats totals token usage and averages it per run.
type TokenStats struct {
	Prompt        int     `json:"prompt"`
	Completion    int     `json:"completion"`
	Reasoning     int     `json:"reasoning,omitempty"`
	Total         int     `json:"total"`
	AvgPrompt     float64 `json:"avg_prompt"`
	AvgCompletion float64 `json:"avg_completion"`
	AvgTotal      float64 `json:"avg_total"`
}

// DetailedStats describes a set of finished runs.
type DetailedStats struct {
	Count        int `json:"count"`
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
	// Retried counts runs whose model call took more than one attempt.
	Retried int `json:"retried"`
	Pages   int `json:"pages"`

	TotalCostUSD   float64 `json:"total_cost_usd"`
	AvgCostUSD     float64 `json:"avg_cost_usd"`
	CostPerPageUSD float64 `json:"cost_per_page_usd"`

	TotalSeconds float64 `json:"total_seconds"`
	// Latency covers runs that reported a duration.
	Latency Distribution `json:"latency_seconds"`

	Tokens TokenStats `json:"tokens"`
}

// GetDetailedStats returns cost, latency and token statistics for metrics
// matching the filter.
func (q *Query) GetDetailedStats(ctx context.Context, f Filter) (*DetailedStats, error) {
	metrics, err := q.List(ctx, f, 0)
	if err != nil {
		return nil, err
	}
	return detailedStats(metrics), nil
}

// AppDetailedStats returns detailed stats grouped by app.
func (q *Query) AppDetailedStats(ctx context.Context, f Filter) (map[string]*DetailedStats, error) {
	metrics, err := q.List(ctx, f, 0)
	if err != nil {
		return nil, err
	}

	byApp := make(map[string][]Metric)
	for _, m := range metrics {
		byApp[m.App] = append(byApp[m.App], m)
	}

	result := make(map[string]*DetailedStats, len(byApp))
	for app, appMetrics := range byApp {
		result[app] = detailedStats(appMetrics)
	}
	return result, nil
}

func detailedStats(metrics []Metric) *DetailedStats {
	stats := &DetailedStats{Count: len(metrics)}
	if len(metrics) == 0 {
		return stats
	}

	var latencies []float64
	tok := &stats.Tokens
	for _, m := range metrics {
		if m.Success {
			stats.SuccessCount++
		} else {
			stats.ErrorCount++
		}
		if m.Attempts > 1 {
			stats.Retried++
		}
		stats.Pages += m.PageCount
		stats.TotalCostUSD += m.CostUSD
		stats.TotalSeconds += m.TotalSeconds

		tok.Prompt += m.PromptTokens
		tok.Completion += m.CompletionTokens
		tok.Reasoning += m.ReasoningTokens
		tok.Total += m.TotalTokens

		if m.TotalSeconds > 0 {
			latencies = append(latencies, m.TotalSeconds)
		}
	}

	n := float64(stats.Count)
	stats.AvgCostUSD = stats.TotalCostUSD / n
	if stats.Pages > 0 {
		stats.CostPerPageUSD = stats.TotalCostUSD / float64(stats.Pages)
	}
	tok.AvgPrompt = float64(tok.Prompt) / n
	tok.AvgCompletion = float64(tok.Completion) / n
	tok.AvgTotal = float64(tok.Total) / n
	stats.Latency = distribution(latencies)
	return stats
}

func distribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return Distribution{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

// percentile interpolates the p-th percentile of sorted.
func percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(rank)
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}
