package metrics

import "context"

// Breakdown keys
const (
	ByApp      = "app"
	ByProvider = "provider"
	ByModel    = "model"
	ByStrategy = "strategy"
)

// CostBy returns the cost of matching runs grouped by one of the Breakdown
// keys. Runs with no value for the key are grouped under "".
func (q *Query) CostBy(ctx context.Context, key string, f Filter) (map[string]float64, error) {
	metrics, err := q.List(ctx, f, 0)
	if err != nil {
		return nil, err
	}

	breakdown := make(map[string]float64)
	for _, m := range metrics {
		breakdown[groupKey(m, key)] += m.CostUSD
	}
	return breakdown, nil
}

// CostByModel returns cost breakdown by model.
func (q *Query) CostByModel(ctx context.Context, f Filter) (map[string]float64, error) {
	return q.CostBy(ctx, ByModel, f)
}

// CostByProvider returns cost breakdown by provider.
func (q *Query) CostByProvider(ctx context.Context, f Filter) (map[string]float64, error) {
	return q.CostBy(ctx, ByProvider, f)
}

func groupKey(m Metric, key string) string {
	switch key {
	case ByApp:
		return m.App
	case ByProvider:
		return m.Provider
	case ByModel:
		return m.Model
	case ByStrategy:
		return m.Strategy
	default:
		return ""
	}
}
