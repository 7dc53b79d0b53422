package history

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes recorded runs.
type Stats struct {
	TotalRuns   int64         `json:"total_runs"`
	Succeeded   int64         `json:"succeeded"`
	Failed      int64         `json:"failed"`
	SuccessRate float64       `json:"success_rate"`
	DurationMS  DurationStats `json:"duration_ms"`
}

// DurationStats holds latency aggregates in milliseconds.
type DurationStats struct {
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	P99  float64 `json:"p99"`
	Max  float64 `json:"max"`
}

// Stats computes aggregates over the full run history.
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	total, succeeded, err := m.store.Outcomes(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		TotalRuns: total,
		Succeeded: succeeded,
		Failed:    total - succeeded,
	}
	if total == 0 {
		return st, nil
	}
	st.SuccessRate = float64(succeeded) / float64(total)

	durations, err := m.store.Durations(ctx)
	if err != nil {
		return nil, err
	}
	if len(durations) == 0 {
		return st, nil
	}

	sort.Float64s(durations)
	st.DurationMS = DurationStats{
		Mean: stat.Mean(durations, nil),
		P50:  stat.Quantile(0.5, stat.Empirical, durations, nil),
		P90:  stat.Quantile(0.9, stat.Empirical, durations, nil),
		P99:  stat.Quantile(0.99, stat.Empirical, durations, nil),
		Max:  durations[len(durations)-1],
	}
	return st, nil
}
