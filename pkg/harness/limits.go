package harness

import "time"

// Limits bounds a harness instance's thread. A zero value for a field means
// that metric is unbounded.
type Limits struct {
	Turns           int
	Tokens          int
	Spawns          int
	DurationSeconds float64
	Spend           float64
}

// LimitBreach names the metric that exceeded its configured limit.
type LimitBreach struct {
	Metric  string
	Current float64
	Max     float64
}

// checkLimits compares cost against limits in a fixed metric order and
// returns the first exceeded limit, matching the spec's "first exceeded
// limit" wording — at most one breach is surfaced per check.
func checkLimits(cost *CostTracker, limits Limits, now time.Time) *LimitBreach {
	checks := []struct {
		metric  string
		current float64
		max     float64
	}{
		{"turns", float64(cost.Turns), float64(limits.Turns)},
		{"tokens", float64(cost.Tokens), float64(limits.Tokens)},
		{"spawns", float64(cost.Spawns), float64(limits.Spawns)},
		{"duration", cost.DurationSeconds(now), limits.DurationSeconds},
		{"spend", cost.Spend, limits.Spend},
	}
	for _, c := range checks {
		if c.max > 0 && c.current > c.max {
			return &LimitBreach{Metric: c.metric, Current: c.current, Max: c.max}
		}
	}
	return nil
}
