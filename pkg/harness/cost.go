// Package harness implements the safety harness: per-thread cost tracking,
// checkpoint-driven hook evaluation, and limit enforcement. It consumes
// pkg/harness/expression for "when" clause parsing and evaluation.
package harness

import "time"

// CostTracker accumulates per-thread usage. It is created with each thread
// and discarded on thread termination — never shared across threads, and
// never inherited by a spawned child's own tracker.
type CostTracker struct {
	Turns     int
	Tokens    int
	Spawns    int
	Spend     float64
	StartedAt time.Time
}

// NewCostTracker starts a tracker at now.
func NewCostTracker(now time.Time) *CostTracker {
	return &CostTracker{StartedAt: now}
}

// DurationSeconds returns elapsed wall-clock time since StartedAt.
func (c *CostTracker) DurationSeconds(now time.Time) float64 {
	return now.Sub(c.StartedAt).Seconds()
}

// Usage is the per-turn token/cost record extracted from an LLM response.
type Usage struct {
	InputTokens  int
	OutputTokens int
	Estimated    bool
}

// ExtractUsage reads usage from a provider response payload, recognizing
// both naming conventions seen across providers (input_tokens/output_tokens
// and prompt_tokens/completion_tokens). If neither convention yields output
// tokens, they are estimated from content length and the record is flagged.
func ExtractUsage(response map[string]interface{}, content string) Usage {
	usage, _ := response["usage"].(map[string]interface{})

	in := firstInt(usage, "input_tokens", "prompt_tokens")
	out, found := firstIntOK(usage, "output_tokens", "completion_tokens")
	if !found {
		out = len(content) / 4
		if out < 1 {
			out = 1
		}
		return Usage{InputTokens: in, OutputTokens: out, Estimated: true}
	}
	return Usage{InputTokens: in, OutputTokens: out}
}

func firstInt(m map[string]interface{}, keys ...string) int {
	v, _ := firstIntOK(m, keys...)
	return v
}

func firstIntOK(m map[string]interface{}, keys ...string) (int, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch n := v.(type) {
			case float64:
				return int(n), true
			case int:
				return n, true
			}
		}
	}
	return 0, false
}

// PricingEntry is a per-million-token rate pair for one model.
type PricingEntry struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// PricingTable maps model name to its rates, with a "default" fallback
// entry used for any model not explicitly listed.
type PricingTable map[string]PricingEntry

// DefaultPricingTable ships sane per-model defaults plus a default
// fallback, as named in the original design's spend computation.
func DefaultPricingTable() PricingTable {
	return PricingTable{
		"claude-opus-4":   {InputPerMillion: 15.0, OutputPerMillion: 75.0},
		"claude-sonnet-4": {InputPerMillion: 3.0, OutputPerMillion: 15.0},
		"claude-haiku-4":  {InputPerMillion: 0.8, OutputPerMillion: 4.0},
		"default":         {InputPerMillion: 3.0, OutputPerMillion: 15.0},
	}
}

// Spend computes the dollar cost of a Usage record at model's rate,
// falling back to the "default" entry for an unlisted model.
func (t PricingTable) Spend(model string, u Usage) float64 {
	entry, ok := t[model]
	if !ok {
		entry = t["default"]
	}
	return float64(u.InputTokens)/1e6*entry.InputPerMillion + float64(u.OutputTokens)/1e6*entry.OutputPerMillion
}

// UpdateCostAfterTurn applies one turn's usage and model pricing to the
// tracker: increments Turns/Tokens, adds computed Spend.
func (c *CostTracker) UpdateCostAfterTurn(response map[string]interface{}, content, model string, pricing PricingTable) Usage {
	usage := ExtractUsage(response, content)
	c.Turns++
	c.Tokens += usage.InputTokens + usage.OutputTokens
	c.Spend += pricing.Spend(model, usage)
	return usage
}
