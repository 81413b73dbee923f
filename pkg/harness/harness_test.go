package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractUsageRecognizesBothNamingConventions(t *testing.T) {
	u := ExtractUsage(map[string]interface{}{"usage": map[string]interface{}{
		"input_tokens": float64(10), "output_tokens": float64(20),
	}}, "")
	assert.Equal(t, 10, u.InputTokens)
	assert.Equal(t, 20, u.OutputTokens)
	assert.False(t, u.Estimated)

	u = ExtractUsage(map[string]interface{}{"usage": map[string]interface{}{
		"prompt_tokens": float64(5), "completion_tokens": float64(7),
	}}, "")
	assert.Equal(t, 5, u.InputTokens)
	assert.Equal(t, 7, u.OutputTokens)
}

func TestExtractUsageEstimatesWhenMissing(t *testing.T) {
	u := ExtractUsage(map[string]interface{}{}, "twelve characters here and more")
	assert.True(t, u.Estimated)
	assert.Equal(t, len("twelve characters here and more")/4, u.OutputTokens)
}

func TestExtractUsageEstimateFloorsAtOne(t *testing.T) {
	u := ExtractUsage(map[string]interface{}{}, "")
	assert.True(t, u.Estimated)
	assert.Equal(t, 1, u.OutputTokens)
}

func TestPricingTableFallsBackToDefault(t *testing.T) {
	table := DefaultPricingTable()
	spend := table.Spend("unknown-model", Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000})
	assert.Equal(t, table["default"].InputPerMillion+table["default"].OutputPerMillion, spend)
}

func TestCheckpointContinuesWithNoHooks(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := New(Limits{Turns: 10}, nil, Directive{Name: "deploy"}, nil, func() time.Time { return now })
	result := h.BeforeStep("build")
	assert.Equal(t, ActionContinue, result.Action)
}

func TestCheckpointFiresFirstMatchingHook(t *testing.T) {
	hooks, err := CompileHooks([]Hook{
		{When: `event.code == "timeout"`, Directive: "retry_directive", Inputs: map[string]interface{}{"step": "${event.step}"}},
		{When: "true", Directive: "catch_all"},
	})
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := New(Limits{}, hooks, Directive{Name: "deploy"}, nil, func() time.Time { return now })
	result := h.OnError("timeout", map[string]interface{}{"reason": "connection reset"})
	require.Equal(t, ActionHook, result.Action)
	assert.Equal(t, "retry_directive", result.Context["hook_directive"])
}

// TestOnErrorResolvesNestedDetailInHookInputs exercises the spec's S5
// scenario: a permission-denied error carries a structured detail object,
// and the matching hook's templated input reaches into it via
// ${event.detail.missing}.
func TestOnErrorResolvesNestedDetailInHookInputs(t *testing.T) {
	hooks, err := CompileHooks([]Hook{
		{
			When:      `event.code == "permission_denied"`,
			Directive: "request_elevated_permissions",
			Inputs: map[string]interface{}{
				"original_directive": "${directive.name}",
				"missing_cap":        "${event.detail.missing}",
			},
		},
	})
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := New(Limits{}, hooks, Directive{Name: "deploy"}, nil, func() time.Time { return now })

	result := h.OnError("permission_denied", map[string]interface{}{"missing": "fs.write"})
	require.Equal(t, ActionHook, result.Action)
	assert.Equal(t, "request_elevated_permissions", result.Context["hook_directive"])
	assert.Equal(t, map[string]interface{}{
		"original_directive": "deploy",
		"missing_cap":        "fs.write",
	}, result.Context["hook_inputs"])
}

func TestCheckpointLimitBreachProducesSyntheticEvent(t *testing.T) {
	hooks, err := CompileHooks([]Hook{
		{When: `event.name == "limits" and event.code == "turns_exceeded"`, Directive: "abort"},
	})
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := New(Limits{Turns: 2}, hooks, Directive{Name: "deploy"}, nil, func() time.Time { return now })
	h.Cost.Turns = 3

	result := h.BeforeStep("build")
	require.Equal(t, ActionHook, result.Action)
	assert.Equal(t, "abort", result.Context["hook_directive"])
}

func TestCompileHooksRejectsInvalidExpression(t *testing.T) {
	_, err := CompileHooks([]Hook{{When: "", Directive: "x"}})
	require.Error(t, err)
}

func TestUpdateCostAfterTurnAccumulates(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := New(Limits{}, nil, Directive{}, nil, func() time.Time { return now })
	h.UpdateCostAfterTurn(map[string]interface{}{"usage": map[string]interface{}{
		"input_tokens": float64(100), "output_tokens": float64(50),
	}}, "", "claude-sonnet-4")
	assert.Equal(t, 1, h.Cost.Turns)
	assert.Equal(t, 150, h.Cost.Tokens)
	assert.Greater(t, h.Cost.Spend, 0.0)
}
