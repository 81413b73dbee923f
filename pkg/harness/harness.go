package harness

import (
	"context"
	"time"

	"github.com/leolilley/kiwi-kernel/pkg/harness/expression"
	"github.com/leolilley/kiwi-kernel/pkg/observability"
)

// Action is the outcome a checkpoint yields to the directive runner. The
// harness never owns the scheduler — it publishes this result and the
// runner decides how to act on it, keeping the two independently testable.
type Action string

const (
	ActionContinue Action = "continue"
	ActionPause    Action = "pause"
	ActionHook     Action = "hook"
)

// Result is returned from every checkpoint call.
type Result struct {
	Action  Action
	Context map[string]interface{}
}

// Directive identifies the running directive by name and its inputs, held
// alongside cost/limits in every checkpoint's context.
type Directive struct {
	Name   string
	Inputs map[string]interface{}
}

// Harness is a per-thread safety harness instance: it owns a CostTracker,
// a Limits envelope, and an ordered Hook list, and exposes the three
// checkpoint operations the directive runner calls around each step.
type Harness struct {
	Limits      Limits
	Hooks       []Hook
	Cost        *CostTracker
	Directive   Directive
	Permissions []string
	Pricing     PricingTable

	now func() time.Time
	obs *observability.Provider
}

// SetObservability attaches a metrics provider so checkpoint evaluation
// records the limits_exceeded counter as breaches occur. Left unset, the
// harness runs exactly as before (callers without an observability stack
// pay no cost). Checkpoint-level counters that depend on the caller's
// context (RecordCheckpoint, RecordHookFired) are recorded by the
// orchestrator, which has ctx in scope; this setter only covers the
// breach signal the checkpoint loop computes internally and would
// otherwise never surface.
func (h *Harness) SetObservability(p *observability.Provider) {
	h.obs = p
}

// New constructs a Harness for one thread. hooks must already be compiled
// via CompileHooks. now defaults to time.Now when nil, overridable for
// deterministic tests.
func New(limits Limits, hooks []Hook, directive Directive, permissions []string, now func() time.Time) *Harness {
	if now == nil {
		now = time.Now
	}
	pricing := DefaultPricingTable()
	return &Harness{
		Limits:      limits,
		Hooks:       hooks,
		Cost:        NewCostTracker(now()),
		Directive:   directive,
		Permissions: permissions,
		Pricing:     pricing,
		now:         now,
	}
}

// UpdateCostAfterTurn records one LLM turn's usage against the thread's
// cost tracker, to be called by the caller after every turn and before the
// next checkpoint, so limit checks observe up-to-date cost.
func (h *Harness) UpdateCostAfterTurn(response map[string]interface{}, content, model string) Usage {
	return h.Cost.UpdateCostAfterTurn(response, content, model, h.Pricing)
}

func (h *Harness) buildContext(event map[string]interface{}) expression.Context {
	return expression.Context{
		"event": event,
		"directive": map[string]interface{}{
			"name":   h.Directive.Name,
			"inputs": h.Directive.Inputs,
		},
		"cost": map[string]interface{}{
			"turns":            float64(h.Cost.Turns),
			"tokens":           float64(h.Cost.Tokens),
			"spawns":           float64(h.Cost.Spawns),
			"spend":            h.Cost.Spend,
			"duration_seconds": h.Cost.DurationSeconds(h.now()),
		},
		"limits": map[string]interface{}{
			"turns":            float64(h.Limits.Turns),
			"tokens":           float64(h.Limits.Tokens),
			"spawns":           float64(h.Limits.Spawns),
			"spend":            h.Limits.Spend,
			"duration_seconds": h.Limits.DurationSeconds,
		},
		"permissions": h.Permissions,
	}
}

// checkpoint is the shared implementation behind BeforeStep/AfterStep/OnError:
// it first runs the limit check (producing a synthetic "limits" event on
// breach), then evaluates hooks against the resulting context.
func (h *Harness) checkpoint(event map[string]interface{}) Result {
	if breach := checkLimits(h.Cost, h.Limits, h.now()); breach != nil {
		event = map[string]interface{}{
			"name":    "limits",
			"code":    breach.Metric + "_exceeded",
			"current": breach.Current,
			"max":     breach.Max,
		}
		if h.obs != nil {
			h.obs.RecordLimitExceeded(context.Background(), breach.Metric)
		}
	}

	ctx := h.buildContext(event)
	if hook := matchHook(h.Hooks, ctx); hook != nil {
		inputs := expression.SubstituteTemplates(hook.Inputs, ctx)
		return Result{
			Action: ActionHook,
			Context: map[string]interface{}{
				"hook_directive": hook.Directive,
				"hook_inputs":    inputs,
			},
		}
	}
	return Result{Action: ActionContinue}
}

// BeforeStep checkpoints prior to executing a named step.
func (h *Harness) BeforeStep(name string) Result {
	return h.checkpoint(map[string]interface{}{"name": "before_step", "step": name})
}

// AfterStep checkpoints after a named step completed, carrying its result.
func (h *Harness) AfterStep(name string, result interface{}) Result {
	return h.checkpoint(map[string]interface{}{"name": "after_step", "step": name, "result": result})
}

// OnError checkpoints on a step failure. detail is a structured payload
// (e.g. {"missing": "fs.write"}) so a hook's When/Inputs can reach into it
// via ${event.detail.missing}.
func (h *Harness) OnError(code string, detail map[string]interface{}) Result {
	return h.checkpoint(map[string]interface{}{"name": "error", "code": code, "detail": detail})
}
