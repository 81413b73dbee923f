// Package orchestrator assembles the primitive executor's full pipeline
// (spec component 4.E) out of the per-concern packages: resolve,
// validate, enforce the lockfile, merge config, inject auth, substitute
// templates, and dispatch to the chain's terminal primitive, fanning a
// streaming primitive's output out to the sinks config.stream.destinations
// describes. Every step also checkpoints the harness, so hooks and limits
// are evaluated across the whole run; the Executor records each
// checkpoint's outcome as metrics and does not itself pause, stop or
// redirect the run on a hook or limit result.
package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/leolilley/kiwi-kernel/pkg/credentials"
	"github.com/leolilley/kiwi-kernel/pkg/execengine"
	"github.com/leolilley/kiwi-kernel/pkg/harness"
	"github.com/leolilley/kiwi-kernel/pkg/lockfile"
	"github.com/leolilley/kiwi-kernel/pkg/observability"
	"github.com/leolilley/kiwi-kernel/pkg/resolver"
	"github.com/leolilley/kiwi-kernel/pkg/validator"
)

// Executor wires the per-concern packages into one callable pipeline for
// a single tool_id execution.
type Executor struct {
	Resolver      *resolver.Resolver
	Lockfiles     lockfile.Store
	LockCategory  string
	LockScope     lockfile.Scope
	Credentials   *credentials.Provider
	HTTPClient    *http.Client
	RetryPolicy   execengine.RetryPolicy
	Harness       *harness.Harness
	Observability *observability.Provider
	Now           func() time.Time
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// PipelineError wraps a failure at a named pipeline stage, so callers and
// tests can tell resolution failures apart from drift, auth, or dispatch
// failures without type-switching on every concern's own error type.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("orchestrator: %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Execute runs toolID's chain end to end: resolve, validate, enforce the
// lockfile, merge config, inject auth, substitute params against the
// caller-supplied params, build sinks from config.stream.destinations,
// and dispatch the terminal primitive. A validation or drift failure
// short-circuits before any network or process I/O happens.
func (e *Executor) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*execengine.ExecutionResult, error) {
	start := e.now()
	e.checkpointBefore(ctx, "resolve")

	chain, err := e.Resolver.Resolve(ctx, toolID)
	if err != nil {
		e.checkpointError(ctx, "resolution_failed", map[string]interface{}{"tool_id": toolID, "error": err.Error()})
		return nil, &PipelineError{Stage: "resolve", Err: err}
	}

	e.checkpointBefore(ctx, "validate")
	result := validator.Validate(chain, validator.ModeStrict)
	if !result.Valid {
		e.checkpointError(ctx, "validation_failed", map[string]interface{}{"tool_id": toolID})
		return nil, &PipelineError{Stage: "validate", Err: fmt.Errorf("%d validation error(s), first: %s", len(result.Errors), result.Errors[0].String())}
	}

	e.checkpointBefore(ctx, "lockfile")
	if err := e.enforceLockfile(ctx, chain); err != nil {
		e.checkpointError(ctx, "lockfile_drift", map[string]interface{}{"tool_id": toolID, "error": err.Error()})
		return nil, &PipelineError{Stage: "lockfile", Err: err}
	}

	chainCtx := ctx
	if e.Observability != nil {
		spanCtx, span := e.Observability.StartChainSpan(ctx, toolID)
		chainCtx = spanCtx
		defer span.End()
	}

	cfg := execengine.MergeConfig(chain)

	if e.Credentials != nil {
		e.checkpointBefore(ctx, "inject_auth")
		cfg, err = execengine.InjectAuth(chain, cfg, e.Credentials, e.now())
		if err != nil {
			e.checkpointError(ctx, "auth_required", map[string]interface{}{"tool_id": toolID, "error": err.Error()})
			return nil, &PipelineError{Stage: "inject_auth", Err: err}
		}
	}

	e.checkpointBefore(ctx, "substitute_params")
	cfg, err = execengine.SubstituteParams(cfg, params)
	if err != nil {
		e.checkpointError(ctx, "unresolved_placeholder", map[string]interface{}{"tool_id": toolID, "error": err.Error()})
		return nil, &PipelineError{Stage: "substitute_params", Err: err}
	}

	sinks, err := BuildSinks(cfg)
	if err != nil {
		e.checkpointError(ctx, "sink_build_failed", map[string]interface{}{"tool_id": toolID, "error": err.Error()})
		return nil, &PipelineError{Stage: "build_sinks", Err: err}
	}
	defer execengine.CloseAll(sinks)

	terminal := chain.Terminal()

	primitiveCtx := chainCtx
	if e.Observability != nil {
		spanCtx, span := e.Observability.StartPrimitiveSpan(chainCtx, terminal.ToolID())
		primitiveCtx = spanCtx
		defer span.End()
	}

	e.checkpointBefore(ctx, "dispatch")
	execResult, err := e.dispatch(primitiveCtx, terminal.ToolID(), cfg, sinks)
	if err != nil {
		e.checkpointError(ctx, "dispatch_failed", map[string]interface{}{"tool_id": toolID, "error": err.Error()})
		return nil, &PipelineError{Stage: "dispatch", Err: err}
	}
	e.checkpointAfter(ctx, "dispatch", execResult)

	if e.Observability != nil {
		e.Observability.RecordChainDuration(ctx, e.now().Sub(start))
	}
	return execResult, nil
}

func (e *Executor) checkpointBefore(ctx context.Context, step string) {
	if e.Harness == nil {
		return
	}
	res := e.Harness.BeforeStep(step)
	e.recordCheckpoint(ctx, step, res)
}

func (e *Executor) checkpointAfter(ctx context.Context, step string, result interface{}) {
	if e.Harness == nil {
		return
	}
	res := e.Harness.AfterStep(step, result)
	e.recordCheckpoint(ctx, step, res)
}

func (e *Executor) checkpointError(ctx context.Context, code string, detail map[string]interface{}) {
	if e.Harness == nil {
		return
	}
	res := e.Harness.OnError(code, detail)
	e.recordCheckpoint(ctx, code, res)
}

func (e *Executor) recordCheckpoint(ctx context.Context, name string, res harness.Result) {
	if e.Observability == nil {
		return
	}
	e.Observability.RecordCheckpoint(ctx, name)
	if res.Action == harness.ActionHook {
		if directive, ok := res.Context["hook_directive"].(string); ok {
			e.Observability.RecordHookFired(ctx, directive)
		}
	}
}

// enforceLockfile loads the stored lockfile (if any) for the chain's root
// tool_id/version and enforces it against the freshly resolved chain.
// Absence of a stored lockfile is not itself treated as drift here: a
// first-ever execution freezes and saves the chain instead of failing,
// matching the spec's "lockfiles are created on first successful
// resolution" note; every subsequent run enforces against what was saved.
func (e *Executor) enforceLockfile(ctx context.Context, chain resolver.Chain) error {
	if e.Lockfiles == nil {
		return nil
	}
	root := chain[0]
	existing, err := e.Lockfiles.Load(ctx, e.LockCategory, e.LockScope, root.ToolID(), root.Version())
	if err != nil {
		return fmt.Errorf("loading lockfile: %w", err)
	}
	if existing == nil {
		lock, err := lockfile.Freeze(chain, e.LockCategory, e.LockScope, e.now())
		if err != nil {
			return fmt.Errorf("freezing lockfile: %w", err)
		}
		return e.Lockfiles.Save(ctx, lock)
	}
	return lockfile.Enforce(chain, existing)
}

func (e *Executor) dispatch(ctx context.Context, primitiveID string, cfg map[string]interface{}, sinks []execengine.Sink) (*execengine.ExecutionResult, error) {
	switch primitiveID {
	case "http_client":
		httpCfg := parseHTTPConfig(cfg)
		client := e.HTTPClient
		if client == nil {
			client = http.DefaultClient
		}
		return execengine.DispatchHTTP(ctx, client, httpCfg, sinks, e.RetryPolicy)
	case "subprocess":
		return execengine.DispatchSubprocess(ctx, parseSubprocessConfig(cfg))
	default:
		return nil, fmt.Errorf("orchestrator: no dispatcher registered for primitive %q", primitiveID)
	}
}
