// Command kiwikernel is the minimal CLI entrypoint wiring the resolver,
// validator, lockfile store, executor, and capability/harness packages
// together, in the teacher's cmd/helm dispatcher style.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/leolilley/kiwi-kernel/pkg/capability"
	"github.com/leolilley/kiwi-kernel/pkg/config"
	"github.com/leolilley/kiwi-kernel/pkg/credentials"
	"github.com/leolilley/kiwi-kernel/pkg/execengine"
	"github.com/leolilley/kiwi-kernel/pkg/harness"
	"github.com/leolilley/kiwi-kernel/pkg/lockfile"
	"github.com/leolilley/kiwi-kernel/pkg/observability"
	"github.com/leolilley/kiwi-kernel/pkg/orchestrator"
	"github.com/leolilley/kiwi-kernel/pkg/resolver"
	"github.com/leolilley/kiwi-kernel/pkg/validator"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint body, split out from main for testability.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		_, _ = fmt.Fprintln(stderr, "Usage: kiwikernel <resolve|execute|keys|version> [args]")
		return 2
	}

	cfg := config.Load()

	switch args[1] {
	case "resolve":
		return runResolve(cfg, args[2:], stdout, stderr)
	case "execute":
		return runExecute(cfg, args[2:], stdout, stderr)
	case "keys":
		return runKeys(cfg, stdout, stderr)
	case "version":
		_, _ = fmt.Fprintln(stdout, "kiwikernel 0.1.0")
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "kiwikernel: unknown command %q\n", args[1])
		return 2
	}
}

// newResolver builds the standard local -> user -> registry tier chain
// from process configuration, shared by the resolve and execute commands.
func newResolver(ctx context.Context, cfg *config.Config) (*resolver.Resolver, error) {
	tiers := []resolver.Tier{
		resolver.NewFSTier(cfg.ProjectRoot+"/tools", resolver.SourceLocal),
		resolver.NewFSTier(cfg.UserRoot+"/tools", resolver.SourceUser),
	}

	backend, err := resolver.NewRegistryBackendFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry backend: %w", err)
	}
	if backend != nil {
		tiers = append(tiers, resolver.NewRegistryTier(backend))
	}
	return resolver.New(tiers...), nil
}

func runResolve(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: kiwikernel resolve <tool_id>")
		return 2
	}
	toolID := args[0]

	ctx := context.Background()
	res, err := newResolver(ctx, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "kiwikernel: %v\n", err)
		return 1
	}

	chain, err := res.Resolve(ctx, toolID)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "kiwikernel: resolve %s: %v\n", toolID, err)
		return 1
	}

	result := validator.Validate(chain, validator.ModeStrict)
	if !result.Valid {
		for _, f := range result.Errors {
			_, _ = fmt.Fprintf(stderr, "kiwikernel: validation error: %s: %s\n", f.ToolID, f.Message)
		}
		return 1
	}

	for _, link := range chain {
		_, _ = fmt.Fprintf(stdout, "%s@%s (%s)\n", link.ToolID(), link.Version(), link.Source)
	}
	return 0
}

// runExecute drives the full primitive-execution pipeline (spec component
// 4.E): resolve, validate, enforce the lockfile, merge config, inject
// auth, substitute params, and dispatch the terminal primitive.
//
// Usage: kiwikernel execute <tool_id> [params_json]
func runExecute(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: kiwikernel execute <tool_id> [params_json]")
		return 2
	}
	toolID := args[0]

	params := map[string]interface{}{}
	if len(args) > 1 {
		if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
			_, _ = fmt.Fprintf(stderr, "kiwikernel: invalid params json: %v\n", err)
			return 2
		}
	}

	ctx := context.Background()
	res, err := newResolver(ctx, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "kiwikernel: %v\n", err)
		return 1
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.Enabled = cfg.ObservabilityEnabled
	obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
	obs, err := observability.New(ctx, obsCfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "kiwikernel: observability: %v\n", err)
		return 1
	}
	defer func() { _ = obs.Shutdown(ctx) }()

	h := harness.New(harness.Limits{}, nil, harness.Directive{Name: toolID, Inputs: params}, nil, nil)
	h.SetObservability(obs)

	exec := &orchestrator.Executor{
		Resolver:      res,
		Lockfiles:     lockfile.NewFSStore(cfg.ProjectRoot + "/lockfiles"),
		LockCategory:  "tools",
		LockScope:     lockfile.ScopeProject,
		Credentials:   credentials.NewProvider("kiwikernel", credentials.NewMemoryBackend(), nil),
		HTTPClient:    http.DefaultClient,
		RetryPolicy:   execengine.DefaultRetryPolicy(),
		Harness:       h,
		Observability: obs,
	}

	result, err := exec.Execute(ctx, toolID, params)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "kiwikernel: execute %s: %v\n", toolID, err)
		return 1
	}

	if !result.Success {
		_, _ = fmt.Fprintf(stderr, "kiwikernel: execute %s: %s\n", toolID, result.Stderr)
		return 1
	}
	if len(result.Body) > 0 {
		_, _ = fmt.Fprintln(stdout, string(result.Body))
	}
	if result.Stdout != "" {
		_, _ = fmt.Fprint(stdout, result.Stdout)
	}
	return 0
}

func runKeys(cfg *config.Config, stdout, stderr io.Writer) int {
	kp, err := capability.LoadOrGenerateKeyPair(cfg.KeyDir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "kiwikernel: keys: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "public key: %x\n", []byte(kp.Public))
	return 0
}
