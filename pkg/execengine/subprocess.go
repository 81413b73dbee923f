package execengine

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// SubprocessConfig is the parsed shape of a subprocess primitive's merged
// config. Timeout follows the spec's three-way boundary: Timeout == 0
// fails immediately without spawning, Timeout > 0 bounds the run, and a
// negative Timeout means unbounded (no deadline at all).
type SubprocessConfig struct {
	Command string
	Args    []string
	Cwd     string
	Env     map[string]string
	Stdin   string
	Timeout time.Duration
}

// DispatchSubprocess spawns cfg.Command with the merged args/cwd/env/
// stdin. On timeout it kills the process and returns a failed result
// whose Stderr names the timeout, per the spec's exact wording. A
// Timeout of exactly zero fails immediately without spawning the process
// at all, per spec §8's boundary case.
func DispatchSubprocess(ctx context.Context, cfg SubprocessConfig) (*ExecutionResult, error) {
	if cfg.Timeout == 0 {
		return &ExecutionResult{
			Success: false,
			Stderr:  "timed out after 0s",
		}, nil
	}

	started := time.Now()

	runCtx := ctx
	var cancel context.CancelFunc
	if cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Cwd
	cmd.Env = MergedProcessEnv(cfg.Env)
	if cfg.Stdin != "" {
		cmd.Stdin = bytes.NewBufferString(cfg.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(started)

	if runCtx.Err() == context.DeadlineExceeded {
		return &ExecutionResult{
			Success:    false,
			DurationMS: duration.Milliseconds(),
			Stderr:     fmt.Sprintf("timed out after %s", cfg.Timeout),
		}, nil
	}

	return &ExecutionResult{
		Success:    err == nil,
		DurationMS: duration.Milliseconds(),
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
	}, nil
}
