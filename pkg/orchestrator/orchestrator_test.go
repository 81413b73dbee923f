package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leolilley/kiwi-kernel/pkg/execengine"
	"github.com/leolilley/kiwi-kernel/pkg/lockfile"
	"github.com/leolilley/kiwi-kernel/pkg/resolver"
)

// writeTool writes a minimal frontmatter tool file under root/toolID.tool.
func writeTool(t *testing.T, root, toolID, yaml string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(root, 0o755))
	content := "---\n" + yaml + "\n---\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, toolID+".tool"), []byte(content), 0o644))
}

func newTestResolver(t *testing.T, root string) *resolver.Resolver {
	t.Helper()
	return resolver.New(resolver.NewFSTier(root, resolver.SourceLocal))
}

// TestExecuteStreamsToFileSinkAndReturnsEvents reproduces the spec's S3
// scenario: a thread tool's merged stream.destinations fans SSE events
// out to both a file_sink and the implicit return sink.
func TestExecuteStreamsToFileSinkAndReturnsEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, n := range []int{1, 2, 3} {
			_, _ = fmt.Fprintf(w, "data: {\"n\":%d}\n\n", n)
			flusher.Flush()
		}
	}))
	defer srv.Close()

	root := t.TempDir()
	transcriptPath := filepath.Join(t.TempDir(), "threads", "T1", "transcript.jsonl")

	writeTool(t, root, "http_client", fmt.Sprintf(`
tool_id: http_client
tool_type: primitive
version: "1.0.0"
config:
  method: GET
  url: %q
  mode: stream
`, srv.URL))

	writeTool(t, root, "anthropic_thread", fmt.Sprintf(`
tool_id: anthropic_thread
tool_type: composite
version: "1.0.0"
executor_id: http_client
config:
  stream:
    destinations:
      - type: file_sink
        path: %q
      - type: return
`, transcriptPath))

	exec := &Executor{
		Resolver:     newTestResolver(t, root),
		Lockfiles:    lockfile.NewFSStore(t.TempDir()),
		LockCategory: "tools",
		LockScope:    lockfile.ScopeProject,
		HTTPClient:   srv.Client(),
		RetryPolicy:  execengine.DefaultRetryPolicy(),
		Now:          func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}

	result, err := exec.Execute(context.Background(), "anthropic_thread", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Events, 3)
	assert.Equal(t, `{"n":1}`, string(result.Events[0].Data))
	assert.Equal(t, `{"n":2}`, string(result.Events[1].Data))
	assert.Equal(t, `{"n":3}`, string(result.Events[2].Data))

	content, err := os.ReadFile(transcriptPath)
	require.NoError(t, err)
	assert.Equal(t, "{\"n\":1}\n{\"n\":2}\n{\"n\":3}\n", string(content))
}

// TestExecuteAbortsOnLockfileDriftBeforeDispatch reproduces the spec's S2
// scenario: once a lockfile is frozen, mutating the resolved chain's
// content must abort execution before any primitive dispatch happens.
func TestExecuteAbortsOnLockfileDriftBeforeDispatch(t *testing.T) {
	dispatched := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dispatched = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	root := t.TempDir()
	writeTool(t, root, "http_client", fmt.Sprintf(`
tool_id: http_client
tool_type: primitive
version: "1.0.0"
config:
  method: GET
  url: %q
`, srv.URL))

	lockDir := t.TempDir()
	store := lockfile.NewFSStore(lockDir)

	exec := &Executor{
		Resolver:     newTestResolver(t, root),
		Lockfiles:    store,
		LockCategory: "tools",
		LockScope:    lockfile.ScopeProject,
		HTTPClient:   srv.Client(),
		RetryPolicy:  execengine.DefaultRetryPolicy(),
		Now:          func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}

	_, err := exec.Execute(context.Background(), "http_client", nil)
	require.NoError(t, err)
	require.True(t, dispatched, "first execution should freeze a lockfile and dispatch normally")

	dispatched = false
	writeTool(t, root, "http_client", fmt.Sprintf(`
tool_id: http_client
tool_type: primitive
version: "1.0.0"
config:
  method: POST
  url: %q
`, srv.URL))

	_, err = exec.Execute(context.Background(), "http_client", nil)
	require.Error(t, err)
	var pipelineErr *PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, "lockfile", pipelineErr.Stage)
	assert.False(t, dispatched, "drifted chain must abort before any dispatch")
}
