package execengine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leolilley/kiwi-kernel/pkg/credentials"
	"github.com/leolilley/kiwi-kernel/pkg/manifest"
	"github.com/leolilley/kiwi-kernel/pkg/resolver"
)

func TestMergeConfigOverridesScalarsAndExtendsStreamDestinations(t *testing.T) {
	chain := resolver.Chain{
		{Manifest: &manifest.ToolManifest{
			ToolID: "anthropic_thread",
			Config: map[string]interface{}{
				"stream": map[string]interface{}{
					"destinations": []interface{}{"file_sink"},
				},
			},
		}},
		{Manifest: &manifest.ToolManifest{
			ToolID: "anthropic_messages",
			Config: map[string]interface{}{
				"url": "https://api.anthropic.com",
				"stream": map[string]interface{}{
					"destinations": []interface{}{"return_sink"},
				},
			},
		}},
		{Manifest: &manifest.ToolManifest{
			ToolID: "http_client",
			Config: map[string]interface{}{
				"method": "POST",
			},
		}},
	}

	merged := MergeConfig(chain)
	assert.Equal(t, "POST", merged["method"])
	assert.Equal(t, "https://api.anthropic.com", merged["url"])
	destinations := merged["stream"].(map[string]interface{})["destinations"].([]interface{})
	assert.Equal(t, []interface{}{"file_sink", "return_sink"}, destinations)
}

func TestSubstituteParamsWholeStringPreservesType(t *testing.T) {
	config := map[string]interface{}{"timeout": "{timeout}", "url": "https://x/{id}"}
	params := map[string]interface{}{"timeout": 30, "id": "abc"}
	out, err := SubstituteParams(config, params)
	require.NoError(t, err)
	assert.Equal(t, 30, out["timeout"])
	assert.Equal(t, "https://x/abc", out["url"])
}

func TestSubstituteParamsFailsFastOnUnresolved(t *testing.T) {
	config := map[string]interface{}{"url": "https://x/{missing}"}
	_, err := SubstituteParams(config, map[string]interface{}{})
	require.Error(t, err)
	var uerr *UnresolvedPlaceholderError
	require.ErrorAs(t, err, &uerr)
}

func TestResolveEnvExpandsVarAndDefault(t *testing.T) {
	t.Setenv("KIWI_TEST_VAR", "present")
	out := ResolveEnv(map[string]string{
		"a": "${KIWI_TEST_VAR}",
		"b": "${KIWI_MISSING_VAR:-fallback}",
	})
	assert.Equal(t, "present", out["a"])
	assert.Equal(t, "fallback", out["b"])
}

func TestResolveEnvSkipsExpansionWhenLarge(t *testing.T) {
	overlay := make(map[string]string, 60)
	for i := 0; i < 60; i++ {
		overlay[string(rune('a'+i%26))+string(rune(i))] = "${UNRESOLVED}"
	}
	out := ResolveEnv(overlay)
	for _, v := range out {
		assert.Equal(t, "${UNRESOLVED}", v)
	}
}

func TestInjectAuthAddsBearerToken(t *testing.T) {
	provider := credentials.NewProvider("kiwi", credentials.NewMemoryBackend(), nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, provider.SetToken("anthropic", credentials.Token{
		AccessToken: "tok-123",
		ExpiresAt:   now.Add(time.Hour),
		Scopes:      []string{"messages:write"},
	}))

	chain := resolver.Chain{
		{Manifest: &manifest.ToolManifest{ToolID: "anthropic_messages", RequiredScope: "messages:write"}},
		{Manifest: &manifest.ToolManifest{ToolID: "http_client"}},
	}

	out, err := InjectAuth(chain, map[string]interface{}{}, provider, now)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", out["auth"].(map[string]interface{})["bearer_token"])
}

func TestInjectAuthFailsWithoutCredential(t *testing.T) {
	provider := credentials.NewProvider("kiwi", credentials.NewMemoryBackend(), nil)
	chain := resolver.Chain{
		{Manifest: &manifest.ToolManifest{ToolID: "anthropic_messages", RequiredScope: "messages:write"}},
	}
	_, err := InjectAuth(chain, map[string]interface{}{}, provider, time.Now())
	require.Error(t, err)
	var eerr *ExecutionError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, ErrAuthRequired, eerr.Kind)
}

func TestReturnSinkIsRingBuffer(t *testing.T) {
	sink := NewReturnSink(2)
	require.NoError(t, sink.Write(StreamEvent{Data: []byte(`{"n":1}`)}))
	require.NoError(t, sink.Write(StreamEvent{Data: []byte(`{"n":2}`)}))
	require.NoError(t, sink.Write(StreamEvent{Data: []byte(`{"n":3}`)}))
	events := sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, `{"n":2}`, string(events[0].Data))
	assert.Equal(t, `{"n":3}`, string(events[1].Data))
}

func TestFileSinkAppendsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads", "t1", "transcript.jsonl")
	sink, err := NewFileSink(path, 1)
	require.NoError(t, err)
	require.NoError(t, sink.Write(StreamEvent{Data: []byte(`{"a":1}`)}))
	require.NoError(t, sink.Write(StreamEvent{Data: []byte(`{"a":2}`)}))
	require.NoError(t, sink.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"a\":2}\n", string(content))
}

func TestSSEParserEmitsOnBlankLine(t *testing.T) {
	p := &SSEParser{}
	_, ok := p.Feed("data: {\"chunk\":1}")
	assert.False(t, ok)
	event, ok := p.Feed("")
	require.True(t, ok)
	assert.Equal(t, `{"chunk":1}`, string(event.Data))
}

func TestSSEParserIgnoresMetadataLines(t *testing.T) {
	p := &SSEParser{}
	_, ok := p.Feed("event: ping")
	assert.False(t, ok)
	_, ok = p.Feed("data: {\"x\":1}")
	assert.False(t, ok)
	event, ok := p.Feed("")
	require.True(t, ok)
	assert.Equal(t, `{"x":1}`, string(event.Data))
}

func TestDispatchHTTPSyncMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	policy := DefaultRetryPolicy()
	result, err := DispatchHTTP(context.Background(), srv.Client(), HTTPConfig{Method: "GET", URL: srv.URL, Mode: "sync"}, nil, policy)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, `{"ok":true}`, string(result.Body))
}

func TestDispatchSubprocessTimesOut(t *testing.T) {
	result, err := DispatchSubprocess(context.Background(), SubprocessConfig{
		Command: "sleep",
		Args:    []string{"5"},
		Timeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Stderr, "timed out")
}

func TestDispatchSubprocessCapturesStdout(t *testing.T) {
	result, err := DispatchSubprocess(context.Background(), SubprocessConfig{
		Command: "echo",
		Args:    []string{"hello"},
		Timeout: time.Second,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Stdout, "hello")
}

// errAfterReader serves a fixed byte sequence and then fails every
// subsequent read, simulating a connection reset mid-stream.
type errAfterReader struct {
	data []byte
	pos  int
	err  error
}

func (r *errAfterReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, r.err
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// TestDispatchHTTPStreamToleratesMidStreamInterruption reproduces the
// spec's S3 interruption case: two SSE events arrive, then the
// connection is reset. Every sink must see exactly the two delivered
// events and be closed once; the result reports failure without losing
// what was already accumulated.
func TestDispatchHTTPStreamToleratesMidStreamInterruption(t *testing.T) {
	body := &errAfterReader{
		data: []byte("data: {\"n\":1}\n\ndata: {\"n\":2}\n\n"),
		err:  fmt.Errorf("connection reset by peer"),
	}
	resp := &http.Response{StatusCode: 200, Body: io.NopCloser(body)}

	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	fileSink, err := NewFileSink(path, 1)
	require.NoError(t, err)

	result, err := dispatchStream(resp, []Sink{fileSink}, time.Now())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Stderr, "connection reset")
	require.Len(t, result.Events, 2)
	assert.Equal(t, `{"n":1}`, string(result.Events[0].Data))
	assert.Equal(t, `{"n":2}`, string(result.Events[1].Data))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"n\":1}\n{\"n\":2}\n", string(content))
}

func TestDispatchSubprocessZeroTimeoutFailsWithoutSpawning(t *testing.T) {
	result, err := DispatchSubprocess(context.Background(), SubprocessConfig{
		Command: "echo",
		Args:    []string{"should not run"},
		Timeout: 0,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Stderr, "timed out")
	assert.Empty(t, result.Stdout)
}
