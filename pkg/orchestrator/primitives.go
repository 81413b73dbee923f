package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/leolilley/kiwi-kernel/pkg/execengine"
)

// parseHTTPConfig reads an http_client primitive's merged config into the
// typed shape execengine.DispatchHTTP expects. Mode defaults to "sync"
// when absent, matching the primitive's own default.
func parseHTTPConfig(cfg map[string]interface{}) execengine.HTTPConfig {
	out := execengine.HTTPConfig{
		Method: stringOr(cfg["method"], "GET"),
		URL:    stringOr(cfg["url"], ""),
		Mode:   stringOr(cfg["mode"], "sync"),
	}

	if headers, ok := cfg["headers"].(map[string]interface{}); ok {
		out.Headers = make(map[string]string, len(headers))
		for k, v := range headers {
			out.Headers[k] = stringOr(v, "")
		}
	}

	if auth, ok := cfg["auth"].(map[string]interface{}); ok {
		if token := stringOr(auth["bearer_token"], ""); token != "" {
			if out.Headers == nil {
				out.Headers = map[string]string{}
			}
			out.Headers["Authorization"] = "Bearer " + token
		}
	}

	switch body := cfg["body"].(type) {
	case string:
		out.Body = []byte(body)
	case nil:
	default:
		if encoded, err := json.Marshal(body); err == nil {
			out.Body = encoded
		}
	}

	return out
}

// parseSubprocessConfig reads a subprocess primitive's merged config into
// the typed shape execengine.DispatchSubprocess expects. A missing
// timeout resolves to 0, which DispatchSubprocess treats as "fail
// immediately without spawning" per spec §8 — callers that want an
// unbounded run must say so explicitly with a negative timeout.
func parseSubprocessConfig(cfg map[string]interface{}) execengine.SubprocessConfig {
	out := execengine.SubprocessConfig{
		Command: stringOr(cfg["command"], ""),
		Cwd:     stringOr(cfg["cwd"], ""),
		Stdin:   stringOr(cfg["stdin"], ""),
	}

	if args, ok := cfg["args"].([]interface{}); ok {
		out.Args = make([]string, len(args))
		for i, a := range args {
			out.Args[i] = stringOr(a, "")
		}
	}

	if env, ok := cfg["env"].(map[string]interface{}); ok {
		overlay := make(map[string]string, len(env))
		for k, v := range env {
			overlay[k] = stringOr(v, "")
		}
		out.Env = execengine.ResolveEnv(overlay)
	}

	if seconds, ok := numberOr(cfg["timeout"]); ok {
		out.Timeout = time.Duration(seconds * float64(time.Second))
	}

	return out
}

func stringOr(v interface{}, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func numberOr(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
