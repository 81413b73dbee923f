package execengine

import (
	"os"
	"regexp"
)

var envVarRE = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// maxPreResolvedEnvSize is the threshold past which a supplied env map is
// assumed already resolved and used as-is, rather than re-expanded. A
// large dict is far more likely to be machine-generated output that
// happens to contain literal "${...}" sequences than a small set of
// hand-written placeholders.
const maxPreResolvedEnvSize = 50

// ResolveEnv expands "${VAR}" and "${VAR:-default}" references in every
// value of overlay against a merged environment: the process environment
// overlaid with overlay itself (so one overlay entry may reference
// another). If overlay is large, it is assumed pre-resolved and returned
// unchanged.
func ResolveEnv(overlay map[string]string) map[string]string {
	if len(overlay) > maxPreResolvedEnvSize {
		return overlay
	}

	merged := make(map[string]string, len(overlay))
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				merged[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	for k, v := range overlay {
		merged[k] = v
	}

	resolved := make(map[string]string, len(overlay))
	for k, v := range overlay {
		resolved[k] = expandEnvString(v, merged)
	}
	return resolved
}

// MergedProcessEnv returns the full "KEY=VALUE" environment a spawned
// subprocess should see: the current process environment overlaid with
// overlay's resolved values (resolved against that same merged
// environment, so overlay entries can reference each other or inherited
// vars via "${VAR}"/"${VAR:-default}").
func MergedProcessEnv(overlay map[string]string) []string {
	resolved := ResolveEnv(overlay)

	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				merged[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	for k, v := range resolved {
		merged[k] = v
	}

	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out
}

func expandEnvString(s string, merged map[string]string) string {
	return envVarRE.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarRE.FindStringSubmatch(match)
		name, hasDefault, def := groups[1], groups[2] != "", groups[3]
		if v, ok := merged[name]; ok {
			return v
		}
		if hasDefault {
			return def
		}
		return ""
	})
}
