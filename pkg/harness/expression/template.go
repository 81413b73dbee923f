package expression

import "regexp"

var templateRE = regexp.MustCompile(`^\$\{([a-zA-Z_][a-zA-Z0-9_.]*)\}$`)

// SubstituteTemplates recursively walks obj (a string, []interface{},
// map[string]interface{}, or scalar) replacing whole-string "${dotted.path}"
// occurrences with their resolved value from ctx. A path that fails to
// resolve leaves the template literal untouched rather than erroring, since
// hook payload construction must not fail a directive over a cosmetic
// template miss. Non-string scalars pass through unchanged.
func SubstituteTemplates(obj interface{}, ctx Context) interface{} {
	switch v := obj.(type) {
	case string:
		m := templateRE.FindStringSubmatch(v)
		if m == nil {
			return v
		}
		segments := splitPath(m[1])
		resolved := resolvePath(segments, ctx)
		if resolved == nil {
			return v
		}
		return resolved
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = SubstituteTemplates(val, ctx)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = SubstituteTemplates(val, ctx)
		}
		return out
	default:
		return v
	}
}

func splitPath(s string) []string {
	var segments []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			segments = append(segments, s[start:i])
			start = i + 1
		}
	}
	segments = append(segments, s[start:])
	return segments
}
