package validator

import "regexp"

var placeholderRE = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// collectPlaceholders walks a config tree (maps, slices, and scalars) and
// returns the set of parameter names referenced via "{name}" placeholders
// anywhere within it.
func collectPlaceholders(config map[string]interface{}) map[string]bool {
	found := make(map[string]bool)
	var walk func(v interface{})
	walk = func(v interface{}) {
		switch val := v.(type) {
		case string:
			for _, m := range placeholderRE.FindAllStringSubmatch(val, -1) {
				found[m[1]] = true
			}
		case map[string]interface{}:
			for _, sub := range val {
				walk(sub)
			}
		case []interface{}:
			for _, sub := range val {
				walk(sub)
			}
		}
	}
	walk(config)
	return found
}
