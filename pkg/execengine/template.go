package execengine

import (
	"fmt"
	"regexp"
)

var wholeStringPlaceholderRE = regexp.MustCompile(`^\{([a-zA-Z_][a-zA-Z0-9_]*)\}$`)
var embeddedPlaceholderRE = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// UnresolvedPlaceholderError reports a "{param}" in the merged config with
// no matching runtime parameter.
type UnresolvedPlaceholderError struct {
	Name string
}

func (e *UnresolvedPlaceholderError) Error() string {
	return fmt.Sprintf("execengine: unresolved placeholder {%s}", e.Name)
}

// SubstituteParams walks config recursively, replacing "{param}"
// placeholders with matching entries from params. A placeholder that is
// the whole string value preserves the parameter's original type (e.g. an
// int stays an int); an embedded placeholder renders via string
// formatting. Any placeholder with no matching parameter fails fast.
func SubstituteParams(config map[string]interface{}, params map[string]interface{}) (map[string]interface{}, error) {
	out, err := substituteValue(config, params)
	if err != nil {
		return nil, err
	}
	return out.(map[string]interface{}), nil
}

func substituteValue(v interface{}, params map[string]interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return substituteString(val, params)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, sub := range val {
			resolved, err := substituteValue(sub, params)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, sub := range val {
			resolved, err := substituteValue(sub, params)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func substituteString(s string, params map[string]interface{}) (interface{}, error) {
	if m := wholeStringPlaceholderRE.FindStringSubmatch(s); m != nil {
		val, ok := params[m[1]]
		if !ok {
			return nil, &UnresolvedPlaceholderError{Name: m[1]}
		}
		return val, nil
	}

	var firstErr error
	result := embeddedPlaceholderRE.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		name := embeddedPlaceholderRE.FindStringSubmatch(match)[1]
		val, ok := params[name]
		if !ok {
			firstErr = &UnresolvedPlaceholderError{Name: name}
			return match
		}
		return fmt.Sprintf("%v", val)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}
