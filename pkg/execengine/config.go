// Package execengine implements the primitive executor (spec component
// E): config merge, auth injection, template and environment
// substitution, and dispatch to the http_client/subprocess primitives.
package execengine

import (
	"github.com/leolilley/kiwi-kernel/pkg/resolver"
)

// MergeConfig walks chain from the terminal primitive back up to the
// root, overlaying each link's config onto the value accumulated from the
// links below it. Every scalar or map field the link sets overrides the
// accumulated value. The "stream.destinations" list is the exception: it
// is concatenated, with the link's own entries first and the inherited
// entries after them. This is the mechanism by which a chain link can add
// a file_sink destination while still inheriting the transport config its
// executor declares.
func MergeConfig(chain resolver.Chain) map[string]interface{} {
	if len(chain) == 0 {
		return map[string]interface{}{}
	}

	merged := cloneMap(chain[len(chain)-1].Manifest.Config)
	for i := len(chain) - 2; i >= 0; i-- {
		merged = overlay(merged, chain[i].Manifest.Config)
	}
	return merged
}

// overlay applies parent (the link being folded in) on top of child (the
// config accumulated from the links below it), per MergeConfig's rule:
// the stream.destinations list is concatenated (parent's destinations
// first, then child's, so downstream consumers see inherited sinks after
// the ones the more specific link declared); every other key at every
// level is overridden outright by parent's value when present.
func overlay(child, parent map[string]interface{}) map[string]interface{} {
	result := cloneMap(child)
	for key, parentVal := range parent {
		if key == "stream" {
			result[key] = overlayStream(asMap(result[key]), asMap(parentVal))
			continue
		}
		if childVal, ok := result[key]; ok {
			if childMap, ok1 := childVal.(map[string]interface{}); ok1 {
				if parentMap, ok2 := parentVal.(map[string]interface{}); ok2 {
					result[key] = overlay(childMap, parentMap)
					continue
				}
			}
		}
		result[key] = parentVal
	}
	return result
}

func overlayStream(childStream, parentStream map[string]interface{}) map[string]interface{} {
	result := cloneMap(childStream)
	for key, parentVal := range parentStream {
		if key == "destinations" {
			childList := asList(result["destinations"])
			parentList := asList(parentVal)
			result["destinations"] = append(append([]interface{}{}, parentList...), childList...)
			continue
		}
		result[key] = parentVal
	}
	return result
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func asList(v interface{}) []interface{} {
	if l, ok := v.([]interface{}); ok {
		return l
	}
	return nil
}
