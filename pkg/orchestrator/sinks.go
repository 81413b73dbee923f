package orchestrator

import (
	"fmt"

	"github.com/leolilley/kiwi-kernel/pkg/execengine"
)

// sinkFlushEvery is how many writes a FileSink buffers before fsync-ing,
// matching the teacher's "periodic fsync" convention rather than
// fsync-per-write.
const sinkFlushEvery = 10

// BuildSinks reads config["stream"]["destinations"] and constructs the
// additional sinks the terminal primitive's stream dispatch should fan
// out to, beyond the ReturnSink every streaming dispatch already builds
// for itself. Each destination is a map describing one sink; per the
// spec's YAML flow-map shorthand (`{file_sink, path: "..."}`,
// `{return}`), the bare discriminant key (`file_sink` or `return`) names
// the sink type. A `return` destination is a no-op here since the
// dispatcher already includes its own ReturnSink unconditionally.
func BuildSinks(config map[string]interface{}) ([]execengine.Sink, error) {
	stream, ok := config["stream"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	destinations, ok := stream["destinations"].([]interface{})
	if !ok {
		return nil, nil
	}

	var sinks []execengine.Sink
	for _, raw := range destinations {
		dest, ok := raw.(map[string]interface{})
		if !ok {
			// Bare string destinations (e.g. "return_sink") carry no
			// per-destination config and need no sink built here.
			continue
		}
		switch destinationType(dest) {
		case "return":
			continue
		case "file_sink":
			path, _ := dest["path"].(string)
			if path == "" {
				return nil, fmt.Errorf("orchestrator: file_sink destination missing path")
			}
			sink, err := execengine.NewFileSink(path, sinkFlushEvery)
			if err != nil {
				return nil, fmt.Errorf("orchestrator: building file_sink: %w", err)
			}
			sinks = append(sinks, sink)
		default:
			return nil, fmt.Errorf("orchestrator: unrecognized stream destination %v", dest)
		}
	}
	return sinks, nil
}

// destinationType reads a destination map's type discriminant, accepting
// both an explicit "type" field and the spec's bare-key shorthand.
func destinationType(dest map[string]interface{}) string {
	if t, ok := dest["type"].(string); ok {
		return t
	}
	if _, ok := dest["file_sink"]; ok {
		return "file_sink"
	}
	if _, ok := dest["return"]; ok {
		return "return"
	}
	return ""
}
