package execengine

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// SSEParser is a state machine over lines: "data: " lines accumulate
// into the one buffered event, a blank line delimits and emits it, and
// any other line is metadata and ignored.
type SSEParser struct {
	buf strings.Builder
}

// ParseSSE reads r line by line, invoking onEvent for each delimited
// event. It returns when r is exhausted or onEvent returns an error
// (propagated to the caller so a mid-stream sink failure can abort the
// read).
func ParseSSE(r io.Reader, onEvent func(StreamEvent) error) error {
	p := &SSEParser{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if event, ok := p.Feed(line); ok {
			if err := onEvent(event); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

// Feed processes a single line, returning a completed StreamEvent and
// true when a blank line closes out a buffered "data: " accumulation.
func (p *SSEParser) Feed(line string) (StreamEvent, bool) {
	switch {
	case strings.HasPrefix(line, "data: "):
		p.buf.WriteString(strings.TrimPrefix(line, "data: "))
		return StreamEvent{}, false
	case strings.HasPrefix(line, "data:"):
		p.buf.WriteString(strings.TrimPrefix(line, "data:"))
		return StreamEvent{}, false
	case line == "":
		if p.buf.Len() == 0 {
			return StreamEvent{}, false
		}
		data := p.buf.String()
		p.buf.Reset()
		return StreamEvent{Data: json.RawMessage(data)}, true
	default:
		// Metadata line (event:, id:, retry:, comments) — ignored.
		return StreamEvent{}, false
	}
}
