package registry

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/leolilley/kiwi-kernel/pkg/execengine"
)

// TranscriptLine is one append-only transcript record. Every line carries
// at least ts and type; Fields holds the type-specific payload
// (user_message, assistant_message, tool_call, turn_start, turn_end,
// injected_message, error).
type TranscriptLine struct {
	Ts     time.Time
	Type   string
	Fields map[string]interface{}
}

// Transcript is the per-thread append-only JSONL writer at
// .ai/threads/{thread_id}/transcript.jsonl, backed by the same FileSink the
// primitive executor uses for stream destinations.
type Transcript struct {
	sink *execengine.FileSink
}

// OpenTranscript opens (creating parent directories as needed) the
// transcript file for threadID under root, flushing to disk every
// flushEvery lines.
func OpenTranscript(root, threadID string, flushEvery int) (*Transcript, error) {
	path := filepath.Join(root, "threads", threadID, "transcript.jsonl")
	sink, err := execengine.NewFileSink(path, flushEvery)
	if err != nil {
		return nil, fmt.Errorf("registry: open transcript: %w", err)
	}
	return &Transcript{sink: sink}, nil
}

// Append writes one transcript line.
func (t *Transcript) Append(line TranscriptLine) error {
	record := map[string]interface{}{"ts": line.Ts.UTC().Format(time.RFC3339Nano), "type": line.Type}
	for k, v := range line.Fields {
		record[k] = v
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("registry: marshal transcript line: %w", err)
	}
	return t.sink.Write(execengine.StreamEvent{Data: data})
}

// Close flushes and closes the underlying file.
func (t *Transcript) Close() error {
	return t.sink.Close()
}
