// FILE: logweave/src/internal/format/json.go
package format

import (
	"encoding/json"
	"fmt"
	"time"

	"logweave/src/internal/core"
)

// JSONOptions names the fields of encoded entries
type JSONOptions struct {
	TimestampField string
	LevelField     string
	TagField       string
	MessageField   string
	ErrorField     string
	ContextField   string
	Pretty         bool
}

// DefaultJSONOptions returns the field names used by network writers
func DefaultJSONOptions() JSONOptions {
	return JSONOptions{
		TimestampField: "time",
		LevelField:     "level",
		TagField:       "tag",
		MessageField:   "message",
		ErrorField:     "error",
		ContextField:   "context",
	}
}

// JSONEncoder produces one structured JSON object per log entry. An optional pattern
// replaces the plain formatted message.
type JSONEncoder struct {
	opts    JSONOptions
	message *Pattern
}

// NewJSONEncoder creates an encoder; message may be nil
func NewJSONEncoder(opts JSONOptions, message *Pattern) *JSONEncoder {
	return &JSONEncoder{opts: opts, message: message}
}

// Fields reports what the encoder reads from entries
func (f *JSONEncoder) Fields() core.Fields {
	fields := core.FieldContext
	if f.message != nil {
		fields |= f.message.Fields()
	}
	return fields
}

func (f *JSONEncoder) object(e *core.LogEntry) map[string]any {
	output := make(map[string]any, 6)

	output[f.opts.TimestampField] = e.Time().Format(time.RFC3339Nano)
	output[f.opts.LevelField] = e.Level().String()
	if tag := e.Tag(); tag != "" {
		output[f.opts.TagField] = tag
	}

	if f.message != nil {
		output[f.opts.MessageField] = f.message.Render(e)
	} else {
		output[f.opts.MessageField] = e.FormattedMessage()
	}

	if err := e.Err(); err != nil {
		output[f.opts.ErrorField] = err.Error()
	}
	if ctx := e.Context(); len(ctx) > 0 {
		output[f.opts.ContextField] = ctx
	}
	return output
}

// Encode transforms a single entry into a newline terminated JSON object
func (f *JSONEncoder) Encode(e *core.LogEntry) ([]byte, error) {
	var result []byte
	var err error
	if f.opts.Pretty {
		result, err = json.MarshalIndent(f.object(e), "", "  ")
	} else {
		result, err = json.Marshal(f.object(e))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return append(result, '\n'), nil
}

// EncodeBatch transforms entries into a single JSON array
func (f *JSONEncoder) EncodeBatch(entries []*core.LogEntry) ([]byte, error) {
	batch := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		batch = append(batch, f.object(e))
	}

	var result []byte
	var err error
	if f.opts.Pretty {
		result, err = json.MarshalIndent(batch, "", "  ")
	} else {
		result, err = json.Marshal(batch)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON batch: %w", err)
	}
	return result, nil
}
