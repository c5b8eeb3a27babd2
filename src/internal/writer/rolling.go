// FILE: logweave/src/internal/writer/rolling.go
package writer

import (
	"logweave/src/internal/core"
	"logweave/src/internal/format"
	"logweave/src/internal/rotation"
)

// DefaultLogFile is the label template of rolling files without a file key
const DefaultLogFile = "logweave.log"

// RollingFile writes to a file managed by the rotation engine
type RollingFile struct {
	pattern *format.Pattern
	file    *rotation.File
}

// NewRollingFile creates a rolling file writer.
// Keys: file (label template), policies, append, buffered.
func NewRollingFile(ctx *Context) (Writer, error) {
	pattern, err := ctx.MessagePattern()
	if err != nil {
		return nil, err
	}

	labels, err := rotation.NewLabelGenerator(ctx.String("file", DefaultLogFile))
	if err != nil {
		return nil, ctx.ConfigError("file", err)
	}

	policies, err := rotation.ParsePolicies(ctx.String("policies", ""))
	if err != nil {
		return nil, ctx.ConfigError("policies", err)
	}

	appendMode, err := ctx.Bool("append", false)
	if err != nil {
		return nil, err
	}
	buffered, err := ctx.Bool("buffered", false)
	if err != nil {
		return nil, err
	}

	file, err := rotation.OpenFile(rotation.Options{
		Labels:   labels,
		Policies: policies,
		Append:   appendMode,
		Buffered: buffered,
	})
	if err != nil {
		return nil, ctx.ConfigError("file", err)
	}

	ctx.Diag.Debug("rolling_file", "Rolling file opened",
		"writer", ctx.Name,
		"path", file.Meta().Path,
		"policies", len(policies))

	return &RollingFile{pattern: pattern, file: file}, nil
}

// Log renders e and writes it, rotating first when a policy triggers
func (w *RollingFile) Log(e *core.LogEntry) error {
	return w.file.Write(e, renderLine(w.pattern, e))
}

func (w *RollingFile) Flush() error { return w.file.Flush() }

func (w *RollingFile) Close() error { return w.file.Close() }

func (w *RollingFile) Fields() core.Fields { return w.pattern.Fields() }

// File exposes the rotation state
func (w *RollingFile) File() *rotation.File { return w.file }

func (w *RollingFile) Stats() map[string]any {
	meta := w.file.Meta()
	return map[string]any{
		"type":      "rolling-file",
		"path":      meta.Path,
		"size":      meta.Size,
		"rotations": w.file.Rotations(),
		"state":     w.file.State().String(),
	}
}
