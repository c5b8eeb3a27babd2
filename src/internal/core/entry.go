// FILE: logweave/src/internal/core/entry.go
package core

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

var processStart = time.Now()

// Fields is a bitmask of entry values that are expensive to capture.
// Compiled patterns declare the fields they read so the engine can skip the rest.
type Fields uint8

const (
	FieldCaller Fields = 1 << iota
	FieldThread
	FieldContext

	FieldsNone Fields = 0
	FieldsAll         = FieldCaller | FieldThread | FieldContext
)

// Has reports whether all bits of o are set in f
func (f Fields) Has(o Fields) bool {
	return f&o == o
}

// LogEntry is a single log event. It is never mutated after creation and can be
// shared across goroutines without synchronization.
type LogEntry struct {
	time    time.Time
	thread  string
	caller  *callerRef
	tag     string
	level   Level
	message string
	args    []any
	err     error
	context map[string]string
}

// Time returns the wall clock timestamp with its monotonic reading
func (e *LogEntry) Time() time.Time { return e.time }

// Uptime returns the monotonic time elapsed between process start and the entry
func (e *LogEntry) Uptime() time.Duration { return e.time.Sub(processStart) }

// Thread returns the identifier of the emitting goroutine, empty if not captured
func (e *LogEntry) Thread() string { return e.thread }

// Caller resolves the call site on first use
func (e *LogEntry) Caller() Caller {
	if e.caller == nil {
		return Caller{}
	}
	return e.caller.resolve()
}

// Tag returns the logger tag; empty means no tag was set
func (e *LogEntry) Tag() string { return e.tag }

func (e *LogEntry) Level() Level { return e.level }

// Message returns the raw message with unsubstituted argument markers
func (e *LogEntry) Message() string { return e.message }

// Args returns a copy of the structured arguments
func (e *LogEntry) Args() []any {
	if len(e.args) == 0 {
		return nil
	}
	out := make([]any, len(e.args))
	copy(out, e.args)
	return out
}

func (e *LogEntry) Err() error { return e.err }

// Context returns a copy of the diagnostic context snapshot
func (e *LogEntry) Context() map[string]string {
	return maps.Clone(e.context)
}

// ContextValue reads one key of the diagnostic context snapshot
func (e *LogEntry) ContextValue(key string) (string, bool) {
	v, ok := e.context[key]
	return v, ok
}

// FormattedMessage substitutes each {} marker of the message with the next argument
func (e *LogEntry) FormattedMessage() string {
	return FormatMessage(e.message, e.args)
}

// FormatMessage replaces {} markers in msg with args in order. Surplus arguments are
// ignored, markers without an argument are kept verbatim.
func FormatMessage(msg string, args []any) string {
	if len(args) == 0 || !strings.Contains(msg, "{}") {
		return msg
	}

	var sb strings.Builder
	sb.Grow(len(msg) + 16*len(args))
	next := 0
	for {
		i := strings.Index(msg, "{}")
		if i < 0 || next >= len(args) {
			sb.WriteString(msg)
			break
		}
		sb.WriteString(msg[:i])
		sb.WriteString(fmt.Sprint(args[next]))
		next++
		msg = msg[i+2:]
	}
	return sb.String()
}

// EntryBuilder assembles a LogEntry. The zero value builds an INFO entry stamped at Create time.
type EntryBuilder struct {
	entry LogEntry
}

func NewEntryBuilder() *EntryBuilder {
	return &EntryBuilder{entry: LogEntry{level: LevelInfo}}
}

func (b *EntryBuilder) Time(t time.Time) *EntryBuilder {
	b.entry.time = t
	return b
}

func (b *EntryBuilder) Thread(id string) *EntryBuilder {
	b.entry.thread = id
	return b
}

func (b *EntryBuilder) Tag(tag string) *EntryBuilder {
	b.entry.tag = tag
	return b
}

func (b *EntryBuilder) Level(l Level) *EntryBuilder {
	b.entry.level = l
	return b
}

func (b *EntryBuilder) Message(msg string, args ...any) *EntryBuilder {
	b.entry.message = msg
	b.entry.args = append([]any(nil), args...)
	return b
}

func (b *EntryBuilder) Err(err error) *EntryBuilder {
	b.entry.err = err
	return b
}

// Context snapshots the map, later changes to m are not visible through the entry
func (b *EntryBuilder) Context(m map[string]string) *EntryBuilder {
	if len(m) > 0 {
		b.entry.context = maps.Clone(m)
	}
	return b
}

// Caller sets an already resolved call site
func (b *EntryBuilder) Caller(c Caller) *EntryBuilder {
	b.entry.caller = resolvedCaller(c)
	return b
}

// ClassName sets the call site class, leaving method, file and line empty
func (b *EntryBuilder) ClassName(class string) *EntryBuilder {
	return b.Caller(Caller{Class: class})
}

// CaptureCaller records the program counters of the caller skip frames above this call;
// symbol resolution is deferred until a placeholder reads the caller.
func (b *EntryBuilder) CaptureCaller(skip int) *EntryBuilder {
	b.entry.caller = captureCaller(skip + 1)
	return b
}

// Create returns the immutable entry. The builder must not be reused afterwards.
func (b *EntryBuilder) Create() *LogEntry {
	e := b.entry
	if e.time.IsZero() {
		e.time = time.Now()
	}
	return &e
}
