// FILE: logweave/src/internal/format/placeholders.go
package format

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"logweave/src/internal/core"
)

// Builtins returns builders for all placeholders shipped with the engine
func Builtins() []Builder {
	return []Builder{
		BuilderFunc("date", buildDate),
		BuilderFunc("uptime", buildUptime),
		simple("level", core.FieldsNone, func(sb *strings.Builder, e *core.LogEntry) {
			sb.WriteString(e.Level().String())
		}),
		simple("severity-code", core.FieldsNone, func(sb *strings.Builder, e *core.LogEntry) {
			sb.WriteString(e.Level().Code())
		}),
		simple("class", core.FieldCaller, func(sb *strings.Builder, e *core.LogEntry) {
			sb.WriteString(e.Caller().Class)
		}),
		simple("class-name", core.FieldCaller, func(sb *strings.Builder, e *core.LogEntry) {
			sb.WriteString(e.Caller().ClassName())
		}),
		simple("package", core.FieldCaller, func(sb *strings.Builder, e *core.LogEntry) {
			sb.WriteString(e.Caller().Package())
		}),
		simple("method", core.FieldCaller, func(sb *strings.Builder, e *core.LogEntry) {
			sb.WriteString(e.Caller().Method)
		}),
		simple("file", core.FieldCaller, func(sb *strings.Builder, e *core.LogEntry) {
			if f := e.Caller().File; f != "" {
				sb.WriteString(filepath.Base(f))
			}
		}),
		simple("line", core.FieldCaller, func(sb *strings.Builder, e *core.LogEntry) {
			if line := e.Caller().Line; line > 0 {
				sb.WriteString(strconv.Itoa(line))
			}
		}),
		BuilderFunc("tag", buildTag),
		simple("message", core.FieldsNone, renderMessage),
		simple("message-only", core.FieldsNone, func(sb *strings.Builder, e *core.LogEntry) {
			sb.WriteString(e.FormattedMessage())
		}),
		simple("exception", core.FieldsNone, func(sb *strings.Builder, e *core.LogEntry) {
			if err := e.Err(); err != nil {
				sb.WriteString(err.Error())
			}
		}),
		simple("thread", core.FieldThread, func(sb *strings.Builder, e *core.LogEntry) {
			sb.WriteString(e.Thread())
		}),
		BuilderFunc("context", buildContext),
		simple("pid", core.FieldsNone, func(sb *strings.Builder, _ *core.LogEntry) {
			sb.WriteString(pid)
		}),
	}
}

var pid = strconv.Itoa(os.Getpid())

// BuilderFunc adapts a function to the Builder interface
func BuilderFunc(name string, build func(Params) (Placeholder, error)) Builder {
	return &funcBuilder{name: name, build: build}
}

type funcBuilder struct {
	name  string
	build func(Params) (Placeholder, error)
}

func (b *funcBuilder) Name() string                        { return b.name }
func (b *funcBuilder) Build(p Params) (Placeholder, error) { return b.build(p) }

// RenderFunc is a placeholder backed by a plain function
type RenderFunc struct {
	Needs core.Fields
	Fn    func(sb *strings.Builder, e *core.LogEntry)
}

func (r RenderFunc) Render(sb *strings.Builder, e *core.LogEntry) { r.Fn(sb, e) }
func (r RenderFunc) Fields() core.Fields                          { return r.Needs }

// simple builds a placeholder that takes no parameter
func simple(name string, fields core.Fields, fn func(*strings.Builder, *core.LogEntry)) Builder {
	ph := RenderFunc{Needs: fields, Fn: fn}
	return BuilderFunc(name, func(p Params) (Placeholder, error) {
		if p.IsSet() {
			return nil, fmt.Errorf("{%s} does not accept parameters, got %q", name, p.Raw())
		}
		return ph, nil
	})
}

func renderMessage(sb *strings.Builder, e *core.LogEntry) {
	msg := e.FormattedMessage()
	sb.WriteString(msg)
	if err := e.Err(); err != nil {
		if msg != "" {
			sb.WriteString(": ")
		}
		sb.WriteString(err.Error())
	}
}

func buildDate(p Params) (Placeholder, error) {
	pattern := DefaultDateLayout
	if p.IsSet() && p.Raw() != "" {
		pattern = p.Raw()
	}
	layout, err := CompileDateLayout(pattern)
	if err != nil {
		return nil, err
	}
	return RenderFunc{Fn: func(sb *strings.Builder, e *core.LogEntry) {
		var buf [64]byte
		sb.Write(layout.AppendFormat(buf[:0], e.Time()))
	}}, nil
}

// buildUptime renders the time since process start as HH:mm:ss, or in a single unit
// when the parameter is "s", "ms" or "ns"
func buildUptime(p Params) (Placeholder, error) {
	unit := p.Raw()
	switch unit {
	case "":
		return RenderFunc{Fn: func(sb *strings.Builder, e *core.LogEntry) {
			d := e.Uptime()
			h := int64(d / time.Hour)
			m := int64(d/time.Minute) % 60
			s := int64(d/time.Second) % 60
			fmt.Fprintf(sb, "%02d:%02d:%02d", h, m, s)
		}}, nil
	case "s", "ms", "ns":
		div := map[string]time.Duration{"s": time.Second, "ms": time.Millisecond, "ns": time.Nanosecond}[unit]
		return RenderFunc{Fn: func(sb *strings.Builder, e *core.LogEntry) {
			sb.WriteString(strconv.FormatInt(int64(e.Uptime()/div), 10))
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported uptime unit %q", unit)
	}
}

// buildTag renders the logger tag, or the parameter when the entry has no tag
func buildTag(p Params) (Placeholder, error) {
	def := p.Raw()
	return RenderFunc{Fn: func(sb *strings.Builder, e *core.LogEntry) {
		if tag := e.Tag(); tag != "" {
			sb.WriteString(tag)
			return
		}
		sb.WriteString(def)
	}}, nil
}

// buildContext renders one diagnostic context value: {context:key} or {context:key,default}
func buildContext(p Params) (Placeholder, error) {
	key, def, _ := strings.Cut(p.Raw(), ",")
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("{context} requires a key")
	}
	def = strings.TrimSpace(def)

	return RenderFunc{Needs: core.FieldContext, Fn: func(sb *strings.Builder, e *core.LogEntry) {
		if v, ok := e.ContextValue(key); ok {
			sb.WriteString(v)
			return
		}
		sb.WriteString(def)
	}}, nil
}
