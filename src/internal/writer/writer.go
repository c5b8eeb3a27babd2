// FILE: logweave/src/internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"logweave/src/internal/core"
	"logweave/src/internal/diag"
	"logweave/src/internal/format"
	"logweave/src/internal/rotation"

	lconfig "github.com/lixenwraith/config"
)

// Reserved writer keys. They are interpreted by the engine or shared by all writers.
const (
	KeyMessagePattern = "message-pattern"
	KeyPatternAlias   = "pattern"
	KeyTagPattern     = "tag-pattern"
	KeyLevel          = "level"
	KeyTag            = "tag"
	KeyAsync          = "async"
	KeyQueueSize      = "queue-size"
	KeyBackpressure   = "backpressure"
	KeyInclude        = "include"
	KeyExclude        = "exclude"
	KeyRateLimit      = "rate-limit"
	KeyRateBurst      = "rate-burst"
)

// DefaultMessagePattern renders entries of writers without a message pattern
const DefaultMessagePattern = "{date} {level} [{tag:-}] {message}"

// Writer is a destination of log entries. Log is never called concurrently for one
// writer; Close must be idempotent.
type Writer interface {
	Log(e *core.LogEntry) error
	Close() error
}

// FieldsReporter is implemented by writers that know which expensive entry values they read
type FieldsReporter interface {
	Fields() core.Fields
}

// Flusher is implemented by buffering writers
type Flusher interface {
	Flush() error
}

// StatsReporter exposes writer specific statistics
type StatsReporter interface {
	Stats() map[string]any
}

// Factory creates writers of one type
type Factory interface {
	Name() string
	Create(ctx *Context) (Writer, error)
}

// FactoryFunc adapts a function to the Factory interface
func FactoryFunc(name string, create func(ctx *Context) (Writer, error)) Factory {
	return &funcFactory{name: name, create: create}
}

type funcFactory struct {
	name   string
	create func(ctx *Context) (Writer, error)
}

func (f *funcFactory) Name() string                        { return f.name }
func (f *funcFactory) Create(ctx *Context) (Writer, error) { return f.create(ctx) }

// Builtins returns factories for all writers shipped with the engine
func Builtins() []Factory {
	return []Factory{
		FactoryFunc("console", NewConsole),
		FactoryFunc("rolling-file", NewRollingFile),
		FactoryFunc("syslog", NewSyslog),
		FactoryFunc("managed-file", NewManagedFile),
		FactoryFunc("tcp", NewTCP),
		FactoryFunc("http", NewHTTP),
	}
}

// Registry maps writer type names to factories. It is read-only after construction.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry indexes factories by name, rejecting duplicates
func NewRegistry(factories ...Factory) (*Registry, error) {
	r := &Registry{factories: make(map[string]Factory, len(factories))}
	for _, f := range factories {
		name := f.Name()
		if name == "" {
			return nil, fmt.Errorf("writer factory %T has no name", f)
		}
		if _, exists := r.factories[name]; exists {
			return nil, fmt.Errorf("duplicate writer name: %s", name)
		}
		r.factories[name] = f
	}
	return r, nil
}

// Names returns all registered writer types in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create builds a writer of type name from the key subset in ctx
func (r *Registry) Create(name string, ctx *Context) (Writer, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, &core.UnknownWriterError{Name: name}
	}

	ctx.Type = name
	ctx.applyDefaults()

	w, err := f.Create(ctx)
	if err != nil {
		var cfgErr *core.WriterConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &core.WriterConfigurationError{Writer: name, Err: err}
	}
	return w, nil
}

// Context is everything a factory may use to build a writer
type Context struct {
	// Name is the configuration key of the writer instance, e.g. "writer2"
	Name string
	// Type is the factory name, set by the registry
	Type string
	// Properties holds the instance keys without their writer prefix
	Properties map[string]string

	Placeholders *format.Registry
	Diag         *diag.Channel

	// Stdout and Stderr default to the process streams
	Stdout io.Writer
	Stderr io.Writer
}

func (c *Context) applyDefaults() {
	if c.Properties == nil {
		c.Properties = map[string]string{}
	}
	if c.Diag == nil {
		c.Diag = diag.Discard()
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
}

// ConfigError wraps err as a configuration failure of key
func (c *Context) ConfigError(key string, err error) error {
	return &core.WriterConfigurationError{Writer: c.Type, Key: key, Err: err}
}

// String returns the trimmed value of key or def
func (c *Context) String(key, def string) string {
	if v, ok := c.Properties[key]; ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return def
}

// Required returns the value of key, failing when it is unset or blank
func (c *Context) Required(key string) (string, error) {
	v := c.String(key, "")
	if err := lconfig.NonEmpty(v); err != nil {
		return "", c.ConfigError(key, fmt.Errorf("required: %w", err))
	}
	return v, nil
}

func (c *Context) Int(key string, def int) (int, error) {
	v := c.String(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, c.ConfigError(key, fmt.Errorf("not an integer: %q", v))
	}
	return n, nil
}

// Bytes reads a size with an optional KB/MB/GB unit
func (c *Context) Bytes(key string, def int64) (int64, error) {
	v := c.String(key, "")
	if v == "" {
		return def, nil
	}
	n, err := rotation.ParseSize(v)
	if err != nil {
		return 0, c.ConfigError(key, err)
	}
	return n, nil
}

// Duration reads a Go duration ("5s") or a bare number of milliseconds
func (c *Context) Duration(key string, def time.Duration) (time.Duration, error) {
	v := c.String(key, "")
	if v == "" {
		return def, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, c.ConfigError(key, fmt.Errorf("not a duration: %q", v))
	}
	return d, nil
}

func (c *Context) Bool(key string, def bool) (bool, error) {
	v := c.String(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, c.ConfigError(key, fmt.Errorf("not a boolean: %q", v))
	}
	return b, nil
}

// Pattern compiles the pattern under key, or def when unset. An unset key with an empty
// default yields nil.
func (c *Context) Pattern(key, def string) (*format.Pattern, error) {
	src := def
	if v, ok := c.Properties[key]; ok {
		src = v
	}
	if src == "" {
		return nil, nil
	}
	if c.Placeholders == nil {
		return nil, c.ConfigError(key, errors.New("no placeholder registry"))
	}
	p, err := c.Placeholders.Compile(src)
	if err != nil {
		return nil, c.ConfigError(key, err)
	}
	return p, nil
}

// MessagePattern compiles message-pattern, its alias pattern, or the default pattern
func (c *Context) MessagePattern() (*format.Pattern, error) {
	if _, ok := c.Properties[KeyMessagePattern]; ok {
		return c.Pattern(KeyMessagePattern, DefaultMessagePattern)
	}
	if _, ok := c.Properties[KeyPatternAlias]; ok {
		return c.Pattern(KeyPatternAlias, DefaultMessagePattern)
	}
	return c.Pattern(KeyMessagePattern, DefaultMessagePattern)
}

// renderLine renders e with p and terminates the line
func renderLine(p *format.Pattern, e *core.LogEntry) []byte {
	var sb strings.Builder
	p.AppendTo(&sb, e)
	sb.WriteByte('\n')
	return []byte(sb.String())
}
