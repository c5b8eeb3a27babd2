// FILE: logweave/src/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"logweave/src/internal/config"
	"logweave/src/internal/core"
	"logweave/src/internal/diag"
	"logweave/src/internal/dispatch"
	"logweave/src/internal/filter"
	"logweave/src/internal/plugin"
	"logweave/src/internal/ratelimit"
	"logweave/src/internal/writer"
)

// Level is the severity of an entry
type Level = core.Level

const (
	LevelTrace = core.LevelTrace
	LevelDebug = core.LevelDebug
	LevelInfo  = core.LevelInfo
	LevelWarn  = core.LevelWarn
	LevelError = core.LevelError
	LevelOff   = core.LevelOff
)

// Global property keys
const (
	KeyLevel         = "level"
	KeyWritingThread = "writingthread"
	KeyAsync         = "async"
	KeyAutoShutdown  = "autoshutdown"
	KeyWriter        = "writer"

	// DefaultWriter is used when no writer key is configured
	DefaultWriter = "console"
)

// callerSkip is the number of frames between the user's call and CaptureCaller
const callerSkip = 2

var writerKey = regexp.MustCompile(`^writer[A-Za-z0-9_-]*$`)

// Engine is the embeddable logger. It is safe for concurrent use.
type Engine struct {
	dispatch     *dispatch.Engine
	diag         *diag.Channel
	now          func() time.Time
	fields       core.Fields
	autoShutdown bool
	writers      []string
}

// New freezes store, discovers plugin modules and creates every configured writer.
// The store cannot be changed afterwards.
func New(store *config.Store, opts ...Option) (*Engine, error) {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if o.diag == nil {
		o.diag = diag.Discard()
	}

	store.Freeze()

	set, err := plugin.Discover(o.modules...)
	if err != nil {
		return nil, fmt.Errorf("plugin discovery failed: %w", err)
	}

	globalLevel := core.LevelTrace
	if v, ok := store.Value(KeyLevel); ok {
		if globalLevel, err = core.ParseLevel(v); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", KeyLevel, err)
		}
	}

	globalAsync, err := boolProperty(store, KeyWritingThread, false)
	if err != nil {
		return nil, err
	}
	if globalAsync, err = boolProperty(store, KeyAsync, globalAsync); err != nil {
		return nil, err
	}
	autoShutdown, err := boolProperty(store, KeyAutoShutdown, true)
	if err != nil {
		return nil, err
	}

	names := writerNames(store)
	bindings := make([]dispatch.Binding, 0, len(names))
	closeAll := func() {
		for _, b := range bindings {
			_ = b.Writer.Close()
		}
	}

	for _, name := range names {
		typ := DefaultWriter
		props := map[string]string{}
		if name != "" {
			typ, _ = store.Value(name)
			props = store.Subset(name)
		} else {
			name = KeyWriter
		}

		ctx := &writer.Context{
			Name:         name,
			Properties:   props,
			Placeholders: set.Placeholders,
			Diag:         o.diag,
			Stdout:       o.stdout,
			Stderr:       o.stderr,
		}
		binding, err := newBinding(set.Writers, typ, ctx, globalLevel, globalAsync)
		if err != nil {
			closeAll()
			return nil, err
		}
		bindings = append(bindings, binding)
	}

	d, err := dispatch.New(bindings, dispatch.Options{Diag: o.diag, Registerer: o.registry})
	if err != nil {
		closeAll()
		return nil, err
	}

	e := &Engine{
		dispatch:     d,
		diag:         o.diag,
		now:          o.now,
		fields:       d.Fields(),
		autoShutdown: autoShutdown,
	}
	for _, b := range bindings {
		e.writers = append(e.writers, b.Name)
	}
	o.diag.Info("engine", "Logging engine started",
		"writers", len(bindings),
		"modules", set.Modules)
	return e, nil
}

// writerNames returns the sorted writer definition keys. A lone empty name stands
// for the default writer.
func writerNames(store *config.Store) []string {
	var names []string
	for _, k := range store.Keys() {
		if writerKey.MatchString(k) {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return []string{""}
	}
	sort.Strings(names)
	return names
}

func newBinding(reg *writer.Registry, typ string, ctx *writer.Context, level core.Level, async bool) (dispatch.Binding, error) {
	b := dispatch.Binding{Name: ctx.Name, Level: level}
	if typ == "" {
		return b, &core.WriterConfigurationError{Writer: ctx.Name, Err: errors.New("missing writer type")}
	}

	cfgErr := func(key string, err error) error {
		return &core.WriterConfigurationError{Writer: typ, Key: key, Err: err}
	}

	if v, ok := ctx.Properties[writer.KeyLevel]; ok {
		l, err := core.ParseLevel(v)
		if err != nil {
			return b, cfgErr(writer.KeyLevel, err)
		}
		b.Level = l
	}
	b.Tags = config.SplitList(ctx.Properties[writer.KeyTag])

	var err error
	if v, ok := ctx.Properties[writer.KeyAsync]; ok {
		if async, err = strconv.ParseBool(v); err != nil {
			return b, cfgErr(writer.KeyAsync, fmt.Errorf("not a boolean: %q", v))
		}
	}
	b.Async = async

	if v, ok := ctx.Properties[writer.KeyQueueSize]; ok {
		if b.QueueSize, err = strconv.Atoi(v); err != nil || b.QueueSize < 1 {
			return b, cfgErr(writer.KeyQueueSize, fmt.Errorf("must be a positive integer: %q", v))
		}
	}
	if b.Backpressure, err = dispatch.ParseBackpressure(ctx.Properties[writer.KeyBackpressure]); err != nil {
		return b, cfgErr(writer.KeyBackpressure, err)
	}

	var filters []filter.Config
	for _, kf := range []struct {
		key string
		typ filter.Type
	}{{writer.KeyInclude, filter.TypeInclude}, {writer.KeyExclude, filter.TypeExclude}} {
		v := ctx.Properties[kf.key]
		if v == "" {
			continue
		}
		cfg := filter.Config{Type: kf.typ, Pattern: v}
		if _, err := filter.New(cfg); err != nil {
			return b, cfgErr(kf.key, err)
		}
		filters = append(filters, cfg)
	}
	if b.Filter, err = filter.NewChain(filters); err != nil {
		return b, err
	}

	var limit ratelimit.Config
	for key, dst := range map[string]*float64{writer.KeyRateLimit: &limit.Rate, writer.KeyRateBurst: &limit.Burst} {
		if v, ok := ctx.Properties[key]; ok {
			if *dst, err = strconv.ParseFloat(v, 64); err != nil || *dst < 0 {
				return b, cfgErr(key, fmt.Errorf("must be a non-negative number: %q", v))
			}
		}
	}
	if b.Limiter, err = ratelimit.New(limit); err != nil {
		return b, cfgErr(writer.KeyRateLimit, err)
	}

	if b.Writer, err = reg.Create(typ, ctx); err != nil {
		return b, err
	}
	return b, nil
}

func boolProperty(store *config.Store, key string, def bool) (bool, error) {
	v, ok := store.Value(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: not a boolean: %q", key, v)
	}
	return b, nil
}

// Log emits an entry. Arguments replace {} markers in msg in order. Writer
// failures are reported to the diagnostic channel, never to the caller.
func (e *Engine) Log(ctx context.Context, level Level, tag, msg string, args ...any) {
	e.log(ctx, level, tag, nil, msg, args)
}

// LogErr emits an entry carrying err
func (e *Engine) LogErr(ctx context.Context, level Level, tag string, err error, msg string, args ...any) {
	e.log(ctx, level, tag, err, msg, args)
}

func (e *Engine) log(ctx context.Context, level Level, tag string, err error, msg string, args []any) {
	if !e.dispatch.Enabled(level, tag) {
		return
	}

	b := core.NewEntryBuilder().
		Time(e.now()).
		Level(level).
		Tag(tag).
		Message(msg, args...).
		Err(err)
	if e.fields.Has(core.FieldCaller) {
		b.CaptureCaller(callerSkip)
	}
	if e.fields.Has(core.FieldThread) {
		b.Thread(core.GoroutineID())
	}
	if e.fields.Has(core.FieldContext) {
		b.Context(core.ContextMap(ctx))
	}

	_ = e.dispatch.Dispatch(b.Create())
}

// Enabled reports whether any writer would accept an entry of level and tag
func (e *Engine) Enabled(level Level, tag string) bool {
	return e.dispatch.Enabled(level, tag)
}

// AutoShutdown reports whether the host should shut the engine down on exit
func (e *Engine) AutoShutdown() bool {
	return e.autoShutdown
}

// Writers returns the configured writer names
func (e *Engine) Writers() []string {
	return append([]string(nil), e.writers...)
}

// Shutdown drains async writers and closes all writers. Entries still queued when
// ctx ends are discarded and reported; the error then wraps ctx.Err().
func (e *Engine) Shutdown(ctx context.Context) error {
	return e.dispatch.Shutdown(ctx)
}

// Stats returns dispatch counters and the diagnostic report counts
func (e *Engine) Stats() map[string]any {
	stats := e.dispatch.Stats()
	stats["diagnostics"] = e.diag.Stats()
	return stats
}

// WithContext returns a child context carrying key=value for the {context} placeholder
func WithContext(ctx context.Context, key, value string) context.Context {
	return core.WithContext(ctx, key, value)
}

// WithoutContext returns a child context without key
func WithoutContext(ctx context.Context, key string) context.Context {
	return core.WithoutContext(ctx, key)
}
