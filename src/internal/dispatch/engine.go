// FILE: logweave/src/internal/dispatch/engine.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"logweave/src/internal/core"
	"logweave/src/internal/diag"
	"logweave/src/internal/writer"

	"github.com/prometheus/client_golang/prometheus"
)

// Engine routes entries to every bound writer whose threshold and tag filter they meet
type Engine struct {
	routes []*route
	diag   *diag.Channel
	fields core.Fields

	// gate is held shared by producers; Shutdown takes it exclusively to wait them out
	gate       sync.RWMutex
	closed     atomic.Bool
	startTime  time.Time
	dispatched atomic.Uint64
}

// Options configures a dispatch engine
type Options struct {
	Diag *diag.Channel
	// Registerer receives the engine metrics; nil keeps them unregistered
	Registerer prometheus.Registerer
}

// New validates the bindings and starts one worker per async binding
func New(bindings []Binding, opts Options) (*Engine, error) {
	ch := opts.Diag
	if ch == nil {
		ch = diag.Discard()
	}

	seen := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		if b.Name == "" {
			return nil, errors.New("binding without name")
		}
		if b.Writer == nil {
			return nil, fmt.Errorf("binding %q has no writer", b.Name)
		}
		if seen[b.Name] {
			return nil, fmt.Errorf("duplicate binding name: %s", b.Name)
		}
		seen[b.Name] = true
	}

	m := newMetrics(opts.Registerer)
	e := &Engine{
		diag:      ch,
		startTime: time.Now(),
	}
	for _, b := range bindings {
		r := newRoute(b, ch, m)
		e.routes = append(e.routes, r)
		e.fields |= writerFields(b.Writer)
	}
	for _, r := range e.routes {
		r.start()
		ch.Debug("dispatch", "Writer bound",
			"writer", r.Name,
			"level", r.Level.String(),
			"async", r.Async,
			"backpressure", r.Backpressure.String())
	}
	return e, nil
}

func writerFields(w writer.Writer) core.Fields {
	if fr, ok := w.(writer.FieldsReporter); ok {
		return fr.Fields()
	}
	return core.FieldsAll
}

// Fields is the union of the entry values any bound writer reads
func (e *Engine) Fields() core.Fields {
	return e.fields
}

// Dispatch delivers entry to all matching writers. Writer failures never reach the
// caller; the error is ErrClosed after shutdown, or ErrQueueFull when a writer using
// the reject policy discarded the entry.
func (e *Engine) Dispatch(entry *core.LogEntry) error {
	e.gate.RLock()
	defer e.gate.RUnlock()

	if e.closed.Load() {
		return core.ErrClosed
	}
	e.dispatched.Add(1)

	var result error
	for _, r := range e.routes {
		if !r.accepts(entry.Level(), entry.Tag()) || !r.Filter.Apply(entry) {
			continue
		}
		if !r.Limiter.Allow() {
			r.drop(1, reasonRateLimit)
			continue
		}
		if err := r.deliver(entry); err != nil && result == nil {
			result = err
		}
	}
	return result
}

// MinimumLevel is the lowest level any writer accepts for tag, or LevelOff
func (e *Engine) MinimumLevel(tag string) core.Level {
	lowest := core.LevelOff
	for _, r := range e.routes {
		if r.Level < lowest && r.acceptsTag(tag) {
			lowest = r.Level
		}
	}
	return lowest
}

// Enabled reports whether an entry of level and tag would reach any writer
func (e *Engine) Enabled(level core.Level, tag string) bool {
	if e.closed.Load() {
		return false
	}
	return e.MinimumLevel(tag).Enabled(level)
}

// Shutdown stops intake, lets every async worker drain its queue and closes all
// writers. When ctx ends first the remaining entries are discarded, reported, and
// the returned error wraps ctx.Err(). Later calls return nil.
func (e *Engine) Shutdown(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.diag.Info("dispatch", "Shutting down dispatch engine", "writers", len(e.routes))

	// Wait for producers already inside Dispatch
	admitted := make(chan struct{})
	go func() {
		e.gate.Lock()
		e.gate.Unlock()
		close(admitted)
	}()
	select {
	case <-admitted:
	case <-ctx.Done():
	}

	var wg sync.WaitGroup
	for _, r := range e.routes {
		wg.Add(1)
		go func(r *route) {
			defer wg.Done()
			r.finish(ctx)
		}(r)
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		var discarded uint64
		for _, r := range e.routes {
			n := r.discarded.Load()
			if n > 0 {
				e.diag.ReportDropped(r.Name, n, "shutdown timeout")
			}
			discarded += n
		}
		if discarded > 0 {
			return fmt.Errorf("shutdown discarded %d entries: %w", discarded, ctx.Err())
		}
		e.diag.Info("dispatch", "Dispatch engine shutdown complete")
		return nil

	case <-ctx.Done():
		var discarded uint64
		for _, r := range e.routes {
			n := r.lost()
			if n > 0 {
				e.diag.ReportDropped(r.Name, n, "shutdown timeout")
			}
			discarded += n
		}
		e.diag.Warn("dispatch", "Dispatch engine shutdown timed out",
			"discarded", discarded)
		return fmt.Errorf("shutdown discarded %d entries: %w", discarded, ctx.Err())
	}
}

// Stats returns engine and per-writer counters
func (e *Engine) Stats() map[string]any {
	writers := make(map[string]any, len(e.routes))
	for _, r := range e.routes {
		writers[r.Name] = r.stats()
	}
	return map[string]any{
		"uptime_seconds":     int64(time.Since(e.startTime).Seconds()),
		"entries_dispatched": e.dispatched.Load(),
		"closed":             e.closed.Load(),
		"writers":            writers,
	}
}
