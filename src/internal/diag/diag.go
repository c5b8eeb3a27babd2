// FILE: logweave/src/internal/diag/diag.go
package diag

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// Kind classifies self-failures reported by the engine
type Kind string

const (
	KindWriterFailure Kind = "writer_failure"
	KindRotation      Kind = "rotation"
	KindDropped       Kind = "dropped"
	KindConfiguration Kind = "configuration"
)

const (
	// Per (kind, writer) report budget; reports beyond it are counted but not logged
	reportInterval = time.Second
	reportBurst    = 5
)

// Channel is the internal always-on reporting sink of the engine. It never carries user
// log entries, only the engine's own misconfiguration, drop and failure reports.
type Channel struct {
	logger *log.Logger

	mu       sync.Mutex
	limiters map[string]*reportLimiter
	counts   sync.Map // Kind -> *atomic.Uint64
}

type reportLimiter struct {
	limiter    *rate.Limiter
	suppressed uint64
}

// New wraps an application logger. A nil logger is replaced by a silent one.
func New(logger *log.Logger) *Channel {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Channel{
		logger:   logger,
		limiters: make(map[string]*reportLimiter),
	}
}

// Discard returns a channel that only counts reports
func Discard() *Channel {
	return New(nil)
}

// Logger exposes the underlying logger
func (c *Channel) Logger() *log.Logger {
	return c.logger
}

func (c *Channel) Debug(component, msg string, kv ...any) {
	c.logger.Debug(c.args(component, msg, kv)...)
}

func (c *Channel) Info(component, msg string, kv ...any) {
	c.logger.Info(c.args(component, msg, kv)...)
}

func (c *Channel) Warn(component, msg string, kv ...any) {
	c.logger.Warn(c.args(component, msg, kv)...)
}

func (c *Channel) Error(component, msg string, kv ...any) {
	c.logger.Error(c.args(component, msg, kv)...)
}

func (c *Channel) args(component, msg string, kv []any) []any {
	out := make([]any, 0, 4+len(kv))
	out = append(out, "msg", msg, "component", component)
	return append(out, kv...)
}

// ReportFailure records a failure of the given kind for a writer. Bursts of identical
// reports are thinned; the number of suppressed reports rides on the next one logged.
func (c *Channel) ReportFailure(kind Kind, writer string, err error) {
	c.counter(kind).Add(1)

	allowed, suppressed := c.allow(kind, writer)
	if !allowed {
		return
	}

	kv := []any{"kind", string(kind), "writer", writer, "error", err}
	if suppressed > 0 {
		kv = append(kv, "suppressed", suppressed)
	}
	c.Error("diag", "Writer failure", kv...)
}

// ReportDropped records n entries that were accepted but never written
func (c *Channel) ReportDropped(writer string, n uint64, reason string) {
	if n == 0 {
		return
	}
	c.counter(KindDropped).Add(n)

	allowed, suppressed := c.allow(KindDropped, writer)
	if !allowed {
		return
	}

	kv := []any{"writer", writer, "dropped", n, "reason", reason}
	if suppressed > 0 {
		kv = append(kv, "suppressed", suppressed)
	}
	c.Warn("diag", "Log entries dropped", kv...)
}

// ReportConfiguration records a misconfiguration that did not stop startup
func (c *Channel) ReportConfiguration(component string, err error) {
	c.counter(KindConfiguration).Add(1)
	c.Warn(component, "Configuration problem", "error", err)
}

// Count returns the number of reports (or dropped entries for KindDropped) of a kind
func (c *Channel) Count(kind Kind) uint64 {
	return c.counter(kind).Load()
}

// Stats returns all report counters keyed by kind
func (c *Channel) Stats() map[string]any {
	stats := make(map[string]any)
	c.counts.Range(func(k, v any) bool {
		stats[string(k.(Kind))] = v.(*atomic.Uint64).Load()
		return true
	})
	return stats
}

// DumpProperties logs a resolved property set in key order at debug level
func (c *Channel) DumpProperties(component string, props map[string]string) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		kv = append(kv, k, props[k])
	}
	c.Debug(component, fmt.Sprintf("Resolved configuration (%d properties)", len(keys)), kv...)
}

func (c *Channel) counter(kind Kind) *atomic.Uint64 {
	if v, ok := c.counts.Load(kind); ok {
		return v.(*atomic.Uint64)
	}
	v, _ := c.counts.LoadOrStore(kind, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

func (c *Channel) allow(kind Kind, writer string) (bool, uint64) {
	key := string(kind) + "|" + writer

	c.mu.Lock()
	defer c.mu.Unlock()

	rl, ok := c.limiters[key]
	if !ok {
		rl = &reportLimiter{limiter: rate.NewLimiter(rate.Every(reportInterval), reportBurst)}
		c.limiters[key] = rl
	}

	if !rl.limiter.Allow() {
		rl.suppressed++
		return false, 0
	}

	suppressed := rl.suppressed
	rl.suppressed = 0
	return true, suppressed
}
