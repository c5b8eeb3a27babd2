// FILE: logweave/src/engine/options.go
package engine

import (
	"io"
	"time"

	"logweave/src/internal/diag"
	"logweave/src/internal/plugin"

	"github.com/prometheus/client_golang/prometheus"
)

// Option customizes an Engine
type Option func(*options)

type options struct {
	diag     *diag.Channel
	modules  []plugin.Module
	registry prometheus.Registerer
	now      func() time.Time
	stdout   io.Writer
	stderr   io.Writer
}

// WithDiag routes the engine's own failure reports to ch
func WithDiag(ch *diag.Channel) Option {
	return func(o *options) { o.diag = ch }
}

// WithModules adds plugin modules on top of the registered ones
func WithModules(mods ...plugin.Module) Option {
	return func(o *options) { o.modules = append(o.modules, mods...) }
}

// WithMetrics registers dispatch metrics with reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// WithClock replaces the entry timestamp source
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithOutput replaces the process streams used by console writers
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}
