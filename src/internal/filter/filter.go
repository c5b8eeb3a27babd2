// FILE: logweave/src/internal/filter/filter.go
package filter

import (
	"fmt"
	"regexp"
	"sync/atomic"

	"logweave/src/internal/core"
)

// Type selects whether matching entries are kept or dropped
type Type string

const (
	TypeInclude Type = "include"
	TypeExclude Type = "exclude"
)

// Config describes one regex filter
type Config struct {
	Type    Type
	Pattern string
}

// Filter applies a regex to the level, tag and formatted message of an entry
type Filter struct {
	config  Config
	pattern *regexp.Regexp

	totalProcessed atomic.Uint64
	totalMatched   atomic.Uint64
	totalDropped   atomic.Uint64
}

// New compiles a filter. An empty type means include.
func New(cfg Config) (*Filter, error) {
	switch cfg.Type {
	case "":
		cfg.Type = TypeInclude
	case TypeInclude, TypeExclude:
	default:
		return nil, fmt.Errorf("unknown filter type: %s", cfg.Type)
	}

	re, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern '%s': %w", cfg.Pattern, err)
	}
	return &Filter{config: cfg, pattern: re}, nil
}

// Apply reports whether e passes the filter
func (f *Filter) Apply(e *core.LogEntry) bool {
	f.totalProcessed.Add(1)

	text := e.Level().String() + " " + e.FormattedMessage()
	if tag := e.Tag(); tag != "" {
		text = tag + " " + text
	}

	matched := f.pattern.MatchString(text)
	if matched {
		f.totalMatched.Add(1)
	}

	pass := matched
	if f.config.Type == TypeExclude {
		pass = !matched
	}
	if !pass {
		f.totalDropped.Add(1)
	}
	return pass
}

func (f *Filter) Stats() map[string]any {
	return map[string]any{
		"type":            string(f.config.Type),
		"pattern":         f.config.Pattern,
		"total_processed": f.totalProcessed.Load(),
		"total_matched":   f.totalMatched.Load(),
		"total_dropped":   f.totalDropped.Load(),
	}
}
