// FILE: logweave/src/internal/filter/chain.go
package filter

import (
	"fmt"
	"sync/atomic"

	"logweave/src/internal/core"
)

// Chain applies filters in order; an entry must pass all of them
type Chain struct {
	filters []*Filter

	totalProcessed atomic.Uint64
	totalPassed    atomic.Uint64
}

// NewChain compiles every config. No configs yields a nil chain, which passes everything.
func NewChain(configs []Config) (*Chain, error) {
	if len(configs) == 0 {
		return nil, nil
	}

	chain := &Chain{filters: make([]*Filter, 0, len(configs))}
	for i, cfg := range configs {
		f, err := New(cfg)
		if err != nil {
			return nil, fmt.Errorf("filter[%d]: %w", i, err)
		}
		chain.filters = append(chain.filters, f)
	}
	return chain, nil
}

// Apply runs e through all filters
func (c *Chain) Apply(e *core.LogEntry) bool {
	if c == nil {
		return true
	}
	c.totalProcessed.Add(1)

	for _, f := range c.filters {
		if !f.Apply(e) {
			return false
		}
	}

	c.totalPassed.Add(1)
	return true
}

// Stats returns aggregated statistics for the chain
func (c *Chain) Stats() map[string]any {
	if c == nil {
		return nil
	}
	filterStats := make([]map[string]any, len(c.filters))
	for i, f := range c.filters {
		filterStats[i] = f.Stats()
	}

	return map[string]any{
		"filter_count":    len(c.filters),
		"total_processed": c.totalProcessed.Load(),
		"total_passed":    c.totalPassed.Load(),
		"filters":         filterStats,
	}
}
