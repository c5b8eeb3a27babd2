// FILE: logweave/src/internal/dispatch/binding.go
package dispatch

import (
	"fmt"
	"strings"

	"logweave/src/internal/core"
	"logweave/src/internal/filter"
	"logweave/src/internal/ratelimit"
	"logweave/src/internal/writer"
)

// DefaultQueueSize is the capacity of async queues without an explicit size
const DefaultQueueSize = 1024

// Backpressure selects what a producer does when an async queue is full
type Backpressure int

const (
	// BackpressureBlock waits until the worker frees capacity
	BackpressureBlock Backpressure = iota
	// BackpressureDropOldest evicts the oldest queued entry
	BackpressureDropOldest
	// BackpressureReject discards the new entry
	BackpressureReject
)

func (b Backpressure) String() string {
	switch b {
	case BackpressureBlock:
		return "block"
	case BackpressureDropOldest:
		return "drop-oldest"
	case BackpressureReject:
		return "reject"
	default:
		return fmt.Sprintf("backpressure(%d)", int(b))
	}
}

// ParseBackpressure accepts block, drop-oldest and reject. Empty means block.
func ParseBackpressure(s string) (Backpressure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "block":
		return BackpressureBlock, nil
	case "drop-oldest", "drop_oldest":
		return BackpressureDropOldest, nil
	case "reject":
		return BackpressureReject, nil
	default:
		return 0, fmt.Errorf("unknown backpressure policy: %s", s)
	}
}

// UntaggedFilter in Binding.Tags selects entries without a tag
const UntaggedFilter = "-"

// Binding attaches a writer to the engine
type Binding struct {
	// Name identifies the writer in diagnostics and stats
	Name   string
	Writer writer.Writer
	// Level is the minimum severity delivered to the writer
	Level core.Level
	// Tags restricts delivery to entries with one of these tags; empty accepts all
	Tags []string
	// Filter drops entries by message content; nil passes everything
	Filter *filter.Chain
	// Limiter drops entries beyond a sustained rate; nil disables it
	Limiter *ratelimit.Limiter

	Async        bool
	QueueSize    int
	Backpressure Backpressure
}

func (b *Binding) accepts(level core.Level, tag string) bool {
	return b.Level.Enabled(level) && b.acceptsTag(tag)
}

// acceptsTag reports whether the tag filter alone lets tag through
func (b *Binding) acceptsTag(tag string) bool {
	if len(b.Tags) == 0 {
		return true
	}
	for _, t := range b.Tags {
		if t == tag || (t == UntaggedFilter && tag == "") {
			return true
		}
	}
	return false
}
