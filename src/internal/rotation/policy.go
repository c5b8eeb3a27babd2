// FILE: logweave/src/internal/rotation/policy.go
package rotation

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"logweave/src/internal/core"
)

// FileMeta describes the file a writer currently appends to
type FileMeta struct {
	Path     string
	Size     int64
	OpenedAt time.Time
	// Created is false when the file already existed and was opened for appending
	Created bool
}

// Policy decides whether the current file must be rolled over before e is written.
// Policies of one file are evaluated by a single goroutine at a time.
type Policy interface {
	ShouldRotate(e *core.LogEntry, meta FileMeta) bool

	// Rotated is called with the metadata of the new file after a successful rotation
	Rotated(meta FileMeta)
}

// Policies rotates when any member triggers
type Policies []Policy

func (ps Policies) ShouldRotate(e *core.LogEntry, meta FileMeta) bool {
	triggered := false
	for _, p := range ps {
		// Every policy sees every write so stateful ones stay consistent
		if p.ShouldRotate(e, meta) {
			triggered = true
		}
	}
	return triggered
}

func (ps Policies) Rotated(meta FileMeta) {
	for _, p := range ps {
		p.Rotated(meta)
	}
}

// SizePolicy triggers once the file holds at least Max bytes
type SizePolicy struct {
	Max int64
}

func (p *SizePolicy) ShouldRotate(_ *core.LogEntry, meta FileMeta) bool {
	return meta.Size > 0 && meta.Size >= p.Max
}

func (p *SizePolicy) Rotated(FileMeta) {}

func (p *SizePolicy) String() string { return fmt.Sprintf("size: %d", p.Max) }

// DailyPolicy triggers when an entry is stamped at or after the first HH:mm boundary
// following the time the current file was opened
type DailyPolicy struct {
	Hour, Minute int
	Location     *time.Location
}

// NextBoundary returns the first rotation time strictly after t
func (p *DailyPolicy) NextBoundary(t time.Time) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	next := time.Date(t.Year(), t.Month(), t.Day(), p.Hour, p.Minute, 0, 0, loc)
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (p *DailyPolicy) ShouldRotate(e *core.LogEntry, meta FileMeta) bool {
	return !e.Time().Before(p.NextBoundary(meta.OpenedAt))
}

func (p *DailyPolicy) Rotated(FileMeta) {}

func (p *DailyPolicy) String() string { return fmt.Sprintf("daily: %02d:%02d", p.Hour, p.Minute) }

// StartupPolicy starts a fresh file once per process when the initial file already had content
type StartupPolicy struct {
	evaluated atomic.Bool
}

func (p *StartupPolicy) ShouldRotate(_ *core.LogEntry, meta FileMeta) bool {
	if p.evaluated.Swap(true) {
		return false
	}
	return !meta.Created && meta.Size > 0
}

func (p *StartupPolicy) Rotated(FileMeta) { p.evaluated.Store(true) }

func (p *StartupPolicy) String() string { return "startup" }

// ParsePolicies reads a comma separated policy list such as "size: 10MB, daily: 03:00, startup"
func ParsePolicies(spec string) (Policies, error) {
	var out Policies
	for _, item := range strings.Split(spec, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name, arg, _ := strings.Cut(item, ":")
		name = strings.ToLower(strings.TrimSpace(name))
		arg = strings.TrimSpace(arg)

		switch name {
		case "size":
			n, err := ParseSize(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid size policy %q: %w", item, err)
			}
			if n <= 0 {
				return nil, fmt.Errorf("invalid size policy %q: size must be positive", item)
			}
			out = append(out, &SizePolicy{Max: n})
		case "daily":
			p := &DailyPolicy{}
			if arg != "" {
				t, err := time.Parse("15:04", arg)
				if err != nil {
					return nil, fmt.Errorf("invalid daily policy %q: expected HH:mm", item)
				}
				p.Hour, p.Minute = t.Hour(), t.Minute()
			}
			out = append(out, p)
		case "startup":
			if arg != "" {
				return nil, fmt.Errorf("startup policy takes no argument, got %q", arg)
			}
			out = append(out, &StartupPolicy{})
		default:
			return nil, fmt.Errorf("unknown rotation policy: %s", name)
		}
	}
	return out, nil
}

// ParseSize reads byte counts with an optional binary unit: 512, 64KB, 10 MB, 1GB
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if i == 0 || s == "" {
		return 0, fmt.Errorf("invalid size: %q", s)
	}
	num, unit := s, ""
	if i > 0 {
		num, unit = s[:i], strings.ToUpper(strings.TrimSpace(s[i:]))
	}

	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %q", s)
	}

	switch unit {
	case "", "B":
		return n, nil
	case "KB", "K":
		return n << 10, nil
	case "MB", "M":
		return n << 20, nil
	case "GB", "G":
		return n << 30, nil
	default:
		return 0, fmt.Errorf("invalid size unit %q in %q", unit, s)
	}
}
