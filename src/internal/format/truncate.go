// FILE: logweave/src/internal/format/truncate.go
package format

import (
	"strings"
	"unicode/utf8"

	"logweave/src/internal/core"
)

const (
	// DefaultTagMaxLength bounds rendered tags for destinations with short tag fields
	DefaultTagMaxLength = 23

	ellipsis = "..."
)

// Truncate limits the output of p to max characters. Longer values are cut to max-3
// characters followed by an ellipsis.
func Truncate(p Placeholder, max int) Placeholder {
	if max < len(ellipsis) {
		max = len(ellipsis)
	}
	return &truncating{inner: p, max: max}
}

type truncating struct {
	inner Placeholder
	max   int
}

func (t *truncating) Render(sb *strings.Builder, e *core.LogEntry) {
	var buf strings.Builder
	t.inner.Render(&buf, e)
	sb.WriteString(TruncateString(buf.String(), t.max))
}

func (t *truncating) Fields() core.Fields { return t.inner.Fields() }

// TruncateString applies the truncation rule to s, counting characters rather than bytes
func TruncateString(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	keep := max - len(ellipsis)
	n := 0
	for i := range s {
		if n == keep {
			return s[:i] + ellipsis
		}
		n++
	}
	return s
}
