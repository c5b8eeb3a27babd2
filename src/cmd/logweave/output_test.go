// FILE: logweave/src/cmd/logweave/output_test.go
package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotices_Summary(t *testing.T) {
	stats := map[string]any{
		"writers": map[string]any{
			"file":    map[string]any{"entries_dropped": uint64(0), "entries_failed": uint64(0)},
			"network": map[string]any{"entries_dropped": uint64(3), "entries_failed": uint64(1)},
			"console": map[string]any{"entries_dropped": uint64(2), "entries_failed": uint64(0)},
		},
	}

	var buf bytes.Buffer
	newNotices(&buf, false).Summary(42, stats)
	assert.Equal(t,
		"logweave: forwarded 42 lines\n"+
			"logweave: writer console dropped 2, failed 0\n"+
			"logweave: writer network dropped 3, failed 1\n",
		buf.String())

	buf.Reset()
	newNotices(&buf, true).Summary(42, stats)
	assert.Empty(t, buf.String())
}

func TestNotices_QuietStillReportsFatal(t *testing.T) {
	var buf bytes.Buffer
	n := newNotices(&buf, true)
	code := -1
	n.exit = func(c int) { code = c }

	n.Printf("Settings written to %s\n", "out.toml")
	assert.Empty(t, buf.String())

	n.Fatal(2, "failed to load settings: %v\n", "bad key")
	assert.Equal(t, 2, code)
	assert.Equal(t, "logweave: failed to load settings: bad key\n", buf.String())
}
