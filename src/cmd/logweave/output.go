// FILE: logweave/src/cmd/logweave/output.go
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// notices carries the command's own messages. They always go to stderr because
// stdout belongs to the console writer's log stream.
type notices struct {
	mu    sync.Mutex
	w     io.Writer
	quiet bool
	exit  func(code int)
}

var cli = newNotices(os.Stderr, false)

func newNotices(w io.Writer, quiet bool) *notices {
	return &notices{w: w, quiet: quiet, exit: os.Exit}
}

// Printf writes an informational message unless quiet
func (n *notices) Printf(format string, args ...any) {
	if n.quiet {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, format, args...)
}

// Fatal writes the message regardless of quiet and exits with code
func (n *notices) Fatal(code int, format string, args ...any) {
	n.mu.Lock()
	fmt.Fprintf(n.w, "logweave: "+format, args...)
	n.mu.Unlock()
	n.exit(code)
}

// Summary reports forwarded lines and any per-writer losses from engine stats
func (n *notices) Summary(lines uint64, stats map[string]any) {
	if n.quiet {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	fmt.Fprintf(n.w, "logweave: forwarded %d lines\n", lines)

	writers, _ := stats["writers"].(map[string]any)
	names := make([]string, 0, len(writers))
	for name := range writers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ws, _ := writers[name].(map[string]any)
		dropped, _ := ws["entries_dropped"].(uint64)
		failed, _ := ws["entries_failed"].(uint64)
		if dropped == 0 && failed == 0 {
			continue
		}
		fmt.Fprintf(n.w, "logweave: writer %s dropped %d, failed %d\n", name, dropped, failed)
	}
}
