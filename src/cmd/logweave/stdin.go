// FILE: logweave/src/cmd/logweave/stdin.go
package main

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync/atomic"

	"logweave/src/engine"
)

// lineEmitter is the part of the engine used by the stdin reader
type lineEmitter interface {
	Log(ctx context.Context, level engine.Level, tag, msg string, args ...any)
}

// StdinReader forwards every non-empty input line as one entry
type StdinReader struct {
	in           io.Reader
	out          lineEmitter
	tag          string
	defaultLevel engine.Level

	totalLines atomic.Uint64
}

func NewStdinReader(in io.Reader, out lineEmitter, tag string, defaultLevel engine.Level) *StdinReader {
	return &StdinReader{
		in:           in,
		out:          out,
		tag:          tag,
		defaultLevel: defaultLevel,
	}
}

// Run reads until EOF, a read error, or ctx is done
func (r *StdinReader) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		level, ok := extractLogLevel(line)
		if !ok {
			level = r.defaultLevel
		}

		r.totalLines.Add(1)
		// Lines are passed as the sole argument so {} in input stays literal
		r.out.Log(ctx, level, r.tag, "{}", line)
	}
	return scanner.Err()
}

// Lines returns the number of lines forwarded
func (r *StdinReader) Lines() uint64 {
	return r.totalLines.Load()
}

// extractLogLevel detects a level keyword in a free-form line
func extractLogLevel(line string) (engine.Level, bool) {
	patterns := []struct {
		patterns []string
		level    engine.Level
	}{
		{[]string{"[ERROR]", "ERROR:", " ERROR ", "ERR:", "[ERR]", "FATAL:", "[FATAL]"}, engine.LevelError},
		{[]string{"[WARN]", "WARN:", " WARN ", "WARNING:", "[WARNING]"}, engine.LevelWarn},
		{[]string{"[INFO]", "INFO:", " INFO ", "[INF]", "INF:"}, engine.LevelInfo},
		{[]string{"[DEBUG]", "DEBUG:", " DEBUG ", "[DBG]", "DBG:"}, engine.LevelDebug},
		{[]string{"[TRACE]", "TRACE:", " TRACE "}, engine.LevelTrace},
	}

	upperLine := strings.ToUpper(line)
	for _, group := range patterns {
		for _, pattern := range group.patterns {
			if strings.Contains(upperLine, pattern) {
				return group.level, true
			}
		}
	}
	return engine.LevelInfo, false
}
