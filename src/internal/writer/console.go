// FILE: logweave/src/internal/writer/console.go
package writer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"logweave/src/internal/core"
	"logweave/src/internal/format"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Console writes rendered entries to stdout, stderr, or both split by level
type Console struct {
	pattern *format.Pattern
	stream  string
	stdout  *consoleStream
	stderr  *consoleStream

	totalProcessed atomic.Uint64
}

type consoleStream struct {
	out    io.Writer
	styles map[core.Level]lipgloss.Style
}

// NewConsole creates a console writer.
// Keys: stream (stdout, stderr, split: WARN and above to stderr), colors (auto, true, false).
func NewConsole(ctx *Context) (Writer, error) {
	pattern, err := ctx.MessagePattern()
	if err != nil {
		return nil, err
	}

	stream := strings.ToLower(ctx.String("stream", "stdout"))
	switch stream {
	case "stdout", "stderr", "split":
	default:
		return nil, ctx.ConfigError("stream", fmt.Errorf("must be stdout, stderr or split, got %q", stream))
	}

	colors := strings.ToLower(ctx.String("colors", "auto"))
	switch colors {
	case "auto", "true", "false":
	default:
		return nil, ctx.ConfigError("colors", fmt.Errorf("must be auto, true or false, got %q", colors))
	}

	return &Console{
		pattern: pattern,
		stream:  stream,
		stdout:  newConsoleStream(ctx.Stdout, colors),
		stderr:  newConsoleStream(ctx.Stderr, colors),
	}, nil
}

func newConsoleStream(out io.Writer, colors string) *consoleStream {
	s := &consoleStream{out: out}

	enabled := colors == "true" || (colors == "auto" && isTerminal(out))
	if !enabled {
		return s
	}

	r := lipgloss.NewRenderer(out)
	if colors == "true" {
		r.SetColorProfile(termenv.ANSI256)
	}
	s.styles = map[core.Level]lipgloss.Style{
		core.LevelTrace: r.NewStyle().Faint(true),
		core.LevelDebug: r.NewStyle().Foreground(lipgloss.Color("63")),
		core.LevelWarn:  r.NewStyle().Foreground(lipgloss.Color("192")),
		core.LevelError: r.NewStyle().Bold(true).Foreground(lipgloss.Color("204")),
	}
	return s
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *Console) Log(e *core.LogEntry) error {
	c.totalProcessed.Add(1)

	target := c.stdout
	switch c.stream {
	case "stderr":
		target = c.stderr
	case "split":
		if e.Level() >= core.LevelWarn {
			target = c.stderr
		}
	}

	line := c.pattern.Render(e)
	if style, ok := target.styles[e.Level()]; ok {
		line = style.Render(line)
	}

	_, err := io.WriteString(target.out, line+"\n")
	return err
}

func (c *Console) Fields() core.Fields { return c.pattern.Fields() }

func (c *Console) Close() error { return nil }

func (c *Console) Stats() map[string]any {
	return map[string]any{
		"type":            "console",
		"stream":          c.stream,
		"total_processed": c.totalProcessed.Load(),
	}
}
