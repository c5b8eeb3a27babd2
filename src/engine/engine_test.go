// FILE: logweave/src/engine/engine_test.go
package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"logweave/src/internal/config"
	"logweave/src/internal/core"
	"logweave/src/internal/diag"
	"logweave/src/internal/format"
	"logweave/src/internal/plugin"
	"logweave/src/internal/writer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newStore(t *testing.T, props map[string]string) *config.Store {
	t.Helper()
	s := config.NewStore(nil)
	require.NoError(t, s.SetAll(props))
	return s
}

func newEngine(t *testing.T, props map[string]string, opts ...Option) (*Engine, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	opts = append([]Option{WithOutput(&stdout, &stderr), WithClock(func() time.Time { return fixedTime })}, opts...)
	e, err := New(newStore(t, props), opts...)
	require.NoError(t, err)
	return e, &stdout, &stderr
}

func TestNew_FreezesStore(t *testing.T) {
	s := newStore(t, map[string]string{"writer": "console"})
	e, err := New(s, WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))
	require.NoError(t, err)
	defer e.Shutdown(context.Background())

	assert.True(t, s.IsFrozen())
	assert.ErrorIs(t, s.Set("level", "INFO"), core.ErrFrozen)
}

func TestNew_DefaultConsoleWriter(t *testing.T) {
	e, stdout, _ := newEngine(t, map[string]string{})
	assert.Equal(t, []string{"writer"}, e.Writers())

	e.Log(context.Background(), LevelInfo, "", "hello {}", "world")
	require.NoError(t, e.Shutdown(context.Background()))
	assert.Equal(t, "2024-05-06 07:08:09 INFO [-] hello world\n", stdout.String())
}

func TestLog_LevelsTagsAndWriters(t *testing.T) {
	e, stdout, stderr := newEngine(t, map[string]string{
		"level":                  "debug",
		"writer":                 "console",
		"writer.message-pattern": "{level} {tag}: {message}",
		"writer.stream":          "split",
		"writerDb":               "console",
		"writerDb.pattern":       "db {message-only}",
		"writerDb.tag":           "db",
		"writerDb.level":         "warn",
		"writerDb.stream":        "stderr",
	})

	ctx := context.Background()
	e.Log(ctx, LevelTrace, "api", "dropped")
	e.Log(ctx, LevelDebug, "api", "debug line")
	e.Log(ctx, LevelInfo, "db", "info db")
	e.LogErr(ctx, LevelError, "db", errors.New("deadlock"), "query {} failed", 7)

	assert.True(t, e.Enabled(LevelDebug, "api"))
	assert.False(t, e.Enabled(LevelTrace, "api"))
	require.NoError(t, e.Shutdown(ctx))

	assert.Equal(t, "DEBUG api: debug line\nINFO db: info db\n", stdout.String())
	assert.Equal(t, "ERROR db: query 7 failed: deadlock\ndb query 7 failed\n", stderr.String())
}

func TestLog_AsyncWriterAndContext(t *testing.T) {
	e, stdout, _ := newEngine(t, map[string]string{
		"writingthread":          "true",
		"writer":                 "console",
		"writer.message-pattern": "{context:request,none} {class-name}.{method} {message}",
		"writer.queue-size":      "8",
	})

	ctx := WithContext(context.Background(), "request", "r-42")
	for i := 0; i < 20; i++ {
		e.Log(ctx, LevelInfo, "", "n={}", i)
	}
	e.Log(WithoutContext(ctx, "request"), LevelInfo, "", "last")
	require.NoError(t, e.Shutdown(context.Background()))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 21)
	assert.Equal(t, "r-42 engine.TestLog_AsyncWriterAndContext n=0", lines[0])
	assert.Equal(t, "r-42 engine.TestLog_AsyncWriterAndContext n=19", lines[19])
	assert.Equal(t, "none engine.TestLog_AsyncWriterAndContext last", lines[20])

	stats := e.Stats()
	writers := stats["writers"].(map[string]any)
	assert.Equal(t, uint64(21), writers["writer"].(map[string]any)["entries_written"])
	assert.Equal(t, true, writers["writer"].(map[string]any)["async"])
}

func TestLog_IncludeExcludeFilters(t *testing.T) {
	e, stdout, _ := newEngine(t, map[string]string{
		"writer":         "console",
		"writer.pattern": "{message}",
		"writer.include": "^http ",
		"writer.exclude": "/healthz",
	})

	ctx := context.Background()
	e.Log(ctx, LevelInfo, "http", "GET /users")
	e.Log(ctx, LevelInfo, "http", "GET /healthz")
	e.Log(ctx, LevelInfo, "db", "connected")
	require.NoError(t, e.Shutdown(ctx))

	assert.Equal(t, "GET /users\n", stdout.String())

	_, err := New(newStore(t, map[string]string{"writer": "console", "writer.exclude": "("}), WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))
	var cfgErr *core.WriterConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "exclude", cfgErr.Key)
}

func TestLog_RollingFile(t *testing.T) {
	dir := t.TempDir()
	e, _, _ := newEngine(t, map[string]string{
		"writer":          "rolling-file",
		"writer.file":     filepath.Join(dir, "app.log"),
		"writer.pattern":  "{level} {message}",
		"writer.policies": "size: 1KB",
	})

	e.Log(context.Background(), LevelWarn, "", "disk at {}%", 91)
	require.NoError(t, e.Shutdown(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Equal(t, "WARN disk at 91%\n", string(data))
}

func TestNew_ConfigurationErrors(t *testing.T) {
	testCases := []struct {
		name  string
		props map[string]string
		check func(t *testing.T, err error)
	}{
		{
			name:  "UnknownWriter",
			props: map[string]string{"writer": "carrier-pigeon"},
			check: func(t *testing.T, err error) {
				var unknown *core.UnknownWriterError
				require.ErrorAs(t, err, &unknown)
				assert.Equal(t, "carrier-pigeon", unknown.Name)
			},
		},
		{
			name:  "UnknownPlaceholder",
			props: map[string]string{"writer": "console", "writer.pattern": "{nope}"},
			check: func(t *testing.T, err error) {
				var unknown *core.UnknownPlaceholderError
				require.ErrorAs(t, err, &unknown)
			},
		},
		{
			name:  "InvalidWriterLevel",
			props: map[string]string{"writer": "console", "writer.level": "loud"},
			check: func(t *testing.T, err error) {
				var cfgErr *core.WriterConfigurationError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, "level", cfgErr.Key)
			},
		},
		{
			name:  "InvalidBackpressure",
			props: map[string]string{"writer": "console", "writer.backpressure": "spill"},
			check: func(t *testing.T, err error) {
				var cfgErr *core.WriterConfigurationError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, "backpressure", cfgErr.Key)
			},
		},
		{
			name:  "InvalidGlobalLevel",
			props: map[string]string{"level": "chatty"},
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "invalid level")
			},
		},
		{
			name:  "MissingType",
			props: map[string]string{"writer2": ""},
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "missing writer type")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(newStore(t, tc.props), WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestWithModules_CustomPlaceholderAndWriter(t *testing.T) {
	var captured []string
	mod := &plugin.StaticModule{
		ModuleName: "test",
		PlaceholderList: []format.Builder{
			format.BuilderFunc("shout", func(format.Params) (format.Placeholder, error) {
				return format.RenderFunc{Fn: func(sb *strings.Builder, e *core.LogEntry) {
					sb.WriteString(strings.ToUpper(e.FormattedMessage()))
				}}, nil
			}),
		},
		WriterFactoryList: []writer.Factory{
			writer.FactoryFunc("memory", func(ctx *writer.Context) (writer.Writer, error) {
				p, err := ctx.Pattern(writer.KeyMessagePattern, "{shout}")
				if err != nil {
					return nil, err
				}
				return &memoryWriter{pattern: p, out: &captured}, nil
			}),
		},
	}

	e, _, _ := newEngine(t, map[string]string{"writer": "memory"}, WithModules(mod))
	e.Log(context.Background(), LevelInfo, "", "quiet")
	require.NoError(t, e.Shutdown(context.Background()))
	assert.Equal(t, []string{"QUIET"}, captured)
}

type memoryWriter struct {
	pattern *format.Pattern
	out     *[]string
}

func (w *memoryWriter) Log(e *core.LogEntry) error {
	*w.out = append(*w.out, w.pattern.Render(e))
	return nil
}

func (w *memoryWriter) Close() error { return nil }

func TestStatsAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ch := diag.Discard()
	e, _, _ := newEngine(t, map[string]string{"writer": "console"}, WithMetrics(reg), WithDiag(ch))

	e.Log(context.Background(), LevelInfo, "", "one")
	require.NoError(t, e.Shutdown(context.Background()))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "logweave_entries_written_total")

	stats := e.Stats()
	assert.Equal(t, uint64(1), stats["entries_dispatched"])
	assert.Contains(t, stats, "diagnostics")
	assert.True(t, e.AutoShutdown())
	assert.False(t, e.Enabled(LevelError, ""))
}
