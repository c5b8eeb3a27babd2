// FILE: logweave/src/internal/dispatch/dispatch_test.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"logweave/src/internal/core"
	"logweave/src/internal/diag"
	"logweave/src/internal/filter"
	"logweave/src/internal/ratelimit"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingWriter keeps every message it was given
type recordingWriter struct {
	mu       sync.Mutex
	messages []string
	closed   int
	gate     chan struct{}
	fail     func(e *core.LogEntry) error
}

func (w *recordingWriter) Log(e *core.LogEntry) error {
	if w.gate != nil {
		<-w.gate
	}
	if w.fail != nil {
		if err := w.fail(e); err != nil {
			return err
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, e.FormattedMessage())
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed++
	return nil
}

func (w *recordingWriter) Fields() core.Fields { return core.FieldsNone }

func (w *recordingWriter) snapshot() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.messages...)
}

func (w *recordingWriter) closeCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

type panickingWriter struct{}

func (panickingWriter) Log(*core.LogEntry) error { panic("boom") }
func (panickingWriter) Close() error             { return nil }

func entry(level core.Level, tag, msg string) *core.LogEntry {
	return core.NewEntryBuilder().Level(level).Tag(tag).Message(msg).Create()
}

func newEngine(t *testing.T, ch *diag.Channel, bindings ...Binding) *Engine {
	t.Helper()
	e, err := New(bindings, Options{Diag: ch})
	require.NoError(t, err)
	return e
}

func TestParseBackpressure(t *testing.T) {
	for input, expected := range map[string]Backpressure{
		"":            BackpressureBlock,
		"Block":       BackpressureBlock,
		"drop-oldest": BackpressureDropOldest,
		"reject":      BackpressureReject,
	} {
		b, err := ParseBackpressure(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, b)
	}
	_, err := ParseBackpressure("spill")
	assert.Error(t, err)
}

func TestNew_InvalidBindings(t *testing.T) {
	w := &recordingWriter{}
	_, err := New([]Binding{{Name: "a", Writer: w}, {Name: "a", Writer: w}}, Options{})
	assert.ErrorContains(t, err, "duplicate binding name: a")

	_, err = New([]Binding{{Name: "a"}}, Options{})
	assert.Error(t, err)
}

func TestDispatch_LevelAndTagRouting(t *testing.T) {
	all := &recordingWriter{}
	warn := &recordingWriter{}
	db := &recordingWriter{}
	untagged := &recordingWriter{}

	e := newEngine(t, nil,
		Binding{Name: "all", Writer: all, Level: core.LevelTrace},
		Binding{Name: "warn", Writer: warn, Level: core.LevelWarn},
		Binding{Name: "db", Writer: db, Level: core.LevelDebug, Tags: []string{"db"}},
		Binding{Name: "untagged", Writer: untagged, Level: core.LevelInfo, Tags: []string{UntaggedFilter}},
	)

	require.NoError(t, e.Dispatch(entry(core.LevelDebug, "db", "query")))
	require.NoError(t, e.Dispatch(entry(core.LevelError, "", "crash")))
	require.NoError(t, e.Dispatch(entry(core.LevelInfo, "api", "request")))

	assert.Equal(t, []string{"query", "crash", "request"}, all.snapshot())
	assert.Equal(t, []string{"crash"}, warn.snapshot())
	assert.Equal(t, []string{"query"}, db.snapshot())
	assert.Equal(t, []string{"crash"}, untagged.snapshot())

	assert.Equal(t, core.LevelTrace, e.MinimumLevel("api"))
	assert.True(t, e.Enabled(core.LevelTrace, "x"))
	assert.Equal(t, core.FieldsNone, e.Fields())
	require.NoError(t, e.Shutdown(context.Background()))
}

func TestEnabled_NoMatchingWriter(t *testing.T) {
	e := newEngine(t, nil, Binding{Name: "db", Writer: &recordingWriter{}, Level: core.LevelWarn, Tags: []string{"db"}})

	assert.Equal(t, core.LevelOff, e.MinimumLevel("api"))
	assert.False(t, e.Enabled(core.LevelError, "api"))
	assert.True(t, e.Enabled(core.LevelError, "db"))
	assert.False(t, e.Enabled(core.LevelInfo, "db"))

	require.NoError(t, e.Shutdown(context.Background()))
	assert.False(t, e.Enabled(core.LevelError, "db"))
}

func TestDispatch_AsyncPerProducerOrdering(t *testing.T) {
	w := &recordingWriter{}
	e := newEngine(t, nil, Binding{Name: "async", Writer: w, Async: true, QueueSize: 4})

	const producers, perProducer = 4, 200
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.NoError(t, e.Dispatch(entry(core.LevelInfo, "", fmt.Sprintf("%d:%d", p, i))))
			}
		}(p)
	}
	wg.Wait()
	require.NoError(t, e.Shutdown(context.Background()))

	got := w.snapshot()
	require.Len(t, got, producers*perProducer)

	next := make(map[int]int)
	for _, msg := range got {
		var p, i int
		_, err := fmt.Sscanf(msg, "%d:%d", &p, &i)
		require.NoError(t, err)
		assert.Equal(t, next[p], i, "producer %d out of order", p)
		next[p] = i + 1
	}
	assert.Equal(t, 1, w.closeCount())
}

func TestDispatch_BlockingBackpressure(t *testing.T) {
	gate := make(chan struct{})
	w := &recordingWriter{gate: gate}
	ch := diag.Discard()
	e := newEngine(t, ch, Binding{Name: "slow", Writer: w, Async: true, QueueSize: 1})

	// One entry held by the worker, one in the queue
	require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", "1")))
	require.Eventually(t, func() bool { return e.routes[0].pending() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", "2")))

	returned := make(chan error, 1)
	go func() {
		returned <- e.Dispatch(entry(core.LevelInfo, "", "3"))
	}()

	select {
	case <-returned:
		t.Fatal("producer did not block on a full queue")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	require.NoError(t, <-returned)
	require.NoError(t, e.Shutdown(context.Background()))

	assert.Equal(t, []string{"1", "2", "3"}, w.snapshot())
	assert.Zero(t, ch.Count(diag.KindDropped))
}

func TestDispatch_DropOldest(t *testing.T) {
	gate := make(chan struct{})
	w := &recordingWriter{gate: gate}
	ch := diag.Discard()
	e := newEngine(t, ch, Binding{Name: "lossy", Writer: w, Async: true, QueueSize: 2, Backpressure: BackpressureDropOldest})

	require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", "held")))
	require.Eventually(t, func() bool { return e.routes[0].pending() == 0 }, time.Second, time.Millisecond)
	for _, msg := range []string{"a", "b", "c", "d"} {
		require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", msg)))
	}

	close(gate)
	require.NoError(t, e.Shutdown(context.Background()))

	assert.Equal(t, []string{"held", "c", "d"}, w.snapshot())
	assert.Equal(t, uint64(2), ch.Count(diag.KindDropped))
}

func TestDispatch_Reject(t *testing.T) {
	gate := make(chan struct{})
	w := &recordingWriter{gate: gate}
	ch := diag.Discard()
	e := newEngine(t, ch, Binding{Name: "strict", Writer: w, Async: true, QueueSize: 1, Backpressure: BackpressureReject})

	require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", "held")))
	require.Eventually(t, func() bool { return e.routes[0].pending() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", "queued")))
	assert.ErrorIs(t, e.Dispatch(entry(core.LevelInfo, "", "rejected")), core.ErrQueueFull)

	close(gate)
	require.NoError(t, e.Shutdown(context.Background()))

	assert.Equal(t, []string{"held", "queued"}, w.snapshot())
	assert.Equal(t, uint64(1), ch.Count(diag.KindDropped))
}

func TestDispatch_FailureIsolation(t *testing.T) {
	ch := diag.Discard()
	failing := &recordingWriter{fail: func(e *core.LogEntry) error {
		if e.FormattedMessage() == "bad" {
			return errors.New("disk on fire")
		}
		return nil
	}}
	healthy := &recordingWriter{}

	e := newEngine(t, ch,
		Binding{Name: "failing", Writer: failing, Async: true},
		Binding{Name: "panicking", Writer: panickingWriter{}},
		Binding{Name: "healthy", Writer: healthy},
	)

	for _, msg := range []string{"ok", "bad", "after"} {
		require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", msg)))
	}
	require.NoError(t, e.Shutdown(context.Background()))

	assert.Equal(t, []string{"ok", "after"}, failing.snapshot())
	assert.Equal(t, []string{"ok", "bad", "after"}, healthy.snapshot())
	assert.Equal(t, uint64(4), ch.Count(diag.KindWriterFailure))

	stats := e.Stats()["writers"].(map[string]any)
	assert.Equal(t, uint64(3), stats["panicking"].(map[string]any)["entries_failed"])
	assert.Equal(t, uint64(1), stats["failing"].(map[string]any)["entries_failed"])
}

func TestDispatch_RotationFailureKind(t *testing.T) {
	ch := diag.Discard()
	w := &recordingWriter{fail: func(*core.LogEntry) error {
		return &core.RotationError{Path: "/nope/app.log", Err: errors.New("permission denied")}
	}}
	e := newEngine(t, ch, Binding{Name: "file", Writer: w})

	require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", "x")))
	assert.Equal(t, uint64(1), ch.Count(diag.KindRotation))
	assert.Zero(t, ch.Count(diag.KindWriterFailure))
	require.NoError(t, e.Shutdown(context.Background()))
}

func TestShutdown_DrainsQueue(t *testing.T) {
	gate := make(chan struct{})
	w := &recordingWriter{gate: gate}
	direct := &recordingWriter{}
	e := newEngine(t, nil,
		Binding{Name: "async", Writer: w, Async: true, QueueSize: 100},
		Binding{Name: "sync", Writer: direct},
	)

	for i := 0; i < 50; i++ {
		require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", fmt.Sprint(i))))
	}
	close(gate)

	require.NoError(t, e.Shutdown(context.Background()))
	assert.Len(t, w.snapshot(), 50)
	assert.Equal(t, 1, w.closeCount())
	assert.Equal(t, 1, direct.closeCount())

	assert.ErrorIs(t, e.Dispatch(entry(core.LevelInfo, "", "late")), core.ErrClosed)
	assert.NoError(t, e.Shutdown(context.Background()))
	assert.Equal(t, 1, w.closeCount())
}

func TestShutdown_TimeoutReportsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)

	w := &recordingWriter{gate: gate}
	ch := diag.Discard()
	e := newEngine(t, ch, Binding{Name: "stuck", Writer: w, Async: true, QueueSize: 10})

	for i := 0; i < 6; i++ {
		require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", fmt.Sprint(i))))
	}
	require.Eventually(t, func() bool { return e.routes[0].pending() == 5 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := e.Shutdown(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "discarded 5 entries")
	assert.Equal(t, uint64(5), ch.Count(diag.KindDropped))
}

func TestShutdown_TimeoutCountsDiscardInProgress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Every write blocks until the shutdown deadline, then the drain discards the rest
	w := &recordingWriter{fail: func(*core.LogEntry) error {
		<-ctx.Done()
		return nil
	}}
	ch := diag.Discard()
	e := newEngine(t, ch, Binding{Name: "slow", Writer: w, Async: true, QueueSize: 10})
	r := e.routes[0]

	for i := 0; i < 6; i++ {
		require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", fmt.Sprint(i))))
	}
	require.Eventually(t, func() bool { return r.pending() == 5 }, time.Second, time.Millisecond)

	result := make(chan error, 1)
	go func() { result <- e.Shutdown(ctx) }()

	require.Eventually(t, func() bool {
		select {
		case <-r.stop:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	cancel()

	err := <-result
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "discarded 5 entries")
	assert.Equal(t, uint64(5), ch.Count(diag.KindDropped))
	require.Eventually(t, func() bool { return w.closeCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"0"}, w.snapshot())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := &recordingWriter{fail: func(e *core.LogEntry) error {
		if e.Level() == core.LevelError {
			return errors.New("nope")
		}
		return nil
	}}
	e, err := New([]Binding{{Name: "main", Writer: w}}, Options{Registerer: reg})
	require.NoError(t, err)

	require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", "a")))
	require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", "b")))
	require.NoError(t, e.Dispatch(entry(core.LevelError, "", "c")))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[mf.GetName()] += m.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, values["logweave_entries_written_total"])
	assert.Equal(t, 1.0, values["logweave_entries_failed_total"])
	require.NoError(t, e.Shutdown(context.Background()))
}

func TestDispatch_FilterAndRateLimit(t *testing.T) {
	chain, err := filter.NewChain([]filter.Config{{Type: filter.TypeExclude, Pattern: "noise"}})
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter, err := ratelimit.NewWithClock(ratelimit.Config{Rate: 1, Burst: 2}, func() time.Time { return now })
	require.NoError(t, err)

	w := &recordingWriter{}
	ch := diag.Discard()
	e := newEngine(t, ch, Binding{Name: "limited", Writer: w, Filter: chain, Limiter: limiter})

	for _, msg := range []string{"a", "noise", "b", "c"} {
		require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", msg)))
	}
	now = now.Add(time.Second)
	require.NoError(t, e.Dispatch(entry(core.LevelInfo, "", "d")))
	require.NoError(t, e.Shutdown(context.Background()))

	assert.Equal(t, []string{"a", "b", "d"}, w.snapshot())
	assert.Equal(t, uint64(1), ch.Count(diag.KindDropped))

	stats := e.Stats()["writers"].(map[string]any)["limited"].(map[string]any)
	assert.Contains(t, stats, "filter")
	assert.Equal(t, uint64(1), stats["rate_limit"].(map[string]any)["dropped_total"])
}
