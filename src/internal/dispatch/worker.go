// FILE: logweave/src/internal/dispatch/worker.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"logweave/src/internal/core"
	"logweave/src/internal/diag"
	"logweave/src/internal/writer"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	reasonQueueFull = "queue full"
	reasonShutdown  = "shutdown"
	reasonRateLimit = "rate limit"
)

// route is the runtime side of a binding. Sync routes serialize Log under mu;
// async routes hand entries to a single worker goroutine.
type route struct {
	Binding

	diag *diag.Channel

	mu    sync.Mutex
	queue chan *core.LogEntry
	stop  chan struct{}
	done  chan struct{}

	// drainCtx bounds the final drain; written before stop is closed
	drainCtx context.Context

	written   atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
	discarded atomic.Uint64

	writtenCounter prometheus.Counter
	failedCounter  prometheus.Counter
	droppedFull    prometheus.Counter
	droppedStop    prometheus.Counter
	droppedRate    prometheus.Counter
	depth          prometheus.Gauge
}

func newRoute(b Binding, ch *diag.Channel, m *metrics) *route {
	r := &route{
		Binding:        b,
		diag:           ch,
		writtenCounter: m.written.WithLabelValues(b.Name),
		failedCounter:  m.failed.WithLabelValues(b.Name),
		droppedFull:    m.dropped.WithLabelValues(b.Name, reasonQueueFull),
		droppedStop:    m.dropped.WithLabelValues(b.Name, reasonShutdown),
		droppedRate:    m.dropped.WithLabelValues(b.Name, reasonRateLimit),
		depth:          m.queueDepth.WithLabelValues(b.Name),
	}
	if b.Async {
		size := b.QueueSize
		if size <= 0 {
			size = DefaultQueueSize
		}
		r.queue = make(chan *core.LogEntry, size)
		r.stop = make(chan struct{})
		r.done = make(chan struct{})
	}
	return r
}

func (r *route) start() {
	if r.Async {
		go r.run()
	}
}

// deliver writes e on the caller or enqueues it for the worker
func (r *route) deliver(e *core.LogEntry) error {
	if !r.Async {
		r.mu.Lock()
		r.write(e)
		r.mu.Unlock()
		return nil
	}
	return r.enqueue(e)
}

func (r *route) enqueue(e *core.LogEntry) error {
	switch r.Backpressure {
	case BackpressureReject:
		select {
		case r.queue <- e:
		default:
			r.drop(1, reasonQueueFull)
			return core.ErrQueueFull
		}

	case BackpressureDropOldest:
		for {
			select {
			case r.queue <- e:
				r.depth.Set(float64(len(r.queue)))
				return nil
			default:
			}
			select {
			case <-r.queue:
				r.drop(1, reasonQueueFull)
			default:
			}
		}

	default:
		select {
		case r.queue <- e:
		case <-r.stop:
			r.drop(1, reasonShutdown)
			return core.ErrClosed
		}
	}
	r.depth.Set(float64(len(r.queue)))
	return nil
}

// run is the worker loop. Stop drains what was queued, then closes the writer.
func (r *route) run() {
	defer close(r.done)

	for {
		// stop wins over a non-empty queue so a timed out drain is not overrun
		select {
		case <-r.stop:
			r.drain()
			r.closeWriter()
			return
		default:
		}

		select {
		case e := <-r.queue:
			r.depth.Set(float64(len(r.queue)))
			r.write(e)
		case <-r.stop:
			r.drain()
			r.closeWriter()
			return
		}
	}
}

func (r *route) drain() {
	for {
		select {
		case <-r.drainCtx.Done():
			n := r.discardQueued()
			r.diag.Debug("dispatch", "Drain interrupted",
				"writer", r.Name,
				"discarded", n)
			return
		default:
		}

		select {
		case e := <-r.queue:
			r.depth.Set(float64(len(r.queue)))
			r.write(e)
		default:
			return
		}
	}
}

// discardQueued empties the queue, counting every entry as dropped. It holds mu so
// lost never sees an entry that is neither queued nor counted.
func (r *route) discardQueued() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n uint64
	for {
		select {
		case <-r.queue:
			n++
		default:
			r.depth.Set(0)
			r.discarded.Add(n)
			r.dropped.Add(n)
			r.droppedStop.Add(float64(n))
			return n
		}
	}
}

func (r *route) write(e *core.LogEntry) {
	if err := safeLog(r.Writer, e); err != nil {
		r.failed.Add(1)
		r.failedCounter.Inc()
		r.report(err)
		return
	}
	r.written.Add(1)
	r.writtenCounter.Inc()
}

// safeLog turns a panicking writer into an error
func safeLog(w writer.Writer, e *core.LogEntry) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return w.Log(e)
}

func (r *route) report(err error) {
	kind := diag.KindWriterFailure
	var rotErr *core.RotationError
	if errors.As(err, &rotErr) {
		kind = diag.KindRotation
	}
	r.diag.ReportFailure(kind, r.Name, &core.WriterRuntimeError{Writer: r.Name, Err: err})
}

func (r *route) drop(n uint64, reason string) {
	r.dropped.Add(n)
	switch reason {
	case reasonShutdown:
		r.droppedStop.Add(float64(n))
	case reasonRateLimit:
		r.droppedRate.Add(float64(n))
	default:
		r.droppedFull.Add(float64(n))
	}
	r.diag.ReportDropped(r.Name, n, reason)
}

func (r *route) closeWriter() {
	if f, ok := r.Writer.(writer.Flusher); ok {
		if err := f.Flush(); err != nil {
			r.report(err)
		}
	}
	if err := r.Writer.Close(); err != nil {
		r.diag.Warn("dispatch", "Failed to close writer",
			"writer", r.Name,
			"error", err)
	}
}

// finish stops the route: async workers drain and close their writer, sync
// writers are closed once no producer holds them
func (r *route) finish(ctx context.Context) {
	if !r.Async {
		r.mu.Lock()
		r.closeWriter()
		r.mu.Unlock()
		return
	}
	r.drainCtx = ctx
	close(r.stop)
	<-r.done
}

// pending is the number of entries still queued
func (r *route) pending() int {
	if !r.Async {
		return 0
	}
	return len(r.queue)
}

// lost is the number of entries discarded by the drain plus those still queued
func (r *route) lost() uint64 {
	if !r.Async {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.discarded.Load() + uint64(len(r.queue))
}

func (r *route) stats() map[string]any {
	stats := map[string]any{
		"level":           r.Level.String(),
		"async":           r.Async,
		"entries_written": r.written.Load(),
		"entries_failed":  r.failed.Load(),
		"entries_dropped": r.dropped.Load(),
	}
	if r.Async {
		stats["queue_size"] = cap(r.queue)
		stats["queue_depth"] = len(r.queue)
		stats["backpressure"] = r.Backpressure.String()
	}
	if r.Filter != nil {
		stats["filter"] = r.Filter.Stats()
	}
	if r.Limiter != nil {
		stats["rate_limit"] = r.Limiter.Stats()
	}
	if s, ok := r.Writer.(writer.StatsReporter); ok {
		stats["writer"] = s.Stats()
	}
	return stats
}
