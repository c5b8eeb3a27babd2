// FILE: logweave/src/internal/writer/tcp.go
package writer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"logweave/src/internal/core"
	"logweave/src/internal/diag"
	"logweave/src/internal/format"
)

// TCP forwards newline terminated rendered entries to a remote endpoint and
// reconnects with exponential backoff when the connection drops
type TCP struct {
	config  TCPConfig
	pattern *format.Pattern
	diag    *diag.Channel
	name    string

	conn   net.Conn
	connMu sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	// Reconnection state
	reconnecting atomic.Bool
	lastErrMu    sync.Mutex
	lastErr      error

	// Statistics
	totalProcessed  atomic.Uint64
	totalFailed     atomic.Uint64
	totalReconnects atomic.Uint64
}

// TCPConfig holds TCP writer settings
type TCPConfig struct {
	Address      string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	KeepAlive    time.Duration

	// Reconnection settings
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	ReconnectBackoff  float64
}

// NewTCP creates a TCP writer.
// Keys: address, dial-timeout, write-timeout, keep-alive, reconnect-delay, max-reconnect-delay.
func NewTCP(ctx *Context) (Writer, error) {
	pattern, err := ctx.MessagePattern()
	if err != nil {
		return nil, err
	}

	cfg := TCPConfig{ReconnectBackoff: 1.5}

	if cfg.Address, err = ctx.Required("address"); err != nil {
		return nil, err
	}
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		return nil, ctx.ConfigError("address", fmt.Errorf("invalid address format (expected host:port): %w", err))
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"dial-timeout", 10 * time.Second, &cfg.DialTimeout},
		{"write-timeout", 30 * time.Second, &cfg.WriteTimeout},
		{"keep-alive", 30 * time.Second, &cfg.KeepAlive},
		{"reconnect-delay", time.Second, &cfg.ReconnectDelay},
		{"max-reconnect-delay", 30 * time.Second, &cfg.MaxReconnectDelay},
	}
	for _, d := range durations {
		if *d.dst, err = ctx.Duration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	t := &TCP{
		config:  cfg,
		pattern: pattern,
		diag:    ctx.Diag,
		name:    ctx.Name,
		done:    make(chan struct{}),
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())

	t.wg.Add(1)
	go t.connectionManager()

	t.diag.Debug("tcp_writer", "TCP writer started",
		"writer", t.name,
		"address", cfg.Address)
	return t, nil
}

func (t *TCP) connectionManager() {
	defer t.wg.Done()

	reconnectDelay := t.config.ReconnectDelay

	for {
		select {
		case <-t.done:
			return
		default:
		}

		t.reconnecting.Store(true)
		conn, err := t.connect()
		t.reconnecting.Store(false)

		if err != nil {
			t.setLastErr(err)
			t.diag.Debug("tcp_writer", "Failed to connect to TCP server",
				"writer", t.name,
				"address", t.config.Address,
				"error", err,
				"retry_delay", reconnectDelay)

			select {
			case <-t.done:
				return
			case <-time.After(reconnectDelay):
			}

			// Exponential backoff
			reconnectDelay = time.Duration(float64(reconnectDelay) * t.config.ReconnectBackoff)
			if reconnectDelay > t.config.MaxReconnectDelay {
				reconnectDelay = t.config.MaxReconnectDelay
			}
			continue
		}

		t.setLastErr(nil)
		reconnectDelay = t.config.ReconnectDelay
		t.totalReconnects.Add(1)

		t.connMu.Lock()
		t.conn = conn
		t.connMu.Unlock()

		t.monitorConnection(conn)

		t.connMu.Lock()
		t.conn = nil
		t.connMu.Unlock()
		_ = conn.Close()
	}
}

func (t *TCP) connect() (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout:   t.config.DialTimeout,
		KeepAlive: t.config.KeepAlive,
	}
	return dialer.DialContext(t.ctx, "tcp", t.config.Address)
}

// monitorConnection returns when the peer closes the connection or the writer stops
func (t *TCP) monitorConnection(conn net.Conn) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	buf := make([]byte, 1)
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			if err := conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
				return
			}
			// No data is expected, a timeout means the connection is alive
			if _, err := conn.Read(buf); err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					continue
				}
				return
			}
		}
	}
}

// Log writes the rendered entry; entries logged while disconnected fail
func (t *TCP) Log(e *core.LogEntry) error {
	t.totalProcessed.Add(1)

	t.connMu.RLock()
	conn := t.conn
	t.connMu.RUnlock()

	if conn == nil {
		t.totalFailed.Add(1)
		return fmt.Errorf("not connected to %s", t.config.Address)
	}

	data := renderLine(t.pattern, e)
	if err := conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout)); err != nil {
		t.totalFailed.Add(1)
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	n, err := conn.Write(data)
	if err != nil {
		t.totalFailed.Add(1)
		return fmt.Errorf("write failed: %w", err)
	}
	if n != len(data) {
		t.totalFailed.Add(1)
		return fmt.Errorf("partial write: %d/%d bytes", n, len(data))
	}
	return nil
}

// Connected reports whether a connection is currently established
func (t *TCP) Connected() bool {
	t.connMu.RLock()
	defer t.connMu.RUnlock()
	return t.conn != nil
}

func (t *TCP) Close() error {
	t.once.Do(func() {
		close(t.done)
		t.cancel()

		t.connMu.Lock()
		if t.conn != nil {
			_ = t.conn.Close()
		}
		t.connMu.Unlock()

		t.wg.Wait()
	})
	return nil
}

func (t *TCP) Fields() core.Fields { return t.pattern.Fields() }

func (t *TCP) setLastErr(err error) {
	t.lastErrMu.Lock()
	t.lastErr = err
	t.lastErrMu.Unlock()
}

func (t *TCP) Stats() map[string]any {
	t.lastErrMu.Lock()
	lastErr := t.lastErr
	t.lastErrMu.Unlock()

	return map[string]any{
		"type":             "tcp",
		"address":          t.config.Address,
		"connected":        t.Connected(),
		"reconnecting":     t.reconnecting.Load(),
		"total_processed":  t.totalProcessed.Load(),
		"total_failed":     t.totalFailed.Load(),
		"total_reconnects": t.totalReconnects.Load(),
		"last_error":       fmt.Sprintf("%v", lastErr),
	}
}
