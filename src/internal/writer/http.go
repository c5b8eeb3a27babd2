// FILE: logweave/src/internal/writer/http.go
package writer

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logweave/src/internal/core"
	"logweave/src/internal/diag"
	"logweave/src/internal/format"
	"logweave/src/internal/version"

	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"
)

// HTTPConfig holds HTTP writer settings
type HTTPConfig struct {
	URL        string
	Format     string // "json" or "text"
	BatchSize  int
	BatchDelay time.Duration
	Timeout    time.Duration

	MaxRetries   int
	RetryDelay   time.Duration
	RetryBackoff float64

	// AuthSecret enables an HS256 bearer token on every request
	AuthSecret string
	TokenTTL   time.Duration
}

// HTTP posts batches of entries to a remote endpoint
type HTTP struct {
	config  HTTPConfig
	client  *fasthttp.Client
	pattern *format.Pattern
	encoder *format.JSONEncoder
	diag    *diag.Channel
	name    string

	// Batching
	batch   []*core.LogEntry
	batchMu sync.Mutex
	sendMu  sync.Mutex

	// Token cache
	token       string
	tokenExpiry time.Time

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	// Statistics
	totalProcessed atomic.Uint64
	totalBatches   atomic.Uint64
	failedBatches  atomic.Uint64
	lastBatchSent  atomic.Value // time.Time
}

// NewHTTP creates an HTTP writer.
// Keys: url, format, batch-size, batch-delay, timeout, max-retries, retry-delay, auth-secret, token-ttl.
func NewHTTP(ctx *Context) (Writer, error) {
	cfg := HTTPConfig{RetryBackoff: 2.0}
	var err error

	if cfg.URL, err = ctx.Required("url"); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return nil, ctx.ConfigError("url", fmt.Errorf("must start with http:// or https://"))
	}

	cfg.Format = strings.ToLower(ctx.String("format", "json"))
	if cfg.Format != "json" && cfg.Format != "text" {
		return nil, ctx.ConfigError("format", fmt.Errorf("must be json or text, got %q", cfg.Format))
	}

	if cfg.BatchSize, err = ctx.Int("batch-size", 100); err != nil {
		return nil, err
	}
	if cfg.BatchSize < 1 {
		return nil, ctx.ConfigError("batch-size", fmt.Errorf("must be positive"))
	}
	if cfg.MaxRetries, err = ctx.Int("max-retries", 3); err != nil {
		return nil, err
	}
	if cfg.BatchDelay, err = ctx.Duration("batch-delay", time.Second); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = ctx.Duration("timeout", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = ctx.Duration("retry-delay", time.Second); err != nil {
		return nil, err
	}
	cfg.AuthSecret = ctx.String("auth-secret", "")
	if cfg.TokenTTL, err = ctx.Duration("token-ttl", 15*time.Minute); err != nil {
		return nil, err
	}

	h := &HTTP{
		config: cfg,
		diag:   ctx.Diag,
		name:   ctx.Name,
		batch:  make([]*core.LogEntry, 0, cfg.BatchSize),
		done:   make(chan struct{}),
		client: &fasthttp.Client{
			MaxConnsPerHost:               10,
			MaxIdleConnDuration:           10 * time.Second,
			ReadTimeout:                   cfg.Timeout,
			WriteTimeout:                  cfg.Timeout,
			DisableHeaderNamesNormalizing: true,
		},
	}
	h.lastBatchSent.Store(time.Time{})

	if cfg.Format == "json" {
		// Only an explicit pattern replaces the plain message field
		if h.pattern, err = ctx.Pattern(KeyMessagePattern, ctx.String(KeyPatternAlias, "")); err != nil {
			return nil, err
		}
		h.encoder = format.NewJSONEncoder(format.DefaultJSONOptions(), h.pattern)
	} else if h.pattern, err = ctx.MessagePattern(); err != nil {
		return nil, err
	}

	h.wg.Add(1)
	go h.batchTimer()

	h.diag.Debug("http_writer", "HTTP writer started",
		"writer", h.name,
		"url", cfg.URL,
		"batch_size", cfg.BatchSize,
		"batch_delay", cfg.BatchDelay)
	return h, nil
}

// Log adds e to the current batch and sends the batch once it is full
func (h *HTTP) Log(e *core.LogEntry) error {
	h.totalProcessed.Add(1)

	h.batchMu.Lock()
	h.batch = append(h.batch, e)
	if len(h.batch) < h.config.BatchSize {
		h.batchMu.Unlock()
		return nil
	}
	batch := h.takeBatchLocked()
	h.batchMu.Unlock()

	return h.sendBatch(batch)
}

func (h *HTTP) takeBatchLocked() []*core.LogEntry {
	batch := h.batch
	h.batch = make([]*core.LogEntry, 0, h.config.BatchSize)
	return batch
}

// Flush sends pending entries immediately
func (h *HTTP) Flush() error {
	h.batchMu.Lock()
	if len(h.batch) == 0 {
		h.batchMu.Unlock()
		return nil
	}
	batch := h.takeBatchLocked()
	h.batchMu.Unlock()

	return h.sendBatch(batch)
}

// batchTimer periodically sends partial batches
func (h *HTTP) batchTimer() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.config.BatchDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := h.Flush(); err != nil {
				h.diag.ReportFailure(diag.KindWriterFailure, h.name, err)
			}
		case <-h.done:
			return
		}
	}
}

func (h *HTTP) encode(batch []*core.LogEntry) ([]byte, string, error) {
	if h.encoder != nil {
		body, err := h.encoder.EncodeBatch(batch)
		return body, "application/json", err
	}

	var sb strings.Builder
	for _, e := range batch {
		h.pattern.AppendTo(&sb, e)
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), "text/plain; charset=utf-8", nil
}

// bearerToken returns a cached token, signing a new one shortly before expiry
func (h *HTTP) bearerToken(now time.Time) (string, error) {
	if h.token != "" && now.Add(h.config.TokenTTL/10).Before(h.tokenExpiry) {
		return h.token, nil
	}

	expiry := now.Add(h.config.TokenTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    "logweave",
		Subject:   h.name,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.config.AuthSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign bearer token: %w", err)
	}
	h.token, h.tokenExpiry = token, expiry
	return token, nil
}

// sendBatch posts one batch, retrying server errors with exponential backoff.
// Batches are sent one at a time to preserve entry order.
func (h *HTTP) sendBatch(batch []*core.LogEntry) error {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	h.totalBatches.Add(1)
	h.lastBatchSent.Store(time.Now())

	body, contentType, err := h.encode(batch)
	if err != nil {
		h.failedBatches.Add(1)
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	var lastErr error
	retryDelay := h.config.RetryDelay

retry:
	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-h.done:
				// A closing writer makes a single attempt
				break retry
			case <-time.After(retryDelay):
			}

			newDelay := time.Duration(float64(retryDelay) * h.config.RetryBackoff)
			if newDelay > h.config.Timeout || newDelay < retryDelay {
				retryDelay = h.config.Timeout
			} else {
				retryDelay = newDelay
			}
		}

		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()

		req.SetRequestURI(h.config.URL)
		req.Header.SetMethod("POST")
		req.Header.SetContentType(contentType)
		req.Header.Set("User-Agent", version.UserAgent())
		req.SetBody(body)

		if h.config.AuthSecret != "" {
			token, err := h.bearerToken(time.Now())
			if err != nil {
				fasthttp.ReleaseRequest(req)
				fasthttp.ReleaseResponse(resp)
				h.failedBatches.Add(1)
				return err
			}
			req.Header.Set("Authorization", "Bearer "+token)
		}

		err := h.client.DoTimeout(req, resp, h.config.Timeout)

		statusCode := resp.StatusCode()
		var responseBody []byte
		if len(resp.Body()) > 0 {
			responseBody = make([]byte, len(resp.Body()))
			copy(responseBody, resp.Body())
		}

		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)

		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		if statusCode >= 200 && statusCode < 300 {
			return nil
		}

		lastErr = fmt.Errorf("server returned status %d: %s", statusCode, responseBody)

		// Client errors are not retried
		if statusCode >= 400 && statusCode < 500 {
			break retry
		}
	}

	h.failedBatches.Add(1)
	return fmt.Errorf("failed to send batch of %d entries: %w", len(batch), lastErr)
}

// Close stops the timer and sends the remaining entries
func (h *HTTP) Close() error {
	var err error
	h.once.Do(func() {
		close(h.done)
		h.wg.Wait()
		err = h.Flush()
	})
	return err
}

func (h *HTTP) Fields() core.Fields {
	if h.encoder != nil {
		return h.encoder.Fields()
	}
	return h.pattern.Fields()
}

func (h *HTTP) Stats() map[string]any {
	h.batchMu.Lock()
	pendingEntries := len(h.batch)
	h.batchMu.Unlock()
	lastBatch, _ := h.lastBatchSent.Load().(time.Time)

	return map[string]any{
		"type":            "http",
		"url":             h.config.URL,
		"batch_size":      h.config.BatchSize,
		"pending_entries": pendingEntries,
		"total_processed": h.totalProcessed.Load(),
		"total_batches":   h.totalBatches.Load(),
		"failed_batches":  h.failedBatches.Load(),
		"last_batch_sent": lastBatch,
	}
}
