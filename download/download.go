// Package download implements the download engine of spec.md §4.5: it
// fetches a URL to a target directory, reports progress through a
// caller-supplied sink at a bounded rate, and honors cancellation.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/divvun/pahkat-go/metrics"
	"github.com/divvun/pahkat-go/pahkaterr"
	"golang.org/x/time/rate"
)

// Progress is one (bytes-done, bytes-total) observation. Total is zero
// when the transport did not report a Content-Length.
type Progress struct {
	Done  int64
	Total int64
}

// Sink receives progress observations. Callers that don't care about
// progress pass a no-op sink.
type Sink func(Progress)

// Engine downloads files to a directory, rate-limiting how often it
// invokes the caller's progress sink.
type Engine struct {
	client      *http.Client
	progressRPS float64
	metrics     *metrics.Registry
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

// WithMetrics attaches a metrics registry to record download counters.
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithProgressRate overrides the default progress-sink call rate (per
// second).
func WithProgressRate(rps float64) Option {
	return func(e *Engine) { e.progressRPS = rps }
}

// New constructs an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		client:      &http.Client{Timeout: 0},
		progressRPS: 10,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Download fetches url into dir, naming the file after the last
// non-empty path segment of url. The expected size is the response's
// Content-Length: if a file of that size already exists, Download
// returns it without reading the response body.
func (e *Engine) Download(ctx context.Context, url, dir string, sink Sink) (string, error) {
	if sink == nil {
		sink = func(Progress) {}
	}

	filename := filenameFromURL(url)
	if filename == "" {
		return "", pahkaterr.New(pahkaterr.DownloadIO, fmt.Errorf("cannot derive filename from url %q", url))
	}
	destPath := filepath.Join(dir, filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", pahkaterr.New(pahkaterr.DownloadNetwork, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", pahkaterr.New(pahkaterr.DownloadCancelled, ctx.Err())
		}
		e.recordStatus("network_error")
		return "", pahkaterr.New(pahkaterr.DownloadNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.recordStatus("network_error")
		return "", pahkaterr.New(pahkaterr.DownloadNetwork, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url))
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	if existing, statErr := os.Stat(destPath); statErr == nil && total > 0 && existing.Size() == total {
		sink(Progress{Done: total, Total: total})
		e.recordStatus("cached")
		return destPath, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		e.recordStatus("io_error")
		return "", pahkaterr.New(pahkaterr.DownloadIO, err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		e.recordStatus("io_error")
		return "", pahkaterr.New(pahkaterr.DownloadIO, err)
	}
	defer out.Close()

	limiter := rate.NewLimiter(rate.Limit(e.progressRPS), 1)
	written, err := e.copyWithProgress(ctx, out, resp.Body, total, limiter, sink)
	if err != nil {
		if ctx.Err() != nil {
			e.recordStatus("cancelled")
			return "", pahkaterr.New(pahkaterr.DownloadCancelled, ctx.Err())
		}
		e.recordStatus("io_error")
		return "", pahkaterr.New(pahkaterr.DownloadIO, err)
	}

	if e.metrics != nil {
		e.metrics.DownloadBytesTotal.Add(float64(written))
	}
	e.recordStatus("ok")
	sink(Progress{Done: written, Total: total})
	return destPath, nil
}

func (e *Engine) copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, limiter *rate.Limiter, sink Sink) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	var lastReport time.Time

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return written, writeErr
			}
			written += int64(n)

			if limiter.Allow() || lastReport.IsZero() {
				sink(Progress{Done: written, Total: total})
				lastReport = time.Now()
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

func (e *Engine) recordStatus(status string) {
	if e.metrics == nil {
		return
	}
	e.metrics.DownloadsTotal.WithLabelValues(status).Inc()
}

func filenameFromURL(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx == -1 {
		return path.Base(trimmed)
	}
	return trimmed[idx+1:]
}
