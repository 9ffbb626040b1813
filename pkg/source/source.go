// Package source fetches authorization exports from files or URLs and owns the
// loaded dataset together with its per-window snapshot cache.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrFetch wraps every failure to obtain the raw bytes of an export.
var ErrFetch = errors.New("fetch failed")

const (
	defaultTimeout       = 30 * time.Second
	defaultRetries       = 3
	defaultRetryInterval = 250 * time.Millisecond
	maxBodyBytes         = 256 << 20
)

// Source yields the raw bytes of one export and the file name they came from.
type Source interface {
	Fetch(ctx context.Context) (name string, data []byte, err error)
}

// New picks a source for a location: http(s) URLs are fetched over HTTP,
// everything else is read from disk.
func New(location string, opts FetchOptions) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return &HTTPSource{
			URL:           location,
			Timeout:       opts.Timeout,
			Retries:       opts.Retries,
			RetryInterval: opts.RetryInterval,
			Logger:        opts.Logger,
		}
	}
	return FileSource{Path: location}
}

// FetchOptions configures remote fetching.
type FetchOptions struct {
	Timeout       time.Duration
	Retries       int
	RetryInterval time.Duration
	Logger        *slog.Logger
}

// FileSource reads an export from the local filesystem.
type FileSource struct {
	Path string
}

// Fetch reads the file.
func (f FileSource) Fetch(ctx context.Context) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, fmt.Errorf("%w: %s: %w", ErrFetch, f.Path, err)
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return f.Path, data, nil
}

// BytesSource serves an export already held in memory, such as a browser upload.
type BytesSource struct {
	Name string
	Data []byte
}

// Fetch returns the held bytes.
func (b BytesSource) Fetch(context.Context) (string, []byte, error) {
	return b.Name, b.Data, nil
}

// HTTPSource downloads an export with GET. Network errors, 429 and 5xx
// responses are retried with exponential backoff; other statuses fail at once.
type HTTPSource struct {
	URL    string
	Client *http.Client
	// Timeout bounds the whole fetch including retries. Zero means 30s.
	Timeout time.Duration
	// Retries is the number of attempts after the first. Negative disables retries.
	Retries       int
	RetryInterval time.Duration
	// MaxBytes caps the response body; larger exports fail. Zero means 256MB.
	MaxBytes int64
	Logger   *slog.Logger
}

// Fetch downloads the export.
func (h *HTTPSource) Fetch(ctx context.Context) (string, []byte, error) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var data []byte
	attempt := 0
	op := func() error {
		attempt++
		body, err := h.get(ctx, client)
		if err != nil {
			return err
		}
		data = body
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Debug("retrying export fetch", "url", h.URL, "attempt", attempt, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, h.policy(ctx), notify); err != nil {
		return "", nil, fmt.Errorf("%w: %s: %w", ErrFetch, h.URL, err)
	}
	logger.Debug("fetched export", "url", h.URL, "bytes", len(data), "attempts", attempt)
	return h.name(), data, nil
}

func (h *HTTPSource) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = h.RetryInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = defaultRetryInterval
	}
	b.MaxElapsedTime = 0

	retries := h.Retries
	switch {
	case retries < 0:
		retries = 0
	case retries == 0:
		retries = defaultRetries
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

func (h *HTTPSource) get(ctx context.Context, client *http.Client) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	limit := h.MaxBytes
	if limit <= 0 {
		limit = maxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, backoff.Permanent(fmt.Errorf("export exceeds %d bytes", limit))
	}
	return body, nil
}

// name derives a file name from the URL path so CSV downloads still match a sheet.
func (h *HTTPSource) name() string {
	p := h.URL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return path.Base(p)
}
