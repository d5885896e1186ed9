package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

const defaultUserAgent = "FreesoundSampler/1.0"

// HTTPFetcher implements domain.Fetcher over HTTP(S) GET
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher with the given per-request timeout
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}
}

// progressWriter tracks bytes written and remembers the writer's own error so
// it can be told apart from read errors after io.Copy returns.
type progressWriter struct {
	ctx      context.Context
	writer   io.Writer
	total    int64
	written  int64
	writeErr error
	onUpdate domain.ProgressFunc
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	// Cancellation is polled between chunks.
	if err := pw.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if err != nil {
		pw.writeErr = err
		return n, err
	}
	if pw.onUpdate != nil {
		pw.onUpdate(pw.written, pw.total)
	}
	return n, nil
}

// Fetch streams url into w, reporting progress after every chunk
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, w io.Writer, onProgress domain.ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: invalid request: %v", domain.ErrNetwork, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return f.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrNetwork, resp.StatusCode, resp.Status)
	}

	total := resp.ContentLength
	if total < 0 {
		total = domain.UnknownSize
	}
	if onProgress != nil {
		onProgress(0, total)
	}

	pw := &progressWriter{
		ctx:      ctx,
		writer:   w,
		total:    total,
		onUpdate: onProgress,
	}

	_, err = io.Copy(pw, resp.Body)
	if err != nil {
		if pw.writeErr != nil {
			return pw.writeErr
		}
		return f.transportError(ctx, err)
	}

	if total > 0 && pw.written != total {
		return fmt.Errorf("%w: short body: got %d of %d bytes", domain.ErrNetwork, pw.written, total)
	}

	return nil
}

func (f *HTTPFetcher) transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
}
