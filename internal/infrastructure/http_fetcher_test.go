package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

type failingWriter struct{}

var errDiskFull = errors.New("disk full")

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errDiskFull
}

func TestHTTPFetcher_Success(t *testing.T) {
	payload := bytes.Repeat([]byte("a"), 64*1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5 * time.Second)
	var buf bytes.Buffer
	var lastWritten, lastTotal int64
	err := fetcher.Fetch(context.Background(), server.URL, &buf, func(written, total int64) {
		lastWritten, lastTotal = written, total
	})

	require.NoError(t, err)
	assert.Equal(t, payload, buf.Bytes())
	assert.Equal(t, int64(len(payload)), lastWritten)
	assert.Equal(t, int64(len(payload)), lastTotal)
}

func TestHTTPFetcher_NotFoundIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	err := NewHTTPFetcher(5*time.Second).Fetch(context.Background(), server.URL, &bytes.Buffer{}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Contains(t, err.Error(), "404")
}

func TestHTTPFetcher_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := NewHTTPFetcher(time.Second).Fetch(context.Background(), url, &bytes.Buffer{}, nil)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestHTTPFetcher_WriterErrorPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	err := NewHTTPFetcher(5*time.Second).Fetch(context.Background(), server.URL, failingWriter{}, nil)
	assert.ErrorIs(t, err, errDiskFull)
	assert.NotErrorIs(t, err, domain.ErrNetwork)
}

func TestHTTPFetcher_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	err := NewHTTPFetcher(10*time.Second).Fetch(ctx, server.URL, &bytes.Buffer{}, nil)

	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTPFetcher_UnknownLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush() // forces chunked encoding
		w.Write([]byte("chunked body"))
	}))
	defer server.Close()

	var total int64
	var buf bytes.Buffer
	err := NewHTTPFetcher(5*time.Second).Fetch(context.Background(), server.URL, &buf, func(_, t int64) { total = t })

	require.NoError(t, err)
	assert.Equal(t, domain.UnknownSize, total)
	assert.Equal(t, "chunked body", buf.String())
}
