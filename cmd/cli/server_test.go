package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// readyAfter answers /ready with 503 until it has been asked n times
func readyAfter(t *testing.T, n int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ready" {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) < n {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestLauncher_EnsureSkipsSpawnWhenReady(t *testing.T) {
	server, calls := readyAfter(t, 1)
	t.Setenv(serverBinaryEnv, filepath.Join(t.TempDir(), "missing"))

	l := newLauncher(server.URL, "", zap.NewNop())
	require.NoError(t, l.ensure(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestLauncher_WaitReadyPolls(t *testing.T) {
	server, calls := readyAfter(t, 3)
	l := newLauncher(server.URL, "", zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.waitReady(ctx, make(chan struct{})))
	assert.Equal(t, int32(3), calls.Load())
}

func TestLauncher_WaitReadyStopsWhenProcessExits(t *testing.T) {
	server, _ := readyAfter(t, 1000)
	l := newLauncher(server.URL, "", zap.NewNop())

	exited := make(chan struct{})
	close(exited)
	err := l.waitReady(context.Background(), exited)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited")
}

func TestLauncher_WaitReadyTimesOut(t *testing.T) {
	l := newLauncher("http://127.0.0.1:1", "", zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	assert.Error(t, l.waitReady(ctx, make(chan struct{})))
}

func TestLauncher_Binary(t *testing.T) {
	l := newLauncher("", "", zap.NewNop())

	bin := filepath.Join(t.TempDir(), serverBinary)
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755))
	t.Setenv(serverBinaryEnv, bin)
	got, err := l.binary()
	require.NoError(t, err)
	assert.Equal(t, bin, got)

	t.Setenv(serverBinaryEnv, filepath.Join(t.TempDir(), "nope"))
	_, err = l.binary()
	assert.Error(t, err)
}
