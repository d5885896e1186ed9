package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	serverBinary    = "freesound-sampler-server"
	serverBinaryEnv = "FSSAMPLER_SERVER_BIN"
	startTimeout    = 10 * time.Second
	pollInterval    = 200 * time.Millisecond
)

// launcher brings up a local sampler server on demand
type launcher struct {
	baseURL string
	config  string
	probe   *http.Client
	log     *zap.Logger
}

func newLauncher(baseURL, config string, log *zap.Logger) *launcher {
	return &launcher{
		baseURL: baseURL,
		config:  config,
		probe:   &http.Client{Timeout: time.Second},
		log:     log,
	}
}

// ready reports whether the server answers /ready, i.e. is up with its database
func (l *launcher) ready(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/ready", nil)
	if err != nil {
		return false
	}
	resp, err := l.probe.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// binary resolves the server executable: $FSSAMPLER_SERVER_BIN, then the
// CLI's own directory, then PATH
func (l *launcher) binary() (string, error) {
	if p := os.Getenv(serverBinaryEnv); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s=%s: %w", serverBinaryEnv, p, err)
		}
		return p, nil
	}
	if self, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(self), serverBinary)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	if p, err := exec.LookPath(serverBinary); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("%s not found next to the CLI or in PATH (set %s)", serverBinary, serverBinaryEnv)
}

// spawn starts the server in its own process group. The returned channel is
// closed if the process exits.
func (l *launcher) spawn() (<-chan struct{}, error) {
	bin, err := l.binary()
	if err != nil {
		return nil, err
	}
	args := []string{"-foreground"}
	if l.config != "" {
		args = append(args, "-config", l.config)
	}
	cmd := exec.Command(bin, args...)
	setSysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", bin, err)
	}
	l.log.Debug("Spawned server", zap.String("binary", bin), zap.Int("pid", cmd.Process.Pid))

	exited := make(chan struct{})
	go func() {
		cmd.Wait()
		close(exited)
	}()
	return exited, nil
}

// waitReady polls until the server is ready, the process exits or ctx ends
func (l *launcher) waitReady(ctx context.Context, exited <-chan struct{}) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if l.ready(ctx) {
			return nil
		}
		select {
		case <-exited:
			return errors.New("server exited during startup, run it with -foreground to see why")
		case <-ctx.Done():
			return fmt.Errorf("server not ready after %v", startTimeout)
		case <-ticker.C:
		}
	}
}

// ensure starts the server unless one is already answering
func (l *launcher) ensure(ctx context.Context) error {
	if l.ready(ctx) {
		return nil
	}
	fmt.Fprintln(os.Stderr, "Starting sampler server...")

	exited, err := l.spawn()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := l.waitReady(ctx, exited); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Sampler server ready")
	return nil
}
