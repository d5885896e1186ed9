package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/freesound-sampler-go/api"
	"github.com/yourusername/freesound-sampler-go/internal/app"
	"github.com/yourusername/freesound-sampler-go/internal/domain"
	"github.com/yourusername/freesound-sampler-go/internal/events"
	"github.com/yourusername/freesound-sampler-go/internal/infrastructure"
	"github.com/yourusername/freesound-sampler-go/pkg/logger"
)

var (
	serverMode = flag.Bool("server-mode", false, "Internal flag: run in server mode (called by daemon)")
	foreground = flag.Bool("foreground", false, "Run in the foreground instead of detaching")
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	if !*serverMode && !*foreground {
		startAsDaemon()
		return
	}

	if err := runServer(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// startAsDaemon re-executes the binary in server mode, detached from the terminal
func startAsDaemon() {
	execPath, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}

	args := []string{"-server-mode"}
	if *configPath != "" {
		args = append(args, "-config", *configPath)
	}
	cmd := exec.Command(execPath, args...)
	cmd.Dir = cwd
	cmd.Env = os.Environ()
	detach(cmd)

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", os.DevNull, err)
		os.Exit(1)
	}
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Server started as daemon (PID: %d)\n", cmd.Process.Pid)
	os.Exit(0)
}

func runServer() error {
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := createDirectories(config); err != nil {
		return err
	}

	appLog, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Category files: batch lifecycle and errors
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsPath(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize multi-logger: %w", err)
	}
	defer multiLog.Close()

	logAdapter := logger.NewLoggerAdapter(multiLog, appLog)
	defer logAdapter.Sync()
	log := logAdapter.App()

	log.Info("Starting Freesound sampler server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("sounds_dir", config.Download.SoundsPath()),
		zap.Int("concurrent_limit", config.Download.ConcurrentLimit))

	if config.Freesound.APIKey == "" {
		log.Warn("No Freesound API key configured, searches will be rejected")
	}

	repo, err := infrastructure.NewSQLiteRepository(config.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	fabric := events.NewFabric(log)

	manager := app.NewDownloadManager(
		infrastructure.NewHTTPFetcher(config.Download.RequestTimeout),
		fabric,
		app.NewMetadataWriter(log),
		repo,
		&config.Download,
		log,
	)
	manager.SetLoggerAdapter(logAdapter)
	if config.Download.EmbedTags {
		manager.SetTagger(infrastructure.NewAttributionTagger())
	}

	search := app.NewSearchService(
		infrastructure.NewFreesoundClient(&config.Freesound, config.Download.RequestTimeout, log),
		manager,
		repo,
		&config.Freesound,
		config.Download.SoundsPath(),
		log,
	)

	sampler := app.NewSamplerBuilder(&config.Sampler, config.Download.FilePrefix, manager, log)
	fabric.Subscribe(sampler, events.WithFilter(domain.EventBatchStarted, domain.EventBatchCompleted))
	fabric.Subscribe(app.NewBatchEventLogger(logAdapter),
		events.WithFilter(domain.EventProgressChanged, domain.EventBatchCompleted, domain.EventBatchCancelled))
	if config.Notification.Enabled {
		fabric.Subscribe(infrastructure.NewNotificationService(&config.Notification, log),
			events.WithFilter(domain.EventBatchCompleted, domain.EventBatchCancelled, domain.EventMetadataWriteFailed))
	}

	router := api.SetupRouterWithMultiLogger(api.Services{
		Searcher:  search,
		Batches:   manager,
		Bookmarks: search,
		Pads:      sampler,
		History:   repo,
		DB:        repo,
		Fabric:    fabric,
		LogsDir:   config.Download.LogsPath(),
	}, logAdapter)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serveErr:
		logAdapter.LogError("HTTP server failed", zap.Error(err))
		return err
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Cancel the active batch first so event stream clients see it settle
	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down download manager", zap.Error(err))
	}
	fabric.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Download.BaseDir,
		config.Download.LogsPath(),
		filepath.Dir(config.Storage.DatabasePath),
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
