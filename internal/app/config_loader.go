package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

const envPrefix = "FSSAMPLER"

// LoadConfig loads configuration from file, .env and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	// A missing .env is normal; values already in the environment win.
	loadDotEnv(configPath)

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.freesound-sampler")
		v.AddConfigPath("/etc/freesound-sampler")
	}

	// AutomaticEnv only sees keys viper already knows about
	setDefaults(v, config)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("freesound.api_key", envPrefix+"_FREESOUND_API_KEY", "FREESOUND_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind api key: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func loadDotEnv(configPath string) {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
}

func setDefaults(v *viper.Viper, c *domain.Config) {
	v.SetDefault("server.host", c.Server.Host)
	v.SetDefault("server.port", c.Server.Port)

	v.SetDefault("download.base_dir", c.Download.BaseDir)
	v.SetDefault("download.sounds_dir", c.Download.SoundsDir)
	v.SetDefault("download.logs_dir", c.Download.LogsDir)
	v.SetDefault("download.file_prefix", c.Download.FilePrefix)
	v.SetDefault("download.concurrent_limit", c.Download.ConcurrentLimit)
	v.SetDefault("download.max_retries", c.Download.MaxRetries)
	v.SetDefault("download.retry_delay", c.Download.RetryDelay)
	v.SetDefault("download.request_timeout", c.Download.RequestTimeout)
	v.SetDefault("download.cancel_grace", c.Download.CancelGrace)
	v.SetDefault("download.progress_interval", c.Download.ProgressInterval)
	v.SetDefault("download.embed_tags", c.Download.EmbedTags)
	v.SetDefault("download.cleanup_on_exit", c.Download.CleanupOnExit)

	v.SetDefault("freesound.api_key", c.Freesound.APIKey)
	v.SetDefault("freesound.base_url", c.Freesound.BaseURL)
	v.SetDefault("freesound.filter", c.Freesound.Filter)
	v.SetDefault("freesound.sort", c.Freesound.Sort)
	v.SetDefault("freesound.page_size", c.Freesound.PageSize)
	v.SetDefault("freesound.max_sounds", c.Freesound.MaxSounds)
	v.SetDefault("freesound.preview_format", c.Freesound.PreviewFormat)
	v.SetDefault("freesound.shuffle", c.Freesound.Shuffle)

	v.SetDefault("sampler.pads", c.Sampler.Pads)
	v.SetDefault("sampler.base_note", c.Sampler.BaseNote)
	v.SetDefault("sampler.notes_per_pad", c.Sampler.NotesPerPad)

	v.SetDefault("storage.database_path", c.Storage.DatabasePath)

	v.SetDefault("notification.enabled", c.Notification.Enabled)
	v.SetDefault("notification.method", c.Notification.Method)

	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)
	v.SetDefault("logging.output_path", c.Logging.OutputPath)
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.BaseDir = expandPath(config.Download.BaseDir)
	config.Download.SoundsDir = expandPath(config.Download.SoundsDir)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.Storage.DatabasePath = expandPath(config.Storage.DatabasePath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}
	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.BaseDir == "" {
		return fmt.Errorf("download base directory not configured")
	}

	if config.Download.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if config.Download.ConcurrentLimit < 1 {
		return fmt.Errorf("concurrent limit must be at least 1")
	}

	if config.Download.CancelGrace <= 0 {
		return fmt.Errorf("cancel grace must be positive")
	}

	if config.Freesound.MaxSounds < 1 {
		return fmt.Errorf("max sounds must be at least 1")
	}

	if config.Sampler.NotesPerPad < 1 {
		return fmt.Errorf("notes per pad must be at least 1")
	}

	if config.Sampler.BaseNote < 0 || config.Sampler.BaseNote > 127 {
		return fmt.Errorf("base note out of MIDI range: %d", config.Sampler.BaseNote)
	}

	if config.Storage.DatabasePath == "" {
		return fmt.Errorf("database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}
