package domain

import (
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Freesound    FreesoundConfig    `mapstructure:"freesound"`
	Sampler      SamplerConfig      `mapstructure:"sampler"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	BaseDir          string        `mapstructure:"base_dir"`
	SoundsDir        string        `mapstructure:"sounds_dir"`
	LogsDir          string        `mapstructure:"logs_dir"`
	FilePrefix       string        `mapstructure:"file_prefix"`
	ConcurrentLimit  int           `mapstructure:"concurrent_limit"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	CancelGrace      time.Duration `mapstructure:"cancel_grace"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	EmbedTags        bool          `mapstructure:"embed_tags"`
	CleanupOnExit    bool          `mapstructure:"cleanup_on_exit"`
}

// FreesoundConfig contains search API configuration
type FreesoundConfig struct {
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	Filter        string `mapstructure:"filter"`
	Sort          string `mapstructure:"sort"`
	PageSize      int    `mapstructure:"page_size"`
	MaxSounds     int    `mapstructure:"max_sounds"`
	PreviewFormat string `mapstructure:"preview_format"` // hq-ogg, hq-mp3, lq-ogg, lq-mp3
	Shuffle       bool   `mapstructure:"shuffle"`
}

// SamplerConfig controls how downloaded sounds map onto MIDI notes
type SamplerConfig struct {
	Pads        int `mapstructure:"pads"`
	BaseNote    int `mapstructure:"base_note"`
	NotesPerPad int `mapstructure:"notes_per_pad"`
}

// StorageConfig contains persistence configuration
type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// SoundsPath returns the directory batches download into
func (c DownloadConfig) SoundsPath() string {
	if c.SoundsDir != "" {
		return c.SoundsDir
	}
	return filepath.Join(c.BaseDir, "sounds")
}

// LogsPath returns the directory for categorised log files
func (c DownloadConfig) LogsPath() string {
	if c.LogsDir != "" {
		return c.LogsDir
	}
	return filepath.Join(c.BaseDir, "logs")
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8090,
		},
		Download: DownloadConfig{
			BaseDir:          "$HOME/Documents/FreesoundSampler",
			SoundsDir:        "",
			LogsDir:          "",
			FilePrefix:       DefaultFilePrefix,
			ConcurrentLimit:  4,
			MaxRetries:       2,
			RetryDelay:       500 * time.Millisecond,
			RequestTimeout:   30 * time.Second,
			CancelGrace:      2 * time.Second,
			ProgressInterval: 100 * time.Millisecond,
			EmbedTags:        false,
			CleanupOnExit:    true,
		},
		Freesound: FreesoundConfig{
			BaseURL:       "https://freesound.org/apiv2",
			Filter:        "duration:[0 TO 0.5]",
			Sort:          "score",
			PageSize:      150,
			MaxSounds:     16,
			PreviewFormat: "hq-ogg",
			Shuffle:       true,
		},
		Sampler: SamplerConfig{
			Pads:        16,
			BaseNote:    36,
			NotesPerPad: 1,
		},
		Storage: StorageConfig{
			DatabasePath: "$HOME/Documents/FreesoundSampler/sampler.db",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
