// Package config loads the antispoof server configuration.
//
// The file is YAML. Missing fields keep the values from Default, then the
// whole tree is validated section by section. A .env file next to the
// working directory is loaded first so that secrets can come from the
// environment:
//
//	ANTISPOOF_S3_ACCESS_KEY, ANTISPOOF_S3_SECRET_KEY  archive credentials
//	ANTISPOOF_MODEL_PATH                              overrides model.path
//	ANTISPOOF_ORT_LIB                                 overrides model.shared_library
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	Decode  DecodeConfig  `yaml:"decode"`
	Storage StorageConfig `yaml:"storage"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Address           string        `yaml:"address"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
}

// ModelConfig describes the classifier
type ModelConfig struct {
	Path          string `yaml:"path"`
	SharedLibrary string `yaml:"shared_library"`
	InputName     string `yaml:"input_name"`
	OutputName    string `yaml:"output_name"`
	Watch         bool   `yaml:"watch"`

	// Seed pins segment offsets when non-nil.
	Seed *uint64 `yaml:"seed"`
}

// DecodeConfig selects decode strategies
type DecodeConfig struct {
	FFmpegPath    string `yaml:"ffmpeg_path"`
	FFprobePath   string `yaml:"ffprobe_path"`
	DisableFFmpeg bool   `yaml:"disable_ffmpeg"`
	DisableNative bool   `yaml:"disable_native"`

	// ResampleQuality is one of medium, high, very_high.
	ResampleQuality string `yaml:"resample_quality"`
}

// StorageConfig covers upload staging and archiving
type StorageConfig struct {
	StagingDir      string        `yaml:"staging_dir"`
	MaxFileAge      time.Duration `yaml:"max_file_age"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	Archive         S3Config      `yaml:"archive"`
}

// S3Config configures the optional upload archive
type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// HistoryConfig configures the prediction store
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig toggles the /metrics endpoint
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultExtensions are the upload extensions accepted by default.
var DefaultExtensions = []string{".wav", ".mp3", ".flac", ".ogg", ".m4a"}

// Default returns the configuration used for absent fields.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:           ":8000",
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxUploadBytes:    50 << 20,
			AllowedExtensions: slices.Clone(DefaultExtensions),
		},
		Model: ModelConfig{
			Path:       "weights/model.onnx",
			InputName:  "input",
			OutputName: "output",
		},
		Decode: DecodeConfig{
			ResampleQuality: "high",
		},
		Storage: StorageConfig{
			StagingDir:      "uploads",
			MaxFileAge:      time.Hour,
			CleanupInterval: 30 * time.Minute,
			Archive: S3Config{
				Region: "us-east-1",
				Prefix: "antispoof",
			},
		},
		History: HistoryConfig{
			Enabled: true,
			Dir:     "data/history",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads and parses the configuration file. An empty path yields the
// defaults plus environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ApplyEnv fills values from the environment. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("ANTISPOOF_MODEL_PATH"); v != "" {
		c.Model.Path = v
	}
	if v := getenv("ANTISPOOF_ORT_LIB"); v != "" {
		c.Model.SharedLibrary = v
	}
	if v := getenv("ANTISPOOF_S3_ACCESS_KEY"); v != "" && c.Storage.Archive.AccessKey == "" {
		c.Storage.Archive.AccessKey = v
	}
	if v := getenv("ANTISPOOF_S3_SECRET_KEY"); v != "" && c.Storage.Archive.SecretKey == "" {
		c.Storage.Archive.SecretKey = v
	}
}

// Validate performs validation of the whole configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model config: %w", err)
	}
	if err := c.Decode.Validate(); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if s.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", s.MaxUploadBytes)
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.ShutdownTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	if len(s.AllowedExtensions) == 0 {
		return fmt.Errorf("allowed_extensions cannot be empty")
	}
	for i, ext := range s.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("allowed_extensions[%d] must start with '.', got %q", i, ext)
		}
		s.AllowedExtensions[i] = strings.ToLower(ext)
	}
	return nil
}

// Validate validates model configuration
func (m *ModelConfig) Validate() error {
	if m.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if m.InputName == "" || m.OutputName == "" {
		return fmt.Errorf("input_name and output_name cannot be empty")
	}
	return nil
}

// Validate validates decode configuration
func (d *DecodeConfig) Validate() error {
	if d.DisableFFmpeg && d.DisableNative {
		return fmt.Errorf("at least one of ffmpeg and native decoding must be enabled")
	}
	switch d.ResampleQuality {
	case "", "medium", "high", "very_high":
	default:
		return fmt.Errorf("resample_quality must be medium, high or very_high, got %q", d.ResampleQuality)
	}
	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.StagingDir == "" {
		return fmt.Errorf("staging_dir cannot be empty")
	}
	if s.MaxFileAge <= 0 {
		return fmt.Errorf("max_file_age must be positive, got %s", s.MaxFileAge)
	}
	if s.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup_interval must be positive, got %s", s.CleanupInterval)
	}
	if err := s.Archive.Validate(); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// Validate validates the archive settings when enabled
func (s *S3Config) Validate() error {
	if !s.Enabled {
		return nil
	}
	if s.Bucket == "" {
		return fmt.Errorf("bucket cannot be empty when archive is enabled")
	}
	if s.AccessKey == "" || s.SecretKey == "" {
		return fmt.Errorf("access_key and secret_key are required (or ANTISPOOF_S3_ACCESS_KEY / ANTISPOOF_S3_SECRET_KEY)")
	}
	return nil
}

// Validate validates history configuration
func (h *HistoryConfig) Validate() error {
	if h.Enabled && h.Dir == "" {
		return fmt.Errorf("dir cannot be empty when history is enabled")
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be debug, info, warn or error, got %q", l.Level)
	}
	switch l.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("format must be text or json, got %q", l.Format)
	}
	return nil
}
