package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultConfig []byte

// ValidAspectRatios lists the aspect ratios accepted by the image model.
var ValidAspectRatios = map[string]bool{
	"1:1": true, "2:3": true, "3:2": true, "3:4": true, "4:3": true,
	"4:5": true, "5:4": true, "9:16": true, "16:9": true, "21:9": true,
}

// ValidImageSizes lists the image size tiers.
var ValidImageSizes = map[string]bool{"1K": true, "2K": true, "4K": true}

// ValidOutputFormats lists the supported output image formats.
var ValidOutputFormats = map[string]bool{"png": true, "jpeg": true, "webp": true}

type OpenRouterConfig struct {
	APIKey   string `yaml:"api_key" env:"TRENDSTUDIO_OPENROUTER_API_KEY"`
	ProxyURL string `yaml:"proxy_url" env:"TRENDSTUDIO_OPENROUTER_PROXY_URL"`
	BaseURL  string `yaml:"base_url" env:"TRENDSTUDIO_OPENROUTER_BASE_URL"`
}

// PlaygroundConfig holds defaults for playground and batch test generations.
type PlaygroundConfig struct {
	Enabled      bool    `yaml:"enabled" env:"TRENDSTUDIO_PLAYGROUND_ENABLED"`
	Model        string  `yaml:"model" env:"TRENDSTUDIO_PLAYGROUND_MODEL"`
	Temperature  float64 `yaml:"temperature"`
	AspectRatio  string  `yaml:"aspect_ratio"`
	ImageSize    string  `yaml:"image_size"`
	OutputFormat string  `yaml:"output_format"`
	OutputDir    string  `yaml:"output_dir" env:"TRENDSTUDIO_PLAYGROUND_OUTPUT_DIR"`
	LogExchanges bool    `yaml:"log_exchanges"`
	BatchDelay   string  `yaml:"batch_delay"`
}

// GetBatchDelay returns the pause between sequential batch test requests.
// Falls back to zero if not configured or invalid.
func (p *PlaygroundConfig) GetBatchDelay() time.Duration {
	if p.BatchDelay == "" {
		return 0
	}
	d, err := time.ParseDuration(p.BatchDelay)
	if err != nil {
		return 0
	}
	return d
}

// MaintenanceConfig controls periodic cleanup of logs and temporary files.
type MaintenanceConfig struct {
	Interval           string `yaml:"interval"`
	PlaygroundLogsKeep int    `yaml:"playground_logs_keep"`
	AuditLogsKeep      int    `yaml:"audit_logs_keep"`
	TempFileTTL        string `yaml:"temp_file_ttl"`
}

// DefaultMaintenanceInterval is the default period between cleanup runs.
const DefaultMaintenanceInterval = 1 * time.Hour

// DefaultTempFileTTL is the default age after which generated files are removed.
const DefaultTempFileTTL = 24 * time.Hour

// GetInterval returns the parsed maintenance interval.
// Falls back to DefaultMaintenanceInterval if not configured or invalid.
func (m *MaintenanceConfig) GetInterval() time.Duration {
	if m.Interval == "" {
		return DefaultMaintenanceInterval
	}
	d, err := time.ParseDuration(m.Interval)
	if err != nil || d <= 0 {
		return DefaultMaintenanceInterval
	}
	return d
}

// GetTempFileTTL returns the parsed temp file TTL.
// Falls back to DefaultTempFileTTL if not configured or invalid.
func (m *MaintenanceConfig) GetTempFileTTL() time.Duration {
	if m.TempFileTTL == "" {
		return DefaultTempFileTTL
	}
	d, err := time.ParseDuration(m.TempFileTTL)
	if err != nil || d <= 0 {
		return DefaultTempFileTTL
	}
	return d
}

type CacheConfig struct {
	TrendTTL string `yaml:"trend_ttl"`
	MaxItems int64  `yaml:"max_items"`
}

// DefaultTrendTTL is how long a trend read stays cached.
const DefaultTrendTTL = 5 * time.Minute

// GetTrendTTL returns the parsed trend cache TTL.
func (c *CacheConfig) GetTrendTTL() time.Duration {
	if c.TrendTTL == "" {
		return DefaultTrendTTL
	}
	d, err := time.ParseDuration(c.TrendTTL)
	if err != nil || d <= 0 {
		return DefaultTrendTTL
	}
	return d
}

type Config struct {
	Log struct {
		Level string `yaml:"level" env:"TRENDSTUDIO_LOG_LEVEL"`
	} `yaml:"log"`
	Server struct {
		ListenPort string `yaml:"listen_port" env:"TRENDSTUDIO_SERVER_PORT"`
		BodyLimit  int64  `yaml:"body_limit"`
		Auth       struct {
			Enabled  bool   `yaml:"enabled" env:"TRENDSTUDIO_AUTH_ENABLED"`
			Username string `yaml:"username" env:"TRENDSTUDIO_AUTH_USERNAME"`
			Password string `yaml:"password" env:"TRENDSTUDIO_AUTH_PASSWORD"`
		} `yaml:"auth"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path" env:"TRENDSTUDIO_DATABASE_PATH"`
	} `yaml:"database"`
	OpenRouter  OpenRouterConfig  `yaml:"openrouter"`
	Playground  PlaygroundConfig  `yaml:"playground"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Cache       CacheConfig       `yaml:"cache"`
}

// Load loads configuration from the specified file path.
// It first loads the embedded default configuration, then merges the user config on top.
// Finally, it overrides values with environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfig, &cfg); err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			slog.Warn("config file not found, using defaults", "path", path)
		} else {
			expandedData := []byte(os.ExpandEnv(string(data)))
			if err := yaml.Unmarshal(expandedData, &cfg); err != nil {
				return nil, err
			}
			slog.Info("loaded user config", "path", path)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDefault loads the embedded default configuration.
func LoadDefault() (*Config, error) {
	return Load("")
}

// DefaultConfigBytes returns the raw embedded default configuration.
func DefaultConfigBytes() []byte {
	return defaultConfig
}

// Validate checks configuration for required fields and valid ranges.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Server.ListenPort == "" {
		errs = append(errs, errors.New("server.listen_port is required"))
	}
	if c.Server.BodyLimit < 0 {
		errs = append(errs, fmt.Errorf("server.body_limit must not be negative, got %d", c.Server.BodyLimit))
	}

	// Server auth requires username if enabled (password is auto-generated if not set)
	if c.Server.Auth.Enabled && c.Server.Auth.Username == "" {
		errs = append(errs, errors.New("server.auth.username is required when server.auth.enabled is true"))
	}

	p := &c.Playground
	if p.Enabled {
		if c.OpenRouter.APIKey == "" {
			errs = append(errs, errors.New("openrouter.api_key is required when playground.enabled is true"))
		}
		if p.Model == "" {
			errs = append(errs, errors.New("playground.model is required when playground.enabled is true"))
		}
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		errs = append(errs, fmt.Errorf("playground.temperature must be between 0 and 2, got %f", p.Temperature))
	}
	if p.AspectRatio != "" && !ValidAspectRatios[p.AspectRatio] {
		errs = append(errs, fmt.Errorf("playground.aspect_ratio: unsupported value %q", p.AspectRatio))
	}
	if p.ImageSize != "" && !ValidImageSizes[p.ImageSize] {
		errs = append(errs, fmt.Errorf("playground.image_size: must be one of '1K', '2K', '4K', got %q", p.ImageSize))
	}
	if p.OutputFormat != "" && !ValidOutputFormats[p.OutputFormat] {
		errs = append(errs, fmt.Errorf("playground.output_format: must be one of 'png', 'jpeg', 'webp', got %q", p.OutputFormat))
	}
	if p.BatchDelay != "" {
		if _, err := time.ParseDuration(p.BatchDelay); err != nil {
			errs = append(errs, fmt.Errorf("playground.batch_delay: invalid duration format %q: %w", p.BatchDelay, err))
		}
	}

	m := &c.Maintenance
	if m.Interval != "" {
		if _, err := time.ParseDuration(m.Interval); err != nil {
			errs = append(errs, fmt.Errorf("maintenance.interval: invalid duration format %q: %w", m.Interval, err))
		}
	}
	if m.TempFileTTL != "" {
		if _, err := time.ParseDuration(m.TempFileTTL); err != nil {
			errs = append(errs, fmt.Errorf("maintenance.temp_file_ttl: invalid duration format %q: %w", m.TempFileTTL, err))
		}
	}
	if m.PlaygroundLogsKeep < 0 {
		errs = append(errs, fmt.Errorf("maintenance.playground_logs_keep must not be negative, got %d", m.PlaygroundLogsKeep))
	}
	if m.AuditLogsKeep < 0 {
		errs = append(errs, fmt.Errorf("maintenance.audit_logs_keep must not be negative, got %d", m.AuditLogsKeep))
	}

	if c.Cache.TrendTTL != "" {
		if _, err := time.ParseDuration(c.Cache.TrendTTL); err != nil {
			errs = append(errs, fmt.Errorf("cache.trend_ttl: invalid duration format %q: %w", c.Cache.TrendTTL, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
