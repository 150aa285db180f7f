package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"doc-risk-eval/internal/riskapi"
)

// Config is the combined configuration of the CLI and the web front end.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Server  ServerConfig  `yaml:"server"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

// ServiceConfig points at the external analysis service.
type ServiceConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig drives the web front end.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int64    `yaml:"max_upload_mb"`
}

// HistoryConfig enables the sqlite analysis history when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Service: ServiceConfig{
			BaseURL: riskapi.DefaultBaseURL,
			Timeout: 2 * time.Minute,
		},
		Server: ServerConfig{
			Port:        "3000",
			MaxUploadMB: 25,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load layers defaults, an optional YAML file and environment variables, in
// that order. A .env file in the working directory is loaded first if present.
// An empty path falls back to DOCRISK_CONFIG.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("load .env file")
	}

	cfg := Defaults()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("DOCRISK_CONFIG"))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Service.BaseURL = getEnv("DOCRISK_API_URL", cfg.Service.BaseURL)
	if timeout := os.Getenv("DOCRISK_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Service.Timeout = d
		} else {
			logrus.WithField("value", timeout).Warn("invalid DOCRISK_TIMEOUT, keeping default")
		}
	}

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	if origins := strings.TrimSpace(os.Getenv("DOCRISK_ALLOWED_ORIGINS")); origins != "" {
		cfg.Server.AllowedOrigins = splitList(origins)
	}
	if v := strings.TrimSpace(os.Getenv("DOCRISK_MAX_UPLOAD_MB")); v != "" {
		if val, err := strconv.ParseInt(v, 10, 64); err == nil && val > 0 {
			cfg.Server.MaxUploadMB = val
		}
	}

	cfg.History.Path = getEnv("DOCRISK_HISTORY_PATH", cfg.History.Path)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

// Validate checks the combined configuration.
func (c *Config) Validate() error {
	base := strings.TrimSpace(c.Service.BaseURL)
	if base == "" {
		return errors.New("service base url is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("service base url must be http(s): %q", base)
	}
	if c.Service.Timeout < 0 {
		return errors.New("service timeout must not be negative")
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("server port is required")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// Apply configures the global logrus logger.
func (l LogConfig) Apply() {
	if level, err := logrus.ParseLevel(l.Level); err == nil {
		logrus.SetLevel(level)
	}
	if strings.EqualFold(strings.TrimSpace(l.Format), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetOutput(os.Stderr)
}

// ServiceClientConfig converts the service section into client settings.
func (c *Config) ServiceClientConfig() riskapi.Config {
	return riskapi.Config{
		BaseURL: c.Service.BaseURL,
		Timeout: c.Service.Timeout,
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
