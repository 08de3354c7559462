package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the settings cityguide reads at startup.
type Config struct {
	APIURL            string
	AuthToken         string
	LogPath           string
	LogLevel          string
	MetricsAddr       string
	RequestsPerSecond float64
	ProbeInterval     time.Duration
}

const (
	defaultConfigPath    = "~/.config/cityguide/config.toml"
	defaultLogPath       = "~/.local/share/cityguide/cityguide.log"
	defaultLogLevel      = "info"
	defaultProbeInterval = 5 * time.Second

	envAPIURL    = "CITYGUIDE_API_URL"
	envAuthToken = "CITYGUIDE_AUTH_TOKEN"
)

// ErrMissingAPIURL and ErrMissingAuthToken are returned by Validate.
var (
	ErrMissingAPIURL    = errors.New("api_url is required")
	ErrMissingAuthToken = errors.New("auth_token is required")
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		LogPath:       mustExpand(defaultLogPath),
		LogLevel:      defaultLogLevel,
		ProbeInterval: defaultProbeInterval,
	}
}

// Load locates and parses the config file, falling back to defaults when
// missing. Environment overrides are applied last.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL               string  `toml:"api_url"`
		AuthToken            string  `toml:"auth_token"`
		LogPath              string  `toml:"log_path"`
		LogLevel             string  `toml:"log_level"`
		MetricsAddr          string  `toml:"metrics_addr"`
		RequestsPerSecond    float64 `toml:"requests_per_second"`
		ProbeIntervalSeconds int     `toml:"probe_interval_seconds"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.APIURL = strings.TrimSpace(raw.APIURL)
	cfg.AuthToken = strings.TrimSpace(raw.AuthToken)
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	if logPath := strings.TrimSpace(raw.LogPath); logPath != "" {
		cfg.LogPath = mustExpand(logPath)
	}
	if level := strings.TrimSpace(raw.LogLevel); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if raw.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = raw.RequestsPerSecond
	}
	if raw.ProbeIntervalSeconds > 0 {
		cfg.ProbeInterval = time.Duration(raw.ProbeIntervalSeconds) * time.Second
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(envAPIURL)); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envAuthToken)); v != "" {
		c.AuthToken = v
	}
}

// Validate reports settings the app cannot start without.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return ErrMissingAPIURL
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("api_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url %q must be an http(s) URL", c.APIURL)
	}
	if c.AuthToken == "" {
		return ErrMissingAuthToken
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
