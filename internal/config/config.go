package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	SLA       SLAConfig       `yaml:"sla"`
	Redis     RedisConfig     `yaml:"redis"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Suggest   SuggestConfig   `yaml:"suggest"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// TransportConfig selects how the MCP server is exposed: "http" or "stdio".
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

// AuthConfig maps bearer tokens to actor ids.
type AuthConfig struct {
	Enabled bool              `yaml:"enabled"`
	Tokens  map[string]string `yaml:"tokens"`
}

type SLAConfig struct {
	SweepInterval        time.Duration `yaml:"sweep_interval"`
	NearingDays          int           `yaml:"nearing_days"`
	CompletionWindowDays int           `yaml:"completion_window_days"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SuggestConfig struct {
	TaxonomyPath     string `yaml:"taxonomy_path"`
	MaxExtraKeywords int    `yaml:"max_extra_keywords"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "curator.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		SLA: SLAConfig{
			SweepInterval:        5 * time.Minute,
			NearingDays:          3,
			CompletionWindowDays: 7,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Channel: "curator:notifications",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Suggest: SuggestConfig{
			MaxExtraKeywords: 5,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, an optional
// .env file and environment variables, in that order of precedence.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path := os.Getenv("CURATOR_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	if c.SLA.SweepInterval <= 0 {
		return fmt.Errorf("sla sweep interval must be positive")
	}
	if c.SLA.NearingDays <= 0 || c.SLA.CompletionWindowDays <= 0 {
		return fmt.Errorf("sla day thresholds must be positive")
	}
	if c.Auth.Enabled && len(c.Auth.Tokens) == 0 {
		return fmt.Errorf("auth enabled without tokens")
	}
	return nil
}

// CompletionWindow returns the completion window as a duration.
func (c SLAConfig) CompletionWindow() time.Duration {
	return time.Duration(c.CompletionWindowDays) * 24 * time.Hour
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("CURATOR_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("CURATOR_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid CURATOR_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("CURATOR_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("CURATOR_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if path := os.Getenv("CURATOR_LOG_PATH"); path != "" {
		cfg.Log.Path = path
	}
	if mode := os.Getenv("CURATOR_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = strings.ToLower(mode)
	}
	if tokens := os.Getenv("CURATOR_AUTH_TOKENS"); tokens != "" {
		parsed, err := parseTokens(tokens)
		if err != nil {
			return err
		}
		cfg.Auth.Tokens = parsed
		cfg.Auth.Enabled = true
	}
	if v := os.Getenv("CURATOR_SLA_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CURATOR_SLA_SWEEP_INTERVAL: %w", err)
		}
		cfg.SLA.SweepInterval = d
	}
	if v := os.Getenv("CURATOR_SLA_NEARING_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CURATOR_SLA_NEARING_DAYS: %w", err)
		}
		cfg.SLA.NearingDays = days
	}
	if addr := os.Getenv("CURATOR_REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if pw := os.Getenv("CURATOR_REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if v := os.Getenv("CURATOR_METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CURATOR_METRICS_ENABLED: %w", err)
		}
		cfg.Metrics.Enabled = enabled
	}
	if path := os.Getenv("CURATOR_TAXONOMY_PATH"); path != "" {
		cfg.Suggest.TaxonomyPath = path
	}
	return nil
}

// parseTokens reads "token:actor" pairs separated by commas.
func parseTokens(raw string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, actor, ok := strings.Cut(pair, ":")
		if !ok || token == "" || actor == "" {
			return nil, fmt.Errorf("invalid CURATOR_AUTH_TOKENS entry %q", pair)
		}
		tokens[token] = actor
	}
	return tokens, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
