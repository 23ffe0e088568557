package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezone validation must not depend on the host zoneinfo

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Known task sources. Mirrors types.TaskSource without importing it so the
// config package stays a leaf.
var knownTaskSources = map[string]bool{
	"persisted": true,
	"virtual":   true,
}

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Generator    GeneratorConfig    `yaml:"generator"`
	Auth         AuthConfig         `yaml:"auth"`
	Progress     ProgressConfig     `yaml:"progress"`
	Adaptive     AdaptiveConfig     `yaml:"adaptive"`
	Achievements AchievementsConfig `yaml:"achievements"`
	Log          LogConfig          `yaml:"log"`
	Backup       BackupConfig       `yaml:"backup"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// GeneratorConfig contains settings for the AI suggestion collaborator.
// An empty APIKey means suggestions are rule-based only.
type GeneratorConfig struct {
	APIKey      string   `yaml:"-"` // env-only, never in YAML
	Model       string   `yaml:"model"`
	Timeout     Duration `yaml:"timeout"`
	Temperature float64  `yaml:"temperature"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// ProgressConfig contains progress aggregation settings.
type ProgressConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// AdaptiveConfig contains pace analysis settings.
type AdaptiveConfig struct {
	TaskSources   []string `yaml:"task_sources"`
	RatePerMinute float64  `yaml:"rate_per_minute"`
	Burst         int      `yaml:"burst"`
}

// AchievementsConfig contains achievement evaluation settings.
type AchievementsConfig struct {
	Timezone string `yaml:"timezone"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BackupConfig contains S3-compatible backup storage settings.
// An empty Bucket keeps backups local-only.
type BackupConfig struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"-"` // env-only
	SecretKey string `yaml:"-"` // env-only
	UseSSL    *bool  `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`

	// Dir receives local copies; Interval > 0 enables scheduled backups.
	Dir      string   `yaml:"dir"`
	Interval Duration `yaml:"interval"`
}

// Location resolves the configured achievements timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Achievements.Timezone)
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → .env → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	return load(true)
}

// LoadOperator loads configuration for offline CLI commands. It applies the
// same sources and checks as Load but does not require the service API key.
func LoadOperator() (*Config, error) {
	return load(false)
}

func load(requireAuth bool) (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("PATHWISE_CONFIG_PATH", "config/pathwise.yaml")

	// Missing file is not an error
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	if err := loadDotEnv(getEnv("PATHWISE_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(requireAuth); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit config paths.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	// File must exist for this function
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(true); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	useSSL := true
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "data/pathwise.db",
		},
		Generator: GeneratorConfig{
			Model:       "gpt-4o-mini",
			Timeout:     Duration(15 * time.Second),
			Temperature: 0.7,
		},
		Progress: ProgressConfig{
			MaxAttempts: 3,
		},
		Adaptive: AdaptiveConfig{
			TaskSources:   []string{"persisted", "virtual"},
			RatePerMinute: 6,
			Burst:         3,
		},
		Achievements: AchievementsConfig{
			Timezone: "UTC",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Backup: BackupConfig{
			Region: "us-east-1",
			UseSSL: &useSSL,
			Prefix: "backups",
			Dir:    "data/backups",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// loadDotEnv populates the process environment from a .env file if it exists.
// Variables already present in the environment are never overwritten.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("parsing env file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("PATHWISE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PATHWISE_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = Duration(d)
		}
	}
	if v := os.Getenv("PATHWISE_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = Duration(d)
		}
	}
	if v := os.Getenv("PATHWISE_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ShutdownTimeout = Duration(d)
		}
	}

	// Database
	if v := os.Getenv("PATHWISE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Generator (OPENAI_API_KEY is industry convention)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Generator.APIKey = v
	}
	if v := os.Getenv("PATHWISE_GENERATOR_MODEL"); v != "" {
		cfg.Generator.Model = v
	}
	if v := os.Getenv("PATHWISE_GENERATOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Generator.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("PATHWISE_GENERATOR_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Generator.Temperature = f
		}
	}

	// Auth
	if v := os.Getenv("PATHWISE_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}

	// Progress
	if v := os.Getenv("PATHWISE_PROGRESS_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Progress.MaxAttempts = n
		}
	}

	// Adaptive
	if v := os.Getenv("PATHWISE_TASK_SOURCES"); v != "" {
		cfg.Adaptive.TaskSources = splitList(v)
	}
	if v := os.Getenv("PATHWISE_ANALYZE_RATE_PER_MINUTE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Adaptive.RatePerMinute = f
		}
	}
	if v := os.Getenv("PATHWISE_ANALYZE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Adaptive.Burst = n
		}
	}

	// Achievements
	if v := os.Getenv("PATHWISE_TIMEZONE"); v != "" {
		cfg.Achievements.Timezone = v
	}

	// Log
	if v := os.Getenv("PATHWISE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PATHWISE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	// Backup
	if v := os.Getenv("PATHWISE_BACKUP_BUCKET"); v != "" {
		cfg.Backup.Bucket = v
	}
	if v := os.Getenv("PATHWISE_S3_ENDPOINT"); v != "" {
		cfg.Backup.Endpoint = v
	}
	if v := os.Getenv("PATHWISE_S3_REGION"); v != "" {
		cfg.Backup.Region = v
	}
	if v := os.Getenv("PATHWISE_S3_ACCESS_KEY"); v != "" {
		cfg.Backup.AccessKey = v
	}
	if v := os.Getenv("PATHWISE_S3_SECRET_KEY"); v != "" {
		cfg.Backup.SecretKey = v
	}
	if v := os.Getenv("PATHWISE_S3_USE_SSL"); v != "" {
		useSSL := v == "true" || v == "1"
		cfg.Backup.UseSSL = &useSSL
	}
	if v := os.Getenv("PATHWISE_BACKUP_PREFIX"); v != "" {
		cfg.Backup.Prefix = v
	}
	if v := os.Getenv("PATHWISE_BACKUP_DIR"); v != "" {
		cfg.Backup.Dir = v
	}
	if v := os.Getenv("PATHWISE_BACKUP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backup.Interval = Duration(d)
		}
	}
}

// validate checks that configuration values are usable.
// In dev mode (PATHWISE_DEV_MODE=true), API key validation is skipped.
func (c *Config) validate(requireAuth bool) error {
	if c.Progress.MaxAttempts < 1 {
		return fmt.Errorf("progress.max_attempts must be at least 1, got %d", c.Progress.MaxAttempts)
	}
	if len(c.Adaptive.TaskSources) == 0 {
		return errors.New("adaptive.task_sources must not be empty")
	}
	for _, src := range c.Adaptive.TaskSources {
		if !knownTaskSources[src] {
			return fmt.Errorf("adaptive.task_sources: unknown source %q", src)
		}
	}
	if c.Backup.Interval < 0 {
		return errors.New("backup.interval must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("achievements.timezone: %w", err)
	}

	if !requireAuth || os.Getenv("PATHWISE_DEV_MODE") == "true" {
		return nil
	}

	if c.Auth.APIKey == "" {
		return errors.New("PATHWISE_API_KEY is required")
	}
	return nil
}

// splitList parses a comma-separated env value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
