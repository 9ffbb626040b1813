// Package config loads sapauth settings from defaults, environment and sapauth.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"sapauth/pkg/engine"
)

const (
	envPrefix    = "SAPAUTH"
	maxWalkDepth = 25
)

var configNames = []string{"sapauth.yaml", "sapauth.yml"}

// Config is the effective configuration.
type Config struct {
	// Source is the default export location, a file path or an http(s) URL.
	Source string       `mapstructure:"source" json:"source"`
	Fetch  FetchConfig  `mapstructure:"fetch" json:"fetch"`
	Rules  engine.Rules `mapstructure:"rules" json:"rules"`
	Cache  CacheConfig  `mapstructure:"cache" json:"cache"`
	Log    LogConfig    `mapstructure:"log" json:"log"`
}

// FetchConfig controls remote fetching.
type FetchConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" json:"timeout"`
	Retries       int           `mapstructure:"retries" json:"retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval" json:"retryInterval"`
}

// CacheConfig sizes the windowed snapshot cache.
type CacheConfig struct {
	Size int `mapstructure:"size" json:"size"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string `mapstructure:"format" json:"format"`
	Level  string `mapstructure:"level" json:"level"`
}

// LoadConfig loads configuration with precedence env > config file > defaults.
// A .env file is read into the process environment first; envFile names it
// explicitly, otherwise ./.env is used when present.
//
// Returns the config, the config file path (empty if none was found), and any error.
func LoadConfig(explicitConfigPath, envFile string) (*Config, string, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, "", err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, configPath, err
	}
	return &cfg, configPath, nil
}

func loadEnvFile(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	rules := engine.DefaultRules()

	v.SetDefault("source", "")

	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.retries", 3)
	v.SetDefault("fetch.retry_interval", 250*time.Millisecond)

	v.SetDefault("rules.dormancy_days", rules.DormancyDays)
	v.SetDefault("rules.optimization_threshold", *rules.OptimizationThreshold)
	v.SetDefault("rules.critical_keywords", rules.CriticalKeywords)
	v.SetDefault("rules.administrator_lock_reason", rules.AdministratorLockReason)
	v.SetDefault("rules.default_group", rules.DefaultGroup)

	v.SetDefault("cache.size", 32)

	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "warn")
}

// Validate rejects values no command can work with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("fetch.retries must not be negative, got %d", c.Fetch.Retries)
	}
	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive, got %d", c.Cache.Size)
	}
	if t := c.Rules.OptimizationThreshold; t != nil && (*t < 0 || *t > 100) {
		return fmt.Errorf("rules.optimization_threshold must be within 0..100, got %d", *t)
	}
	if c.Rules.DormancyDays < 0 {
		return fmt.Errorf("rules.dormancy_days must not be negative, got %d", c.Rules.DormancyDays)
	}
	return nil
}

// findConfigFile returns explicitPath if it exists. Otherwise it walks up from
// the working directory looking for sapauth.yaml or sapauth.yml, stopping at a
// .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}
