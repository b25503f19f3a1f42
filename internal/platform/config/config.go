package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config mirrors the layout of config.yaml.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Search   SearchConfig   `mapstructure:"search"`
	Stats    StatsConfig    `mapstructure:"stats"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Mode          string     `mapstructure:"mode" validate:"oneof=debug release test"`
	Address       string     `mapstructure:"address" validate:"required"`
	SessionSecret string     `mapstructure:"sessionSecret"`
	Cors          CorsConfig `mapstructure:"cors"`
}

// CorsConfig holds CORS settings.
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig holds relational store and Redis settings.
type DatabaseConfig struct {
	Driver string      `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN    string      `mapstructure:"dsn" validate:"required"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// CacheConfig controls the query cache backend and expiry windows.
type CacheConfig struct {
	Backend     string        `mapstructure:"backend" validate:"oneof=redis memory"`
	TrackingTTL time.Duration `mapstructure:"trackingTTL" validate:"gt=0"`
	SearchTTL   time.Duration `mapstructure:"searchTTL" validate:"gt=0"`
	TrendingTTL time.Duration `mapstructure:"trendingTTL" validate:"gt=0"`
}

// SearchConfig selects and tunes the external search provider.
type SearchConfig struct {
	Provider          string        `mapstructure:"provider" validate:"oneof=local http"`
	BaseURL           string        `mapstructure:"baseURL" validate:"required_if=Provider http,omitempty,url"`
	APIKey            string        `mapstructure:"apiKey"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"requestsPerSecond" validate:"gt=0"`
	Burst             int           `mapstructure:"burst" validate:"gte=1"`
	MaxRetries        uint          `mapstructure:"maxRetries" validate:"gte=1"`
	BreakerFailures   uint32        `mapstructure:"breakerFailures" validate:"gte=1"`
	BreakerTimeout    time.Duration `mapstructure:"breakerTimeout" validate:"gt=0"`
	TrendingRefresh   time.Duration `mapstructure:"trendingRefresh" validate:"gt=0"`
}

// StatsConfig holds statistics settings.
type StatsConfig struct {
	Timezone string `mapstructure:"timezone" validate:"required"`
}

// LogConfig holds logger output settings.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=console json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
	Compress   bool   `mapstructure:"compress"`
}

// Location resolves the timezone used for calendar-day math.
func (s StatsConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || strings.EqualFold(s.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "mediashelf.db")
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("cache.backend", "redis")
	v.SetDefault("cache.trackingTTL", 2*time.Minute)
	v.SetDefault("cache.searchTTL", 5*time.Minute)
	v.SetDefault("cache.trendingTTL", 30*time.Minute)
	v.SetDefault("search.provider", "local")
	v.SetDefault("search.timeout", 8*time.Second)
	v.SetDefault("search.requestsPerSecond", 4.0)
	v.SetDefault("search.burst", 4)
	v.SetDefault("search.maxRetries", 3)
	v.SetDefault("search.breakerFailures", 5)
	v.SetDefault("search.breakerTimeout", 30*time.Second)
	v.SetDefault("search.trendingRefresh", 20*time.Minute)
	v.SetDefault("stats.timezone", "Local")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.maxSizeMB", 100)
	v.SetDefault("log.maxBackups", 5)
	v.SetDefault("log.maxAgeDays", 30)
}

// LoadConfig finds, loads, decodes and validates config.yaml.
// With no paths it searches ./config and then the working directory.
func LoadConfig(paths ...string) (*Config, error) {
	// 1. Load .env first; a missing file is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// 2. Config file name and search paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// 3. Env overrides, e.g. MEDIASHELF_DATABASE_DSN
	v.SetEnvPrefix("MEDIASHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Read the file; fall back to defaults when it is absent
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// 5. Decode and validate
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the decoded config.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Stats.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Stats.Timezone, err)
	}
	return nil
}
