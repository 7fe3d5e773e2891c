package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Sales         SalesConfig
	Relay         RelayConfig
	Storage       StorageConfig
	Observability ObservabilityConfig
	Log           LogConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
	AllowedOrigins     []string
}

type SalesConfig struct {
	CSVURL         string
	ProxyPrefix    string
	FetchTimeout   time.Duration
	Timezone       string
	ReloadSchedule string
	VenueName      string
	RulesFile      string
}

type RelayConfig struct {
	WebAppURL string
}

type StorageConfig struct {
	CachePath string
	CacheKeep int
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 10),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 20),
			AllowedOrigins:     getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Sales: SalesConfig{
			CSVURL:         getEnv("SALES_CSV_URL", ""),
			ProxyPrefix:    getEnv("SALES_PROXY_PREFIX", "https://r.jina.ai/http://"),
			FetchTimeout:   time.Duration(getEnvAsInt("SALES_FETCH_TIMEOUT_SECONDS", 20)) * time.Second,
			Timezone:       getEnv("SALES_TIMEZONE", "America/Argentina/Buenos_Aires"),
			ReloadSchedule: getEnv("SALES_RELOAD_SCHEDULE", "*/15 * * * *"),
			VenueName:      getEnv("SALES_VENUE_NAME", "OnceyDoce"),
			RulesFile:      getEnv("RULES_FILE", ""),
		},
		Relay: RelayConfig{
			WebAppURL: getEnv("GS_WEBAPP_URL", ""),
		},
		Storage: StorageConfig{
			CachePath: getEnv("SALES_CACHE_DIR", "./data/cache"),
			CacheKeep: getEnvAsInt("SALES_CACHE_KEEP", 5),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT out of range: %d", cfg.Server.Port)
	}
	if cfg.Sales.FetchTimeout <= 0 {
		return nil, errors.New("SALES_FETCH_TIMEOUT_SECONDS must be positive")
	}

	return cfg, nil
}

// Location resolves the configured sales timezone.
func (c *SalesConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load SALES_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
