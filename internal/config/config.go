package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ElasticConfig holds the document store connection settings.
// Every port in Ports is combined with Host and Scheme into one endpoint.
type ElasticConfig struct {
	Host           string
	Ports          []int
	Scheme         string
	Username       string
	Password       string
	Index          string
	RequestTimeout time.Duration
}

// Addresses returns the endpoint URLs the store client is built from.
func (c ElasticConfig) Addresses() []string {
	out := make([]string, 0, len(c.Ports))
	for _, p := range c.Ports {
		out = append(out, fmt.Sprintf("%s://%s:%d", c.Scheme, c.Host, p))
	}
	return out
}

// CatalogConfig holds settings for the site/category catalog service.
type CatalogConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// LogConfig controls the process-wide slog handler.
type LogConfig struct {
	Level     string
	Format    string
	AddSource bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port    string
	Log     LogConfig
	Elastic ElasticConfig
	Catalog CatalogConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port: getEnv("PORT", "8080"),
		Log: LogConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			Format:    getEnv("LOG_FORMAT", "json"),
			AddSource: getEnvBool("LOG_ADD_SOURCE", false),
		},
		Elastic: ElasticConfig{
			Host:           getEnv("ES_HOST", "localhost"),
			Ports:          getEnvIntList("ES_PORTS", []int{9200, 9201}),
			Scheme:         getEnv("ES_SCHEME", "http"),
			Username:       getEnv("ES_USERNAME", ""),
			Password:       getEnv("ES_PASSWORD", ""),
			Index:          getEnv("ES_INDEX", "itemdata"),
			RequestTimeout: getEnvDuration("ES_REQUEST_TIMEOUT", 10*time.Second),
		},
		Catalog: CatalogConfig{
			BaseURL:   strings.TrimRight(getEnv("CATALOG_BASE_URL", "https://api.mercadolibre.com"), "/"),
			UserAgent: getEnv("CATALOG_USER_AGENT", "itemdocs/1.0"),
			Timeout:   getEnvDuration("CATALOG_TIMEOUT", 5*time.Second),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("750ms", "5s") or a bare
// number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs := getEnvInt(key, 0); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}

// getEnvIntList parses a comma-separated list. Any malformed entry makes the
// whole value fall back to def.
func getEnvIntList(key string, def []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return def
		}
		out = append(out, i)
	}
	return out
}
