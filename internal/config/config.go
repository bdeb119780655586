package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server       ServerConfig
	Cache        CacheConfig
	RateLimit    RateLimitConfig
	Fetch        FetchConfig
	Browser      BrowserConfig
	Alternatives AlternativesConfig
	Logging      LoggingConfig
}

type ServerConfig struct {
	Port              string
	Host              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
	RequestsPerSecond float64
}

type CacheConfig struct {
	TTL time.Duration
}

type RateLimitConfig struct {
	Window          time.Duration
	StructuredLimit int
	RenderingLimit  int
	StealthLimit    int
}

type FetchConfig struct {
	StructuredTimeout time.Duration
	RenderingTimeout  time.Duration
	StealthTimeout    time.Duration
	MaxRetries        int
	UserAgents        []string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type AlternativesConfig struct {
	Budget           time.Duration
	PerSearchTimeout time.Duration
	MaxResults       int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvOrDefault("SERVER_PORT", "8080"),
			Host:              getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:       getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      getDurationOrDefault("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestsPerSecond: getFloatOrDefault("SERVER_REQUESTS_PER_SECOND", 5),
		},
		Cache: CacheConfig{
			TTL: getDurationOrDefault("CACHE_TTL", time.Hour),
		},
		RateLimit: RateLimitConfig{
			Window:          getDurationOrDefault("RATE_LIMIT_WINDOW", time.Hour),
			StructuredLimit: getIntOrDefault("RATE_LIMIT_STRUCTURED", 60),
			RenderingLimit:  getIntOrDefault("RATE_LIMIT_RENDERING", 30),
			StealthLimit:    getIntOrDefault("RATE_LIMIT_STEALTH", 10),
		},
		Fetch: FetchConfig{
			StructuredTimeout: getDurationOrDefault("FETCH_STRUCTURED_TIMEOUT", 15*time.Second),
			RenderingTimeout:  getDurationOrDefault("FETCH_RENDERING_TIMEOUT", 45*time.Second),
			StealthTimeout:    getDurationOrDefault("FETCH_STEALTH_TIMEOUT", 60*time.Second),
			MaxRetries:        getIntOrDefault("FETCH_MAX_RETRIES", 3),
			UserAgents:        getStringSliceOrDefault("FETCH_USER_AGENTS", nil),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 45*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "America/New_York"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
		},
		Alternatives: AlternativesConfig{
			Budget:           getDurationOrDefault("ALTERNATIVES_BUDGET", 45*time.Second),
			PerSearchTimeout: getDurationOrDefault("ALTERNATIVES_SEARCH_TIMEOUT", 8*time.Second),
			MaxResults:       getIntOrDefault("ALTERNATIVES_MAX_RESULTS", 3),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}

	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}

	if c.Alternatives.MaxResults < 1 {
		return fmt.Errorf("ALTERNATIVES_MAX_RESULTS must be at least 1")
	}

	if c.Fetch.StructuredTimeout > c.Fetch.RenderingTimeout {
		return fmt.Errorf("FETCH_STRUCTURED_TIMEOUT cannot exceed FETCH_RENDERING_TIMEOUT")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
