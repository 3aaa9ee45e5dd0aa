// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the Parley service.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings. It is passed explicitly to
// NewServer so registries and transports never reach for ambient state.
type Config struct {
	// Addr is the TCP listen address for the line protocol.
	Addr string
	// GatewayAddr is the HTTP listen address for the WebSocket gateway.
	// Empty disables the gateway.
	GatewayAddr    string
	AllowedOrigins []string
	// RoomCapacity is the maximum number of members per room.
	RoomCapacity int
	// RoomIdleTTL is how long an empty room survives before eviction.
	RoomIdleTTL  time.Duration
	MaxLineBytes int
	RateLimit    RateLimitConfig
	LogLevel     string
}

func defaultConfig() Config {
	return Config{
		Addr:        ":4000",
		GatewayAddr: "",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		RoomCapacity: 5,
		RoomIdleTTL:  60 * time.Second,
		MaxLineBytes: 4096,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		LogLevel: "info",
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = ":4000"
	}

	if cfg.RoomCapacity <= 0 {
		cfg.RoomCapacity = 5
	}

	if cfg.RoomIdleTTL <= 0 {
		cfg.RoomIdleTTL = 60 * time.Second
	}

	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = 4096
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 5
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		cfg.Addr = addr
	}

	if addr := os.Getenv("GATEWAY_ADDR"); addr != "" {
		cfg.GatewayAddr = addr
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if capacity := os.Getenv("ROOM_CAPACITY"); capacity != "" {
		cfg.RoomCapacity = parseIntValue(capacity, cfg.RoomCapacity)
	}

	if ttl := os.Getenv("ROOM_IDLE_TTL_SECONDS"); ttl != "" {
		cfg.RoomIdleTTL = parseSeconds(ttl, cfg.RoomIdleTTL)
	}

	if maxLine := os.Getenv("MAX_LINE_BYTES"); maxLine != "" {
		cfg.MaxLineBytes = parseIntValue(maxLine, cfg.MaxLineBytes)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
