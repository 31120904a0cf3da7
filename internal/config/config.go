package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all client configuration
type Config struct {
	API      APIConfig
	Realtime RealtimeConfig
	Chat     ChatConfig
	State    StateConfig
	Log      LogConfig
	Env      string
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type RealtimeConfig struct {
	URL              string
	HandshakeTimeout time.Duration
	// Reconnect backoff bounds; retries themselves are unbounded.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

type ChatConfig struct {
	HistoryLimit int
}

type StateConfig struct {
	// Path of the key-value file holding the persisted session.
	Path string
}

type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		API: APIConfig{
			BaseURL: getEnv("API_BASE_URL", "http://localhost:8080/api/v1"),
			Timeout: getEnvDuration("API_TIMEOUT", 15*time.Second),
		},
		Realtime: RealtimeConfig{
			URL:              getEnv("REALTIME_URL", "ws://localhost:8080/ws"),
			HandshakeTimeout: getEnvDuration("REALTIME_HANDSHAKE_TIMEOUT", 10*time.Second),
			ReconnectMin:     getEnvDuration("REALTIME_RECONNECT_MIN", 500*time.Millisecond),
			ReconnectMax:     getEnvDuration("REALTIME_RECONNECT_MAX", 30*time.Second),
		},
		Chat: ChatConfig{
			HistoryLimit: getEnvInt("CHAT_HISTORY_LIMIT", 50),
		},
		State: StateConfig{
			Path: getEnv("STATE_PATH", defaultStatePath()),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
		},
		Env: getEnv("ENV", "development"),
	}, nil
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".storefront/session.json"
	}
	return dir + "/storefront/session.json"
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
