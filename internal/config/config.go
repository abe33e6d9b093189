package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds the process-level settings read from the environment.
// Channel layout and admin keys live in the server profile file instead
// (see profile.go).
type Config struct {
	AppEnv            string
	Addr              string
	ServerName        string
	DataDir           string
	DatabasePath      string
	ServerBaseURL     string
	AdminToken        string
	MediaRouterURL    string
	MediaRouterKey    string
	MediaRouterSecret string
	LogLevel          string
	LogFormat         string
	BeginRatePerSec   float64
	BeginRateBurst    int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Addr:              getEnv("SERVER_ADDR", ":8080"),
		ServerName:        getEnv("SERVER_NAME", "Local Server"),
		DataDir:           getEnv("DATA_DIR", "data"),
		DatabasePath:      os.Getenv("DB_PATH"),
		ServerBaseURL:     getEnv("SERVER_BASE_URL", "http://localhost:8080"),
		AdminToken:        os.Getenv("ADMIN_TOKEN"),
		MediaRouterURL:    getEnv("MEDIA_ROUTER_URL", "http://localhost:7880"),
		MediaRouterKey:    os.Getenv("MEDIA_ROUTER_API_KEY"),
		MediaRouterSecret: os.Getenv("MEDIA_ROUTER_API_SECRET"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		BeginRatePerSec:   1,
		BeginRateBurst:    5,
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		return nil, fmt.Errorf("DATA_DIR must not be empty")
	}

	// Media router credentials must be set together or not at all
	if (cfg.MediaRouterKey == "") != (cfg.MediaRouterSecret == "") {
		return nil, fmt.Errorf("MEDIA_ROUTER_API_KEY and MEDIA_ROUTER_API_SECRET must be set together")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
