package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort string
	Debug      bool

	// Database. Empty means the in-memory trip store.
	DatabaseURL string

	// Optional collaborators. Empty disables the integration.
	RedisAddr string
	NATSURL   string

	// Map surface
	MapsAPIKey string
	MapZoom    int

	// Location acquisition
	LocationTimeout time.Duration
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:      getEnv("PORT", "4000"),
		Debug:           getEnvBool("DEBUG", false),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		NATSURL:         getEnv("NATS_URL", ""),
		MapsAPIKey:      getEnv("MAPS_API_KEY", ""),
		MapZoom:         getEnvInt("MAP_ZOOM", 15),
		LocationTimeout: getEnvDuration("LOCATION_TIMEOUT", 10*time.Second),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.Atoi(value)
		if err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
