package config

import (
	"os"
	"strconv"
	"time"
)

type AppConfig struct {
	HTTPAddr  string
	RedisAddr string
	RedisPass string

	// Advertised to tablets in pairing credentials.
	TransportEndpoint string

	ArtifactTTL   time.Duration
	MinImageBytes int
	MaxImageBytes int

	MachineID int64
}

func Load() AppConfig {
	return AppConfig{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8011"),
		RedisAddr:         getEnv("REDIS_ADDR", "redis:6379"),
		RedisPass:         getEnv("REDIS_PASS", ""),
		TransportEndpoint: getEnv("TRANSPORT_ENDPOINT", "wss://localhost:8011/api/v1/tablets/ws"),
		ArtifactTTL:       getEnvAsDuration("ARTIFACT_CACHE_TTL", 24*time.Hour),
		MinImageBytes:     getEnvAsInt("SIGNATURE_MIN_BYTES", 100),
		MaxImageBytes:     getEnvAsInt("SIGNATURE_MAX_BYTES", 5<<20),
		MachineID:         int64(getEnvAsInt("MACHINE_ID", 1)),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
