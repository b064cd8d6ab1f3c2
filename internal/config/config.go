package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Room catalog location; ":memory:" keeps it in process
	DBPath string

	// Room used when a client connects without ?room=
	DefaultRoom string

	// How often empty rooms are reclaimed
	ReapInterval time.Duration

	// Per-client inbound budget
	MessagesPerSecond float64
	MessageBurst      int

	// Observability; an empty endpoint disables trace export
	JaegerEndpoint string

	// Advertise the server over mDNS on the local network
	MDNS bool
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	reapInterval, err := getEnvDuration("WHITEBOARD_REAP_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	rate, err := getEnvFloat("WHITEBOARD_MESSAGES_PER_SECOND", 100)
	if err != nil {
		return nil, err
	}
	burst, err := getEnvInt("WHITEBOARD_MESSAGE_BURST", 200)
	if err != nil {
		return nil, err
	}
	mdns, err := getEnvBool("WHITEBOARD_MDNS", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DBPath:            getEnv("WHITEBOARD_DB_PATH", ":memory:"),
		DefaultRoom:       getEnv("WHITEBOARD_DEFAULT_ROOM", "general"),
		ReapInterval:      reapInterval,
		MessagesPerSecond: rate,
		MessageBurst:      burst,
		JaegerEndpoint:    getEnv("JAEGER_ENDPOINT", ""),
		MDNS:              mdns,
	}

	if cfg.ReapInterval <= 0 {
		return nil, fmt.Errorf("WHITEBOARD_REAP_INTERVAL must be positive")
	}
	if cfg.MessagesPerSecond <= 0 || cfg.MessageBurst <= 0 {
		return nil, fmt.Errorf("message rate and burst must be positive")
	}

	return cfg, nil
}

func (c *Config) PortNumber() int {
	n, err := strconv.Atoi(c.Port)
	if err != nil {
		return 0
	}
	return n
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
