// Package config loads the engine's configuration: environment
// variables first, then an optional YAML overlay, following the
// teacher's getEnv/getEnvInt/getEnvBool loader idiom extended with the
// options this engine's operations actually need.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds every tunable the engine reads at startup.
type Config struct {
	// Server
	ServerAddress string
	Environment   string
	LogLevel      string

	// Authentication
	AuthRequired  bool
	JWTSigningAlg string
	JWTSecret     string
	JWTIssuer     string

	// C3 categorization
	HubThresholdH int

	// C4 CDC journal
	JournalRetentionEvents int
	JournalBackend         string // "memory" or "badger"
	JournalBadgerPath      string

	// C5 broadcast hub
	SubscriberQueueCapacity int

	// C6 session endpoint
	HeartbeatSeconds   int
	IdleTimeoutSeconds int

	// C7 ingestion
	BatchDeadlineSeconds int
	ProgressRateLimitMs  int
	ParserCommand        []string

	// Workspace watcher
	WorkspaceRoot  string
	IgnorePatterns []string

	// Observability
	EnableMetrics bool
	EnableTracing bool
	OTLPEndpoint  string

	// YAML overlay
	ConfigFilePath string
}

// Load builds a Config from environment variables, then applies a YAML
// overlay if ConfigFilePath (CONFIG_FILE env var) points at a readable
// file.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		AuthRequired:  getEnvBool("AUTH_REQUIRED", false),
		JWTSigningAlg: getEnv("JWT_SIGNING_ALG", "HS256"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTIssuer:     getEnv("JWT_ISSUER", "code-graph-mcp"),

		HubThresholdH: getEnvInt("HUB_THRESHOLD_H", 10),

		JournalRetentionEvents: getEnvInt("JOURNAL_RETENTION_EVENTS", 100000),
		JournalBackend:         getEnv("JOURNAL_BACKEND", "memory"),
		JournalBadgerPath:      getEnv("JOURNAL_BADGER_PATH", "./data/journal"),

		SubscriberQueueCapacity: getEnvInt("SUBSCRIBER_QUEUE_CAPACITY", 1024),

		HeartbeatSeconds:   getEnvInt("HEARTBEAT_SECONDS", 30),
		IdleTimeoutSeconds: getEnvInt("IDLE_TIMEOUT_SECONDS", 60),

		BatchDeadlineSeconds: getEnvInt("BATCH_DEADLINE_SECONDS", 300),
		ProgressRateLimitMs:  getEnvInt("PROGRESS_RATE_LIMIT_MS", 100),
		ParserCommand:        getEnvList("PARSER_COMMAND", nil),

		WorkspaceRoot:  getEnv("WORKSPACE_ROOT", "."),
		IgnorePatterns: getEnvList("IGNORE_PATTERNS", []string{".git/**", "node_modules/**", "vendor/**"}),

		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		OTLPEndpoint:  getEnv("OTLP_ENDPOINT", ""),

		ConfigFilePath: getEnv("CONFIG_FILE", ""),
	}

	if cfg.ConfigFilePath != "" {
		if err := applyYAMLOverlay(cfg, cfg.ConfigFilePath); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether the engine is running in development
// mode; di.ProvideLogger uses it to pick the development logger.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated environment variable into a
// slice, trimming whitespace around each element.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
