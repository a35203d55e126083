package config

import (
	"os"
	"strconv"
)

// Config holds all configuration for the PaisaFlow routing core.
type Config struct {
	Port      int
	Version   string
	Database  DatabaseConfig
	Telemetry TelemetryConfig
	Reasoning ReasoningConfig
	Speech    SpeechConfig
	Events    EventsConfig
}

type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty falls back to
	// the in-memory store.
	URL string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// ReasoningConfig configures the primary provider and an optional
// backup tried when the primary fails.
type ReasoningConfig struct {
	Kind        string // openai | azure-openai | anthropic | ollama
	Endpoint    string
	APIKey      string
	Model       string
	BackupKind  string
	BackupKey   string
	BackupModel string
	RateLimit   float64 // outbound requests per second
}

type SpeechConfig struct {
	APIKey string
	Model  string
}

type EventsConfig struct {
	WebhookURL    string
	WebhookSecret string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("PAISAFLOW_PORT", 8080),
		Version: envStr("PAISAFLOW_VERSION", "0.1.0"),
		Database: DatabaseConfig{
			URL: envStr("PAISAFLOW_DATABASE_URL", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "paisaflow-core"),
		},
		Reasoning: ReasoningConfig{
			Kind:        envStr("PAISAFLOW_REASONING_KIND", "openai"),
			Endpoint:    envStr("PAISAFLOW_REASONING_ENDPOINT", ""),
			APIKey:      envStr("PAISAFLOW_REASONING_API_KEY", ""),
			Model:       envStr("PAISAFLOW_REASONING_MODEL", "gpt-4o-mini"),
			BackupKind:  envStr("PAISAFLOW_REASONING_BACKUP_KIND", ""),
			BackupKey:   envStr("PAISAFLOW_REASONING_BACKUP_KEY", ""),
			BackupModel: envStr("PAISAFLOW_REASONING_BACKUP_MODEL", ""),
			RateLimit:   envFloat("PAISAFLOW_REASONING_RATE_LIMIT", 10),
		},
		Speech: SpeechConfig{
			APIKey: envStr("PAISAFLOW_DEEPGRAM_API_KEY", ""),
			Model:  envStr("PAISAFLOW_DEEPGRAM_MODEL", "nova-2"),
		},
		Events: EventsConfig{
			WebhookURL:    envStr("PAISAFLOW_EVENT_WEBHOOK_URL", ""),
			WebhookSecret: envStr("PAISAFLOW_EVENT_WEBHOOK_SECRET", ""),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
