// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the service reads at startup.
type Config struct {
	Port string

	MongoURI      string
	MongoDatabase string

	JWTSecret        string
	JWTRefreshSecret string
	EncryptionKey    string

	// Upstream speech recognizer.
	RecognizerURL         string
	RecognizerAPIKey      string
	RecognizerModel       string
	RecognizerEncoding    string
	RecognizerSampleRate  int
	RecognizerChannels    int
	RecognizerSmartFormat bool
	KeepAliveInterval     time.Duration
	MaxPendingFragments   int

	// Note drafting provider: "openai" or "gemini".
	DraftProvider string
	OpenAIKey     string
	OpenAIModel   string
	GeminiKey     string
	GeminiModel   string
}

// Load reads configuration from the environment. A missing .env file is not
// an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port: envOrDefault("PORT", "8080"),

		MongoURI:      envOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: envOrDefault("MONGODB_DATABASE", "clinicopilot"),

		JWTSecret:        envOrDefault("JWT_SECRET", ""),
		JWTRefreshSecret: envOrDefault("JWT_REFRESH_SECRET", os.Getenv("JWT_SECRET")),
		EncryptionKey:    envOrDefault("ENCRYPTION_KEY", os.Getenv("JWT_SECRET")),

		RecognizerURL:         envOrDefault("RECOGNIZER_URL", "wss://api.deepgram.com/v1/listen"),
		RecognizerAPIKey:      envOrDefault("DEEPGRAM_API_KEY", ""),
		RecognizerModel:       envOrDefault("RECOGNIZER_MODEL", "nova-2-general"),
		RecognizerEncoding:    envOrDefault("RECOGNIZER_ENCODING", "opus"),
		RecognizerSampleRate:  envIntOrDefault("RECOGNIZER_SAMPLE_RATE", 48000),
		RecognizerChannels:    envIntOrDefault("RECOGNIZER_CHANNELS", 1),
		RecognizerSmartFormat: envBoolOrDefault("RECOGNIZER_SMART_FORMAT", true),
		KeepAliveInterval:     envDurationOrDefault("RECOGNIZER_KEEPALIVE_INTERVAL", 4*time.Second),
		MaxPendingFragments:   envIntOrDefault("RELAY_MAX_PENDING_FRAGMENTS", 256),

		DraftProvider: envOrDefault("DRAFT_PROVIDER", "openai"),
		OpenAIKey:     envOrDefault("OPEN_AI_KEY", ""),
		OpenAIModel:   envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiKey:     envOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:   envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBoolOrDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDurationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
