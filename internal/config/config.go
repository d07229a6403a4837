package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ArtifactSourceLocal = "local"
	ArtifactSourceAzure = "azure"
	ArtifactSourceHTTP  = "http"
)

// DefaultProviderOrder is the fallback chain used when PROVIDER_ORDER is unset.
var DefaultProviderOrder = []string{"remote_vision", "deep_ensemble", "tabular_heuristic", "heuristic"}

type Config struct {
	Host               string
	Port               string
	LogLevel           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	MaxRequestBodySize int64
	MaxImageSide       int
	MaxImagePixels     int
	AllowedOrigins     []string

	// Remote vision service (OpenAI-compatible).
	RemoteAPIKey  string
	RemoteBaseURL string
	RemoteModel   string

	// Model artifacts and inference.
	ModelDir          string
	ModelManifest     string
	ModelServerURL    string
	TabularArtifact   string
	ArtifactSource    string
	ArtifactBaseURL   string
	AzureAccount      string
	AzureKey          string
	AzureContainer    string
	ProviderOrder     []string
	ProviderTimeout   time.Duration
	ClassifierTimeout time.Duration

	// Persistence.
	HistoryDBPath string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// RemoteEnabled reports whether a remote vision credential is configured.
func (c *Config) RemoteEnabled() bool {
	return strings.TrimSpace(c.RemoteAPIKey) != ""
}

// LoadFromEnv reads configuration from the environment, after loading a
// .env file from the working directory when one exists.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("REMOTE_VISION_API_KEY")
	}

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "5000"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		ReadTimeout:        parseDurationOrDefault("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:       parseDurationOrDefault("WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:        parseDurationOrDefault("IDLE_TIMEOUT", 120*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_UPLOAD_SIZE", 16*1024*1024),
		MaxImageSide:       int(parseIntOrDefault("MAX_IMAGE_SIDE", 16384)),
		MaxImagePixels:     int(parseIntOrDefault("MAX_IMAGE_PIXELS", 100_000_000)),
		AllowedOrigins:     parseListOrDefault("ALLOWED_ORIGINS", []string{"*"}),

		RemoteAPIKey:  apiKey,
		RemoteBaseURL: getEnvOrDefault("REMOTE_VISION_BASE_URL", "https://api.groq.com/openai/v1"),
		RemoteModel:   getEnvOrDefault("REMOTE_VISION_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct"),

		ModelDir:          getEnvOrDefault("MODEL_DIR", "models"),
		ModelManifest:     os.Getenv("MODEL_MANIFEST"),
		ModelServerURL:    os.Getenv("MODEL_SERVER_URL"),
		TabularArtifact:   getEnvOrDefault("TABULAR_ARTIFACT", "model.json"),
		ArtifactSource:    strings.ToLower(getEnvOrDefault("ARTIFACT_SOURCE", ArtifactSourceLocal)),
		ArtifactBaseURL:   os.Getenv("ARTIFACT_BASE_URL"),
		AzureAccount:      os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:          os.Getenv("AZURE_STORAGE_KEY"),
		AzureContainer:    getEnvOrDefault("AZURE_CONTAINER", "models"),
		ProviderOrder:     parseListOrDefault("PROVIDER_ORDER", DefaultProviderOrder),
		ProviderTimeout:   parseDurationOrDefault("PROVIDER_TIMEOUT", 60*time.Second),
		ClassifierTimeout: parseDurationOrDefault("CLASSIFIER_TIMEOUT", 20*time.Second),

		HistoryDBPath: os.Getenv("HISTORY_DB_PATH"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       int(parseIntOrDefault("REDIS_DB", 0)),
		CacheTTL:      parseDurationOrDefault("CACHE_TTL", time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxImageSide < 0 || c.MaxImagePixels < 0 {
		return fmt.Errorf("image limits must be >= 0 (got side=%d, pixels=%d)", c.MaxImageSide, c.MaxImagePixels)
	}
	if c.ProviderTimeout <= 0 || c.ClassifierTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got provider=%s, classifier=%s)",
			c.ProviderTimeout, c.ClassifierTimeout)
	}
	if len(c.ProviderOrder) == 0 {
		return fmt.Errorf("PROVIDER_ORDER must name at least one provider")
	}
	switch c.ArtifactSource {
	case ArtifactSourceLocal:
	case ArtifactSourceAzure:
		if c.AzureAccount == "" || c.AzureKey == "" {
			return fmt.Errorf("ARTIFACT_SOURCE=azure requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
	case ArtifactSourceHTTP:
		if _, err := url.ParseRequestURI(c.ArtifactBaseURL); err != nil {
			return fmt.Errorf("invalid ARTIFACT_BASE_URL: %q", c.ArtifactBaseURL)
		}
	default:
		return fmt.Errorf("invalid ARTIFACT_SOURCE: %q", c.ArtifactSource)
	}
	if c.ModelServerURL != "" {
		if _, err := url.ParseRequestURI(c.ModelServerURL); err != nil {
			return fmt.Errorf("invalid MODEL_SERVER_URL: %q", c.ModelServerURL)
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
