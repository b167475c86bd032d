package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all plantdx configuration.
type Config struct {
	Addr       string
	Classifier ClassifierConfig
	Advice     AdviceConfig
	Report     ReportConfig
	UI         UIConfig
	Token      TokenConfig
	DB         DBConfig
	LogLevel   string
}

// ClassifierConfig selects and configures the model backend.
type ClassifierConfig struct {
	Backend       string // "onnx" or "remote"
	ModelPath     string
	LibPath       string
	RemoteURL     string
	RemoteTimeout time.Duration
}

// AdviceConfig points at an optional catalog override.
type AdviceConfig struct {
	CatalogPath string
}

// ReportConfig holds PDF rendering settings.
type ReportConfig struct {
	FontPath string
}

// UIConfig holds page and upload settings.
type UIConfig struct {
	BackgroundPath string
	MaxUploadBytes int64
}

// TokenConfig holds the report link signing settings.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
}

// DBConfig holds the optional history store settings. An empty DSN disables it.
type DBConfig struct {
	DSN         string
	AutoMigrate bool
}

const devTokenSecret = "dev-insecure-secret-change"

// LoadDotEnv loads ./.env (or the given files) without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			slog.Warn("failed to load env file", "file", f, "err", err)
		}
	}
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	secret := os.Getenv("PLANTDX_TOKEN_SECRET")
	if secret == "" {
		secret = devTokenSecret
	}
	return Config{
		Addr: getenv("PLANTDX_ADDR", ":8081"),
		Classifier: ClassifierConfig{
			Backend:       strings.ToLower(getenv("PLANTDX_CLASSIFIER", "onnx")),
			ModelPath:     getenv("PLANTDX_MODEL_PATH", "models/plant_model.onnx"),
			LibPath:       getenv("PLANTDX_ORT_LIB", "models/libonnxruntime.so"),
			RemoteURL:     os.Getenv("PLANTDX_REMOTE_URL"),
			RemoteTimeout: getenvDuration("PLANTDX_REMOTE_TIMEOUT", 10*time.Second),
		},
		Advice: AdviceConfig{
			CatalogPath: os.Getenv("PLANTDX_CATALOG"),
		},
		Report: ReportConfig{
			FontPath: os.Getenv("PLANTDX_REPORT_FONT"),
		},
		UI: UIConfig{
			BackgroundPath: os.Getenv("PLANTDX_BACKGROUND"),
			MaxUploadBytes: getenvInt("UPLOAD_MAX_BYTES", 10<<20),
		},
		Token: TokenConfig{
			Secret: []byte(secret),
			TTL:    getenvDuration("PLANTDX_TOKEN_TTL", time.Hour),
		},
		DB: DBConfig{
			DSN:         os.Getenv("DB_DSN"),
			AutoMigrate: getenvBool("DB_AUTO_MIGRATE", true),
		},
		LogLevel: getenv("PLANTDX_LOG_LEVEL", "info"),
	}
}

// UsesDevSecret reports whether report links are signed with the built-in secret.
func (c Config) UsesDevSecret() bool {
	return string(c.Token.Secret) == devTokenSecret
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getenvInt(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// getenvBool treats false/0/no (any case) as false; anything else set is true.
func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "false", "0", "no":
		return false
	}
	return true
}
