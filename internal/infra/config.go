package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppName is embedded in logs and exported prompt documents.
const AppName = "ProGen AI"

// Store backends understood by OpenStore.
const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv   string
	BindAddr string
	Port     string

	LLMProvider   string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAIOrg     string

	StabilityAPIKey  string
	StabilityBaseURL string
	StabilityEngine  string

	ElevenLabsAPIKey    string
	ElevenLabsBaseURL   string
	TranslateTTSBaseURL string

	StoreBackend string
	StorePath    string
	DatabaseURL  string

	AllowedOrigins   []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads optional .env files, then reads the environment and
// applies defaults where needed.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		BindAddr: getEnv("BIND_ADDR", "127.0.0.1"),
		Port:     getEnv("PORT", "5000"),

		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:     os.Getenv("OPENAI_ORG"),

		StabilityAPIKey:  strings.TrimSpace(os.Getenv("STABILITY_API_KEY")),
		StabilityBaseURL: getEnv("STABILITY_BASE_URL", "https://api.stability.ai"),
		StabilityEngine:  getEnv("STABILITY_ENGINE", "stable-diffusion-xl-1024-v1-0"),

		ElevenLabsAPIKey:    strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")),
		ElevenLabsBaseURL:   getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		TranslateTTSBaseURL: getEnv("TRANSLATE_TTS_BASE_URL", "https://translate.google.com"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreBackendFile)),
		StorePath:    getEnv("STORE_PATH", ".progenai"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	switch cfg.LLMProvider {
	case "gemini", "openai":
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}

	switch cfg.StoreBackend {
	case StoreBackendFile, StoreBackendMemory:
	case StoreBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres store backend")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

// Addr is the listen address of the companion server.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
