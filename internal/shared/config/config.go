// Package config loads application configuration from the environment and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	CORSAllowOrigin []string `mapstructure:"-"`
	PublicDir       string   `mapstructure:"PUBLIC_DIR"`

	// StoreBackend selects the assessment store: sqlite, postgres or memory.
	StoreBackend string `mapstructure:"STORE_BACKEND"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabasePath string `mapstructure:"DATABASE_PATH"`

	ObjectStoreType string `mapstructure:"OBJECT_STORE"`
	LocalStoreDir   string `mapstructure:"LOCAL_STORE_DIR"`
	AWSRegion       string `mapstructure:"AWS_REGION"`
	S3Bucket        string `mapstructure:"S3_BUCKET"`
	S3Prefix        string `mapstructure:"S3_PREFIX"`
	SSEKMSKeyID     string `mapstructure:"SSE_KMS_KEY_ID"`
	// SnapshotKey is the object key the memory store persists to. Empty disables snapshots.
	SnapshotKey string `mapstructure:"SNAPSHOT_KEY"`

	LLMProvider  string        `mapstructure:"LLM_PROVIDER"`
	LLMModel     string        `mapstructure:"LLM_MODEL"`
	LLMAPIKey    string        `mapstructure:"LLM_API_KEY"`
	LLMMaxTokens int           `mapstructure:"LLM_MAX_TOKENS"`
	LLMTimeout   time.Duration `mapstructure:"LLM_TIMEOUT"`
	AIWorkers    int           `mapstructure:"AI_WORKERS"`
	AIQueueSize  int           `mapstructure:"AI_QUEUE_SIZE"`
	AILanguage   string        `mapstructure:"AI_LANGUAGE"`

	AdminPassword     string        `mapstructure:"ADMIN_PASSWORD"`
	AdminPasswordHash string        `mapstructure:"ADMIN_PASSWORD_HASH"`
	JWTSecret         string        `mapstructure:"JWT_SECRET"`
	AdminTokenTTL     time.Duration `mapstructure:"ADMIN_TOKEN_TTL"`

	RateLimitMax    int           `mapstructure:"RATE_LIMIT_MAX"`
	RateLimitWindow time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	RedisURL        string        `mapstructure:"REDIS_URL"`

	BenchmarkMinSample int      `mapstructure:"BENCHMARK_MIN_SAMPLE"`
	MaturityLabels     []string `mapstructure:"-"`
}

const (
	devJWTSecret     = "dev-secret"
	devAdminPassword = "admin"
)

// Load reads .env (if present), then the environment, and validates the result.
// Env vars override .env values.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.StoreBackend = normalizeStoreBackend(cfg.StoreBackend)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.CORSAllowOrigin = splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS"))
	cfg.MaturityLabels = splitAndTrim(v.GetString("MATURITY_LABELS"))
	if strings.TrimSpace(cfg.LLMAPIKey) == "" {
		cfg.LLMAPIKey = firstNonEmpty(providerKeys(v, cfg.LLMProvider)...)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
	}
	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		cfg.AdminPassword = devAdminPassword
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "dev")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("PUBLIC_DIR", "./public")
	v.SetDefault("STORE_BACKEND", "sqlite")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_PATH", "./data/revops.db")
	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("LOCAL_STORE_DIR", "./data")
	v.SetDefault("AWS_REGION", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_PREFIX", "")
	v.SetDefault("SSE_KMS_KEY_ID", "")
	v.SetDefault("SNAPSHOT_KEY", "snapshots/assessments.json")
	v.SetDefault("LLM_PROVIDER", "anthropic")
	v.SetDefault("LLM_MODEL", "")
	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("CLAUDE_API_KEY", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("LLM_MAX_TOKENS", 2000)
	v.SetDefault("LLM_TIMEOUT", "0s")
	v.SetDefault("AI_WORKERS", 2)
	v.SetDefault("AI_QUEUE_SIZE", 64)
	v.SetDefault("AI_LANGUAGE", "English")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ADMIN_TOKEN_TTL", "24h")
	v.SetDefault("RATE_LIMIT_MAX", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("BENCHMARK_MIN_SAMPLE", 10)
	v.SetDefault("MATURITY_LABELS", "")
}

func (c Config) validate() error {
	if c.IsProduction() {
		if c.JWTSecret == "" {
			return errors.New("config: JWT_SECRET is required in production")
		}
		if c.AdminPassword == "" && c.AdminPasswordHash == "" {
			return errors.New("config: ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required in production")
		}
	}
	if c.StoreBackend == "postgres" && strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("config: DATABASE_URL is required when STORE_BACKEND=postgres")
	}
	if c.ObjectStoreType == "s3" && strings.TrimSpace(c.S3Bucket) == "" {
		return errors.New("config: S3_BUCKET is required when OBJECT_STORE=s3")
	}
	if len(c.MaturityLabels) != 0 && len(c.MaturityLabels) != 5 {
		return fmt.Errorf("config: MATURITY_LABELS needs 5 labels, got %d", len(c.MaturityLabels))
	}
	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 {
		return errors.New("config: RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// IsProduction reports whether the process runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// AIEnabled reports whether a model credential is configured.
func (c Config) AIEnabled() bool {
	return strings.TrimSpace(c.LLMAPIKey) != ""
}

func providerKeys(v *viper.Viper, provider string) []string {
	if provider == "openai" {
		return []string{v.GetString("OPENAI_API_KEY")}
	}
	return []string{v.GetString("ANTHROPIC_API_KEY"), v.GetString("CLAUDE_API_KEY")}
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "postgresql", "pg":
		return "postgres"
	case "memory", "mem":
		return "memory"
	default:
		return "sqlite"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
