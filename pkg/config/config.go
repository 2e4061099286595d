package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// DATABASE_URL is the runtime connection, DIRECT_URL is used for migrations.
	// Both empty and DB_HOST unset means the journal is disabled.
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	Remote RemoteConfig

	// PollInterval is how often the managers refresh their collections. Zero disables polling.
	PollInterval time.Duration

	Redis RedisConfig

	// RabbitURL enables transition notifications when set.
	RabbitURL string

	Operator OperatorConfig

	// StoreWebhookSecret verifies X-Store-Hmac-Sha256 on store webhooks.
	StoreWebhookSecret string

	// AdminAllowedOrigins is a comma-separated allowlist for the admin front-end.
	AdminAllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// JournalEnabled reports whether any database connection was configured.
func (c Config) JournalEnabled() bool {
	return strings.TrimSpace(c.DatabaseURL) != "" || strings.TrimSpace(c.DB.Host) != ""
}

type RemoteConfig struct {
	BaseURL string

	// Token is the primary credential. TokenFallbacks lists further env keys tried
	// in order, TokenFile a file holding the token.
	Token          string
	TokenFallbacks []string
	TokenFile      string

	Timeout time.Duration

	// RPS and Burst bound outbound calls. RPS <= 0 disables limiting.
	RPS   float64
	Burst int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OperatorConfig struct {
	JWTSecret   string
	JWTAudience string
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	_ = godotenv.Load()

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "backoffice"),
			User:     env("DB_USER", "backoffice"),
			Password: env("DB_PASSWORD", "backoffice"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Remote: RemoteConfig{
			BaseURL:        env("REMOTE_BASE_URL", "http://localhost:5000/api"),
			Token:          os.Getenv("REMOTE_TOKEN"),
			TokenFallbacks: envList("REMOTE_TOKEN_FALLBACKS", "ADMIN_TOKEN,AUTH_TOKEN"),
			TokenFile:      os.Getenv("REMOTE_TOKEN_FILE"),
			Timeout:        envDuration("REMOTE_TIMEOUT", 10*time.Second),
			RPS:            envFloat("REMOTE_RPS", 5),
			Burst:          envInt("REMOTE_BURST", 10),
		},
		PollInterval: envDuration("POLL_INTERVAL", 30*time.Second),
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},
		RabbitURL: os.Getenv("RABBITMQ_URL"),
		Operator: OperatorConfig{
			JWTSecret:   os.Getenv("OPERATOR_JWT_SECRET"),
			JWTAudience: env("OPERATOR_JWT_AUDIENCE", "backoffice"),
		},
		StoreWebhookSecret:  os.Getenv("STORE_WEBHOOK_SECRET"),
		AdminAllowedOrigins: envList("ADMIN_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),
	}
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
