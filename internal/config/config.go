package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// セッションストアの種類。
const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

const (
	// minSessionSecretLen はCookie署名鍵として受け付ける最小バイト数。
	minSessionSecretLen = 16

	envFile            = ".env.local"
	defaultServerPort  = "3002"
	defaultMetricsPort = "9090"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionSecret          string
	SessionMaxAge          int
	SessionStore           string
	SessionCleanupInterval time.Duration

	// Redis
	RedisURL string

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string
	// MetricsPort はworkerが/metricsを公開するポート。serveはServerPortの/metricsを使う。
	MetricsPort string

	// Cookie
	CookieSecure bool
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.env.localがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定、または値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("PORT", defaultServerPort)
	cfg.MetricsPort = getEnvString("METRICS_PORT", defaultMetricsPort)
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.ServerPort)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 3600)
	cfg.SessionStore = strings.ToLower(getEnvString("SESSION_STORE", SessionStorePostgres))
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.RedisURL = getEnvString("REDIS_URL", "redis://localhost:6379/0")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ServerPort は.env.localを考慮してHTTPサーバーの待ち受けポートだけを返す。
// 必須項目の検証を行わないため、healthcheckのような軽量サブコマンドから使える。
func ServerPort() string {
	loadEnvFile()
	return getEnvString("PORT", defaultServerPort)
}

// loadEnvFile はカレントディレクトリの.env.localを読み込む。既存の環境変数は上書きしない。
func loadEnvFile() {
	_ = godotenv.Load(envFile)
}

// SessionMaxAgeDuration はセッション有効期間をtime.Durationで返す。
func (c *Config) SessionMaxAgeDuration() time.Duration {
	return time.Duration(c.SessionMaxAge) * time.Second
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLen)
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be positive, got %d", c.SessionMaxAge)
	}
	switch c.SessionStore {
	case SessionStorePostgres, SessionStoreRedis:
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStorePostgres, SessionStoreRedis, c.SessionStore)
	}
	if c.SessionCleanupInterval <= 0 {
		return fmt.Errorf("SESSION_CLEANUP_INTERVAL must be positive, got %v", c.SessionCleanupInterval)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
