package config

import (
	"os"
	"strconv"
	"time"
)

// Backend kinds selectable by the environment probe.
const (
	BackendSupabase = "supabase"
	BackendFirebase = "firebase"
	BackendLocal    = "local"
)

// Config carries everything the service reads from the environment. It is
// loaded once in main and passed down by constructor injection; no package
// keeps its own view of the environment.
type Config struct {
	Port int

	// Supabase backend (Postgres)
	SupabaseDBURL string

	// Firebase backend (REST)
	FirebaseProjectID string
	FirebaseAPIKey    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AdminSessionTTL time.Duration

	// Single shared admin secret, not tied to any user record.
	AdminPassword string

	GoogleJWKSURL string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string

	// Local/demo backend only: OAuth logins skip the approval queue.
	DemoAutoApprove bool
}

// Load reads configuration from environment variables with development
// defaults suitable for a local docker-compose stack.
func Load() *Config {
	return &Config{
		Port:              envInt("PORT", 8080),
		SupabaseDBURL:     os.Getenv("SUPABASE_DB_URL"),
		FirebaseProjectID: os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseAPIKey:    os.Getenv("FIREBASE_API_KEY"),
		RedisAddr:         envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           envInt("REDIS_DB", 0),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AccessTokenTTL:    envDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:   envDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		AdminSessionTTL:   24 * time.Hour,
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		GoogleJWKSURL:     envString("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
		MinioEndpoint:     envString("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:    envString("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey:    envString("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:       os.Getenv("MINIO_USE_SSL") == "true",
		MinioBucket:       envString("MINIO_BUCKET", "provdesk-audit"),
		DemoAutoApprove:   os.Getenv("DEMO_AUTO_APPROVE") == "true",
	}
}

// BackendKind probes the environment for the configured backend. Precedence
// is Supabase, then Firebase, then the local demo store. The fallback to
// local is decided here, deterministically, and logged by the caller.
func (c *Config) BackendKind() string {
	if c.SupabaseDBURL != "" {
		return BackendSupabase
	}
	if c.FirebaseProjectID != "" && c.FirebaseAPIKey != "" {
		return BackendFirebase
	}
	return BackendLocal
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
