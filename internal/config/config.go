// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The JWT secret is the only hard requirement;
// everything else has a usable default so the service can run against the
// in-memory stores during development.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	// Database (optional; empty host selects the in-memory repository).
	DBUser         string
	DBPass         string
	DBHost         string
	DBPort         string
	DBName         string
	DBMaxOpenConns int

	// Token signing and lifetimes.
	JWTSecret  string        // HMAC key, at least 32 bytes
	AccessTTL  time.Duration // access token lifetime
	RefreshTTL time.Duration // refresh token lifetime
	TokenType  string        // response label, normally "Bearer"

	BcryptCost int // bcrypt cost for password hashing

	// HTTP path layout.
	AuthBasePath  string
	TokenBasePath string
	RegisterPath  string
	LoginPath     string
	LogoutPath    string
	RefreshPath   string
}

// Load reads configuration from the environment. A missing or short JWT
// secret is fatal: a weak HMAC key would silently undermine every token the
// service signs.
func Load() Config {
	secret := must("JWT_SECRET")
	if len(secret) < 32 {
		log.Fatalf("JWT_SECRET must be at least 32 bytes (256 bits), got %d", len(secret))
	}
	return Config{
		Env:  getenv("APP_ENV", "dev"),
		Port: getenv("APP_PORT", "8080"),

		DBUser:         os.Getenv("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         os.Getenv("DB_HOST"),
		DBPort:         getenv("DB_PORT", "3306"),
		DBName:         os.Getenv("DB_NAME"),
		DBMaxOpenConns: intenv("DB_MAX_OPEN_CONNS", 25),

		JWTSecret:  secret,
		AccessTTL:  time.Duration(intenv("ACCESS_TOKEN_TTL_SECONDS", 900)) * time.Second,
		RefreshTTL: time.Duration(intenv("REFRESH_TOKEN_TTL_SECONDS", 604800)) * time.Second,
		TokenType:  getenv("TOKEN_TYPE", "Bearer"),

		BcryptCost: intenv("BCRYPT_COST", 10),

		AuthBasePath:  getenv("AUTH_BASE_PATH", "/api/auth"),
		TokenBasePath: getenv("TOKEN_BASE_PATH", "/api/token"),
		RegisterPath:  getenv("REGISTER_PATH", "/register"),
		LoginPath:     getenv("LOGIN_PATH", "/login"),
		LogoutPath:    getenv("LOGOUT_PATH", "/logout"),
		RefreshPath:   getenv("REFRESH_PATH", "/refresh"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// intenv reads an integer variable. A missing, empty or malformed value
// falls back to the default; malformed values are logged so a typo in a TTL
// cannot silently issue instantly-expired tokens.
func intenv(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s=%q is not a number; using %d", key, raw, def)
		return def
	}
	return n
}
