package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// NativeClientID is the client id of the native application that must always
// sign in interactively.
const NativeClientID = "c16a7279-738c-458f-8e77-25e42eb965ff"

// Authorize path matching modes.
const (
	MatchContains = "contains"
	MatchPrefix   = "prefix"
)

// Config holds the application configuration
type Config struct {
	// Environment is "development" or "production"
	Environment string

	// Database configuration
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	ServerPort      int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// Identity provider configuration
	IssuerURL             string
	GlobalSecret          []byte
	SigningKeyPath        string
	AccessTokenLifespan   time.Duration
	RefreshTokenLifespan  time.Duration
	AuthorizeCodeLifespan time.Duration
	IDTokenLifespan       time.Duration

	// Session cookie configuration
	CookieEncryptionKey []byte
	CookieLifetime      time.Duration
	CookieSecure        bool

	// Native client re-authentication
	NativeClientID     string
	AuthorizePath      string
	AuthorizePathMatch string

	// Login rate limiting, requests per second per client address
	LoginRateLimit float64
	LoginRateBurst int
}

// LoadConfig loads configuration from the environment, reading a .env file
// from the working directory when one exists.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	l := &loader{}
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "production"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     l.int("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "identity"),
		DBPassword: getEnv("DB_PASSWORD", "identity"),
		DBName:     getEnv("DB_NAME", "identity"),

		ServerPort:      l.int("PORT", 5001),
		RequestTimeout:  l.duration("REQUEST_TIMEOUT", 60*time.Second),
		ShutdownTimeout: l.duration("SHUTDOWN_TIMEOUT", 10*time.Second),

		IssuerURL:             strings.TrimRight(getEnv("ISSUER_URL", "http://localhost:5001"), "/"),
		GlobalSecret:          []byte(getEnv("OAUTH_GLOBAL_SECRET", "")),
		SigningKeyPath:        getEnv("SIGNING_KEY_PATH", ""),
		AccessTokenLifespan:   l.duration("ACCESS_TOKEN_LIFESPAN", time.Hour),
		RefreshTokenLifespan:  l.duration("REFRESH_TOKEN_LIFESPAN", 30*24*time.Hour),
		AuthorizeCodeLifespan: l.duration("AUTHORIZE_CODE_LIFESPAN", 5*time.Minute),
		IDTokenLifespan:       l.duration("ID_TOKEN_LIFESPAN", 5*time.Minute),

		CookieEncryptionKey: l.base64("COOKIE_ENCRYPTION_KEY"),
		CookieLifetime:      l.duration("COOKIE_LIFETIME", 14*24*time.Hour),
		CookieSecure:        l.bool("COOKIE_SECURE", true),

		NativeClientID:     getEnv("NATIVE_CLIENT_ID", NativeClientID),
		AuthorizePath:      getEnv("AUTHORIZE_PATH", "connect/authorize"),
		AuthorizePathMatch: strings.ToLower(getEnv("AUTHORIZE_PATH_MATCH", MatchContains)),

		LoginRateLimit: l.float("LOGIN_RATE_LIMIT", 1),
		LoginRateBurst: l.int("LOGIN_RATE_BURST", 5),
	}
	if l.err != nil {
		return nil, l.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be fixed up with a default
func (c *Config) Validate() error {
	if c.AuthorizePathMatch != MatchContains && c.AuthorizePathMatch != MatchPrefix {
		return fmt.Errorf("AUTHORIZE_PATH_MATCH must be %q or %q, got %q", MatchContains, MatchPrefix, c.AuthorizePathMatch)
	}
	if strings.TrimSpace(c.AuthorizePath) == "" {
		return fmt.Errorf("AUTHORIZE_PATH must not be empty")
	}
	if len(c.GlobalSecret) > 0 && len(c.GlobalSecret) < 32 {
		return fmt.Errorf("OAUTH_GLOBAL_SECRET must be at least 32 bytes")
	}
	if len(c.CookieEncryptionKey) > 0 && len(c.CookieEncryptionKey) != 32 {
		return fmt.Errorf("COOKIE_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(c.CookieEncryptionKey))
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// DatabaseURL returns the connection URL used by migrations
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// loader parses typed environment variables and keeps the first error
type loader struct {
	err error
}

func (l *loader) fail(key, value string, err error) {
	if l.err == nil {
		l.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
}

func (l *loader) int(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		l.fail(key, value, err)
		return defaultValue
	}
	return i
}

func (l *loader) float(key string, defaultValue float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		l.fail(key, value, err)
		return defaultValue
	}
	return f
}

func (l *loader) bool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		l.fail(key, value, err)
		return defaultValue
	}
	return b
}

func (l *loader) duration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		l.fail(key, value, err)
		return defaultValue
	}
	return d
}

func (l *loader) base64(key string) []byte {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		l.fail(key, "<redacted>", err)
		return nil
	}
	return b
}
