package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

// MinSecretLength is the shortest signing secret accepted at startup.
const MinSecretLength = 32

var (
	ErrSecretMissing  = errors.New("JWT_SECRET must be set")
	ErrSecretTooShort = fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength)
)

type Config struct {
	Port             string
	Env              string
	DatabaseDSN      string
	JWTSecret        string
	JWTIssuer        string
	JWTExpiry        time.Duration
	AllowAdminSignup bool
	AdminEmail       string
	AdminName        string
	// AdminPassword, when set, is used for the bootstrap admin instead of a
	// generated one.
	AdminPassword string
	// AdminPasswordFile receives a generated bootstrap password (mode 0600).
	AdminPasswordFile string
	AuthRateRPS      float64
	AuthRateBurst    int
	RequestTimeout   time.Duration
}

// Load reads the configuration from the environment. A missing or weak
// signing secret is an error; there is no fallback.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseDSN: os.Getenv("DATABASE_DSN"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   getEnv("JWT_ISSUER", "tasklist"),
		AdminEmail:  os.Getenv("ADMIN_EMAIL"),
		AdminName:   getEnv("ADMIN_NAME", "Administrator"),

		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordFile: getEnv("ADMIN_PASSWORD_FILE", "bootstrap-admin-password"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, ErrSecretMissing
	}
	if len(cfg.JWTSecret) < MinSecretLength {
		return Config{}, ErrSecretTooShort
	}

	var err error
	if cfg.JWTExpiry, err = getDuration("JWT_EXPIRY", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.AllowAdminSignup, err = getBool("ALLOW_ADMIN_SIGNUP", false); err != nil {
		return Config{}, err
	}
	if cfg.AuthRateRPS, err = getPositiveFloat("AUTH_RATE_RPS", 5); err != nil {
		return Config{}, err
	}
	if cfg.AuthRateBurst, err = getPositiveInt("AUTH_RATE_BURST", 10); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}

func getPositiveFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	if !(f > 0) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s must be a positive number, got %s", key, v)
	}
	return f, nil
}

func getPositiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return n, nil
}
