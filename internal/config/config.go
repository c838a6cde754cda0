package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "Finnri"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultAPIBaseURL    = "http://localhost:8080"
	defaultTokenSecret   = "finnri-dev-secret"
	defaultTokenTTL      = 30 * 24 * time.Hour
	defaultOTPCodeTTL    = 5 * time.Minute
	defaultClaimTTL      = 10 * time.Minute
	defaultOTPSendPerMin = 5
	defaultShutdownDelay = 10 * time.Second

	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Config captures runtime configuration for both the client pieces (base URL,
// state directory) and the dev server, loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	// Client side.
	APIBaseURL string
	StateDir   string

	// Dev server side. DatabaseURL and RedisURL are optional; the server
	// falls back to in-memory stores when they are unset.
	DatabaseURL      string
	RedisURL         string
	TokenSecret      string
	TokenTTL         time.Duration
	OTPCodeTTL       time.Duration
	ClaimTokenTTL    time.Duration
	OTPSendPerMinute int
	ShutdownPeriod   time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		APIBaseURL:       getEnv("API_BASE_URL", defaultAPIBaseURL),
		StateDir:         os.Getenv("STATE_DIR"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TokenSecret:      getEnv("TOKEN_SECRET", defaultTokenSecret),
		TokenTTL:         defaultTokenTTL,
		OTPCodeTTL:       defaultOTPCodeTTL,
		ClaimTokenTTL:    defaultClaimTTL,
		OTPSendPerMinute: defaultOTPSendPerMin,
		ShutdownPeriod:   defaultShutdownDelay,
	}

	if cfg.StateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		cfg.StateDir = filepath.Join(base, "finnri")
	}

	var err error
	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPCodeTTL, err = durationEnv("OTP_CODE_TTL", cfg.OTPCodeTTL); err != nil {
		return Config{}, err
	}
	if cfg.ClaimTokenTTL, err = durationEnv("CLAIM_TOKEN_TTL", cfg.ClaimTokenTTL); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("OTP_SEND_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OTP_SEND_PER_MINUTE: %w", err)
		}
		cfg.OTPSendPerMinute = n
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if cfg.TokenSecret == "" {
		return Config{}, fmt.Errorf("TOKEN_SECRET must not be empty")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
