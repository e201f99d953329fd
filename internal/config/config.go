package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName         = "ColorGame"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultLedgerBackend   = "memory"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultApprovalTimeout = 24 * time.Hour
	defaultAdminRole       = "admin"
	defaultSystemID        = "system"
	defaultWagerRateLimit  = 30
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Ledger backends accepted by LEDGER_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName         string
	AppEnv          string
	Port            string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string
	NATSURL         string
	LedgerBackend   string
	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BotKeyHash      string
	ShutdownPeriod  time.Duration
	IdempotencyTTL  time.Duration
	ApprovalTimeout time.Duration
	AdminChannel    string
	AdminRole       string
	OwnerID         string
	SystemID        string
	WagerRateLimit  int
	GameConfigFile  string
	Game            Game
}

// Load reads configuration values from the environment and populates a Config
// instance. A .env file in the working directory is loaded first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		NATSURL:         os.Getenv("NATS_URL"),
		LedgerBackend:   strings.ToLower(getEnv("LEDGER_BACKEND", defaultLedgerBackend)),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RefreshSecret:   os.Getenv("JWT_REFRESH_SECRET"),
		BotKeyHash:      os.Getenv("BOT_KEY_HASH"),
		AdminChannel:    os.Getenv("ADMIN_CHANNEL"),
		AdminRole:       strings.ToLower(getEnv("ADMIN_ROLE", defaultAdminRole)),
		OwnerID:         os.Getenv("OWNER_ID"),
		SystemID:        getEnv("SYSTEM_ID", defaultSystemID),
		GameConfigFile:  os.Getenv("GAME_CONFIG_FILE"),
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		AccessTokenTTL:  defaultAccessTokenTTL,
		RefreshTokenTTL: defaultRefreshTokenTTL,
		ApprovalTimeout: defaultApprovalTimeout,
		WagerRateLimit:  defaultWagerRateLimit,
		Game:            DefaultGame(),
	}

	var err error
	if cfg.ShutdownPeriod, err = secondsOrDuration(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = secondsOrDuration(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.ApprovalTimeout, err = getDuration("APPROVAL_TIMEOUT", cfg.ApprovalTimeout); err != nil {
		return Config{}, err
	}
	if cfg.WagerRateLimit, err = getInt("WAGER_RATE_LIMIT", cfg.WagerRateLimit); err != nil {
		return Config{}, err
	}

	if cfg.GameConfigFile != "" {
		if cfg.Game, err = LoadGameFile(cfg.GameConfigFile, cfg.Game); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Game.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Game.Validate(); err != nil {
		return Config{}, err
	}

	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = cfg.JWTSecret
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.LedgerBackend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("invalid LEDGER_BACKEND %q, must be memory, postgres or redis", c.LedgerBackend)
	}
	if c.LedgerBackend == BackendPostgres && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL must be set when LEDGER_BACKEND=postgres")
	}
	if c.LedgerBackend == BackendRedis && c.RedisURL == "" {
		return errors.New("REDIS_URL must be set when LEDGER_BACKEND=redis")
	}
	if c.IsDev() {
		return nil
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.BotKeyHash == "" {
		return errors.New("BOT_KEY_HASH must be set")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL must be set")
	}
	if c.RedisURL == "" {
		return errors.New("REDIS_URL must be set")
	}
	return nil
}

// IsDev reports whether the service runs in a development environment, where
// Postgres and Redis are optional.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
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

// secondsOrDuration prefers an integer seconds variable and falls back to a
// Go duration string.
func secondsOrDuration(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	return getDuration(durationKey, fallback)
}
