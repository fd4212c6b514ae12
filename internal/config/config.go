package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Server     ServerConfig
	Ledger     LedgerConfig
	Anchor     AnchorConfig
	Slack      SlackConfig
	Log        LogConfig
	SelfHosted bool
}

// DatabaseConfig holds PostgreSQL connection settings.
// With Memory set the service keeps audit records in process.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
	Memory   bool
}

// RedisConfig holds Redis connection settings. An empty Addr disables
// lifecycle events.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret    string //nolint:gosec // G117: JWT signing secret config
	AccessTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	StatusRPS       float64
	StatusBurst     int
	APIRPS          float64
	APIBurst        int
}

// LedgerConfig holds the EVM anchor contract settings. Missing values make
// the service fall back to the mock ledger.
type LedgerConfig struct {
	RPCURL          string
	PrivateKey      string //nolint:gosec // G117: signing key config
	ContractAddress string
	StartBlock      uint64
	GasMultiplier   uint64
}

// AnchorConfig tunes the anchoring worker pool and the reconciliation sweep.
// A zero SweepInterval disables the sweep.
type AnchorConfig struct {
	Workers          int
	SubmitTimeout    time.Duration
	SweepInterval    time.Duration
	SweepMinAge      time.Duration
	SweepBackoff     time.Duration
	SweepMaxAttempts int
	SweepBatch       int
}

// SlackConfig holds failure alert settings.
type SlackConfig struct {
	BotToken     string
	AlertChannel string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password, signing key) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("ANCHORD_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("ANCHORD_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMemory, err := getEnvBool("ANCHORD_DB_MEMORY", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("ANCHORD_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("ANCHORD_JWT_ACCESS_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("ANCHORD_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("ANCHORD_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	shutdownTimeout, err := getEnvDuration("ANCHORD_SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	statusRPS, err := getEnvFloat("ANCHORD_SERVER_STATUS_RPS", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	statusBurst, err := getEnvInt("ANCHORD_SERVER_STATUS_BURST", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	apiRPS, err := getEnvFloat("ANCHORD_SERVER_API_RPS", 100)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	apiBurst, err := getEnvInt("ANCHORD_SERVER_API_BURST", 200)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	startBlock, err := getEnvUint64("ANCHORD_LEDGER_START_BLOCK", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	gasMultiplier, err := getEnvUint64("ANCHORD_LEDGER_GAS_MULTIPLIER", 2)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	workers, err := getEnvInt("ANCHORD_ANCHOR_WORKERS", 8)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	submitTimeout, err := getEnvDuration("ANCHORD_ANCHOR_SUBMIT_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	sweepInterval, err := getEnvDuration("ANCHORD_ANCHOR_SWEEP_INTERVAL", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	sweepMinAge, err := getEnvDuration("ANCHORD_ANCHOR_SWEEP_MIN_AGE", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	sweepBackoff, err := getEnvDuration("ANCHORD_ANCHOR_SWEEP_BACKOFF", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	sweepMaxAttempts, err := getEnvInt("ANCHORD_ANCHOR_SWEEP_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	sweepBatch, err := getEnvInt("ANCHORD_ANCHOR_SWEEP_BATCH", 100)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	selfHosted, err := getEnvBool("ANCHORD_SELF_HOSTED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("ANCHORD_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("ANCHORD_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("ANCHORD_DB_USER", "anchord"),
			Password: getEnv("ANCHORD_DB_PASSWORD", ""),
			DBName:   getEnv("ANCHORD_DB_NAME", "anchord_dev"),
			SSLMode:  getEnv("ANCHORD_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
			Memory:   dbMemory,
		},
		Redis: RedisConfig{
			Addr:     getEnv("ANCHORD_REDIS_ADDR", ""),
			Password: getEnv("ANCHORD_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:    getEnv("ANCHORD_JWT_SECRET", ""),
			AccessTTL: accessTTL,
		},
		Server: ServerConfig{
			Addr:            getEnv("ANCHORD_SERVER_ADDR", ":8080"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			CORSOrigins:     corsOrigins,
			StatusRPS:       statusRPS,
			StatusBurst:     statusBurst,
			APIRPS:          apiRPS,
			APIBurst:        apiBurst,
		},
		Ledger: LedgerConfig{
			RPCURL:          getEnv("ANCHORD_LEDGER_RPC_URL", ""),
			PrivateKey:      getEnv("ANCHORD_LEDGER_PRIVATE_KEY", ""),
			ContractAddress: getEnv("ANCHORD_LEDGER_CONTRACT_ADDRESS", ""),
			StartBlock:      startBlock,
			GasMultiplier:   gasMultiplier,
		},
		Anchor: AnchorConfig{
			Workers:          workers,
			SubmitTimeout:    submitTimeout,
			SweepInterval:    sweepInterval,
			SweepMinAge:      sweepMinAge,
			SweepBackoff:     sweepBackoff,
			SweepMaxAttempts: sweepMaxAttempts,
			SweepBatch:       sweepBatch,
		},
		Slack: SlackConfig{
			BotToken:     getEnv("ANCHORD_SLACK_BOT_TOKEN", ""),
			AlertChannel: getEnv("ANCHORD_SLACK_ALERT_CHANNEL", ""),
		},
		Log: LogConfig{
			Level:  getEnv("ANCHORD_LOG_LEVEL", "info"),
			Format: getEnv("ANCHORD_LOG_FORMAT", "json"),
		},
		SelfHosted: selfHosted,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("ANCHORD_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("ANCHORD_JWT_SECRET must be at least 32 characters")
	}

	if c.Database.SSLMode == "disable" && !c.SelfHosted && !c.Database.Memory {
		log.Warn().Msg("ANCHORD_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("ANCHORD_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("ANCHORD_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("ANCHORD_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("ANCHORD_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("ANCHORD_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("ANCHORD_SERVER_SHUTDOWN_TIMEOUT must be positive, got %s", c.Server.ShutdownTimeout)
	}
	if c.Server.StatusRPS <= 0 || c.Server.APIRPS <= 0 {
		return errors.New("ANCHORD_SERVER_STATUS_RPS and ANCHORD_SERVER_API_RPS must be positive")
	}
	if c.Server.StatusBurst < 1 || c.Server.APIBurst < 1 {
		return errors.New("ANCHORD_SERVER_STATUS_BURST and ANCHORD_SERVER_API_BURST must be >= 1")
	}
	if c.Ledger.GasMultiplier < 1 {
		return fmt.Errorf("ANCHORD_LEDGER_GAS_MULTIPLIER must be >= 1, got %d", c.Ledger.GasMultiplier)
	}
	if c.Anchor.Workers < 1 {
		return fmt.Errorf("ANCHORD_ANCHOR_WORKERS must be >= 1, got %d", c.Anchor.Workers)
	}
	if c.Anchor.SubmitTimeout <= 0 {
		return fmt.Errorf("ANCHORD_ANCHOR_SUBMIT_TIMEOUT must be positive, got %s", c.Anchor.SubmitTimeout)
	}
	if c.Anchor.SweepInterval < 0 {
		return fmt.Errorf("ANCHORD_ANCHOR_SWEEP_INTERVAL must not be negative, got %s", c.Anchor.SweepInterval)
	}
	if c.Anchor.SweepMinAge <= c.Anchor.SubmitTimeout {
		return fmt.Errorf("ANCHORD_ANCHOR_SWEEP_MIN_AGE (%s) must exceed ANCHORD_ANCHOR_SUBMIT_TIMEOUT (%s)", c.Anchor.SweepMinAge, c.Anchor.SubmitTimeout)
	}
	if c.Anchor.SweepMaxAttempts < 1 {
		return fmt.Errorf("ANCHORD_ANCHOR_SWEEP_MAX_ATTEMPTS must be >= 1, got %d", c.Anchor.SweepMaxAttempts)
	}
	if c.Anchor.SweepBatch < 1 {
		return fmt.Errorf("ANCHORD_ANCHOR_SWEEP_BATCH must be >= 1, got %d", c.Anchor.SweepBatch)
	}
	if (c.Slack.BotToken == "") != (c.Slack.AlertChannel == "") {
		log.Warn().Msg("ANCHORD_SLACK_BOT_TOKEN and ANCHORD_SLACK_ALERT_CHANNEL must both be set; Slack alerts disabled")
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvUint64(key string, fallback uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as uint64: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
