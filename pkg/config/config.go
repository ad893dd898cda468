package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StrategyLockFree = "lockfree"
	StrategyMutex    = "mutex"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Lottery  LotteryConfig
	Admin    AdminConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	PoolSize      int
	MinIdleConns  int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

// AdminConfig holds the basic auth credentials of the management routes.
// Leaving the password empty serves them without auth.
type AdminConfig struct {
	Username string
	Password string
}

type LotteryConfig struct {
	DrawStrategy string
	LockWait     time.Duration
	LockLease    time.Duration

	RecorderWorkers   int
	RecorderQueueSize int
	RecorderTimeout   time.Duration

	SyncTimeout  time.Duration
	SyncInterval time.Duration
	SyncEventIDs []uint64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	syncIDs, err := parseIDs(os.Getenv("SYNC_EVENT_IDS"))
	if err != nil {
		return nil, errors.New("invalid SYNC_EVENT_IDS")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Lucky Draw"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", DriverPostgres),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "lucky_draw"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			PoolSize:      getEnvInt("REDIS_POOL_SIZE", 50),
			MinIdleConns:  getEnvInt("REDIS_MIN_IDLE_CONNS", 5),
			ReadTimeout:   getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:  getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Lottery: LotteryConfig{
			DrawStrategy:      strings.ToLower(getEnv("DRAW_STRATEGY", StrategyLockFree)),
			LockWait:          getEnvDuration("DRAW_LOCK_WAIT", 3*time.Second),
			LockLease:         getEnvDuration("DRAW_LOCK_LEASE", 10*time.Second),
			RecorderWorkers:   getEnvInt("RECORDER_WORKERS", 4),
			RecorderQueueSize: getEnvInt("RECORDER_QUEUE_SIZE", 1024),
			RecorderTimeout:   getEnvDuration("RECORDER_TIMEOUT", 5*time.Second),
			SyncTimeout:       getEnvDuration("SYNC_TIMEOUT", 10*time.Second),
			SyncInterval:      getEnvDuration("SYNC_INTERVAL", time.Minute),
			SyncEventIDs:      syncIDs,
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Lottery.DrawStrategy {
	case StrategyLockFree, StrategyMutex:
	default:
		return errors.New("unknown draw strategy: " + c.Lottery.DrawStrategy)
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Password == "" {
			return errors.New("missing database password")
		}
	case DriverMemory:
	default:
		return errors.New("unknown database driver: " + c.Database.Driver)
	}

	if c.Lottery.RecorderWorkers <= 0 {
		return errors.New("recorder workers must be positive")
	}

	if c.Lottery.DrawStrategy == StrategyMutex && c.Lottery.LockLease <= 0 {
		return errors.New("draw lock lease must be positive")
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}

	return defaultVal
}

func parseIDs(raw string) ([]uint64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var ids []uint64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}
