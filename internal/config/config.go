package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Бэкенды хранилища.
const (
	StorageInMemory = "in-memory"
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
)

// Бэкенды кэша.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Port    string `env:"PORT"    envDefault:"8080"`
	Storage string `env:"STORAGE" envDefault:"in-memory"`

	MongoURI      string `env:"MONGODB_URI"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"social_media"`
	DatabaseURL   string `env:"DATABASE_URL"`

	Cache         string        `env:"CACHE"          envDefault:"memory"`
	RedisAddr     string        `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB"       envDefault:"0"`
	FeedCacheTTL  time.Duration `env:"FEED_CACHE_TTL" envDefault:"0s"`

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"0s"`

	NATSURL string `env:"NATS_URL"`
	Seed    bool   `env:"SEED" envDefault:"false"`
}

// Load читает необязательный .env и переменные окружения.
// Согласованность бэкендов проверяет Validate после переопределений из флагов.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность выбранных бэкендов.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageInMemory:
	case StorageMongo:
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI must be set for mongo storage")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL must be set for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage %q (in-memory, mongo or postgres)", c.Storage)
	}

	switch c.Cache {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown cache %q (memory or redis)", c.Cache)
	}
	return nil
}
