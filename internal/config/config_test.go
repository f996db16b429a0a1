package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorageInMemory, cfg.Storage)
	assert.Equal(t, CacheMemory, cfg.Cache)
	assert.Equal(t, "social_media", cfg.MongoDatabase)
	assert.Equal(t, time.Duration(0), cfg.FeedCacheTTL)
	assert.False(t, cfg.Seed)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/feed")
	t.Setenv("CACHE", "redis")
	t.Setenv("FEED_CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, CacheRedis, cfg.Cache)
	assert.Equal(t, 30*time.Second, cfg.FeedCacheTTL)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{Storage: StorageInMemory, Cache: CacheMemory}
	assert.NoError(t, base.Validate())

	mongo := base
	mongo.Storage = StorageMongo
	assert.Error(t, mongo.Validate())
	mongo.MongoURI = "mongodb://localhost:27017"
	assert.NoError(t, mongo.Validate())

	unknown := base
	unknown.Cache = "memcached"
	assert.Error(t, unknown.Validate())
}

func TestLoad_FlagOverrideIsValidatedAfterLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE", "mongo")
	t.Setenv("MONGODB_URI", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	cfg.Storage = StorageInMemory
	assert.NoError(t, cfg.Validate())
}
