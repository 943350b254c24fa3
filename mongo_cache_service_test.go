package crudboot

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

func TestMongoConfig_BuildURI(t *testing.T) {
	tests := []struct {
		name   string
		config *MongoConfig
		want   string
	}{
		{"defaults", NewMongoConfig(), "mongodb://localhost:27017/"},
		{
			"credentials and options",
			NewMongoConfig().
				WithHost("db", 27018).
				WithCredentials("app", "p@ss").
				WithOption("replicaSet", "rs0").
				WithOption("authSource", "admin"),
			"mongodb://app:p%40ss@db:27018/?authSource=admin&replicaSet=rs0",
		},
		{"user without password", NewMongoConfig().WithCredentials("app", ""), "mongodb://localhost:27017/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.BuildURI())
		})
	}
}

func TestLoadMongoConfigFromEnv(t *testing.T) {
	t.Setenv("CACHE_MONGO_HOST", "mongo")
	t.Setenv("CACHE_MONGO_PORT", "27019")
	t.Setenv("CACHE_MONGO_DATABASE", "responses")

	config, err := LoadMongoConfigFromEnv("CACHE_MONGO")
	require.NoError(t, err)
	assert.Equal(t, "mongo", config.Host)
	assert.Equal(t, 27019, config.Port)
	assert.Equal(t, "responses", config.Database)

	t.Setenv("CACHE_MONGO_PORT", "x")
	_, err = LoadMongoConfigFromEnv("CACHE_MONGO")
	assert.Error(t, err)
}

func TestMongoCacheService(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mongo container test in short mode")
	}
	ctx := context.Background()
	mongoPort := nat.Port("27017/tcp")

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{string(mongoPort)},
			WaitingFor: wait.ForAll(
				wait.ForLog("Waiting for connections"),
				wait.ForListeningPort(mongoPort),
			),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, mongoPort)
	require.NoError(t, err)

	db, err := NewMongoConfig().WithHost(host, port.Int()).WithDatabase("cache_test").Connect(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Client().Disconnect(context.Background()) })

	cache := NewMongoCacheService(db, zaptest.NewLogger(t))
	require.NoError(t, cache.EnsureIndexes(ctx))
	clock := &fakeClock{now: time.Now().Truncate(time.Millisecond)}
	cache.now = clock.Now

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "k1", []byte("v1"), []string{"crud:Widget"}, time.Minute))
		data, err := cache.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), data)

		data, err = cache.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("invalidate", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "k2", []byte("v2"), []string{"crud:Owner"}, time.Minute))
		require.NoError(t, cache.Invalidate(ctx, "crud:Widget"))

		data, err := cache.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Nil(t, data)
		data, err = cache.Get(ctx, "k2")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), data)
	})

	t.Run("expiry and purge", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "short", []byte("s"), nil, time.Hour))
		require.NoError(t, cache.Set(ctx, "unread", []byte("u"), nil, time.Hour))
		require.NoError(t, cache.Set(ctx, "long", []byte("l"), nil, 3*time.Hour))
		clock.Advance(2 * time.Hour)

		data, err := cache.Get(ctx, "short")
		require.NoError(t, err)
		assert.Nil(t, data)

		// unread and k2 are expired, short was dropped by Get.
		purged, err := cache.Purge(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), purged)

		data, err = cache.Get(ctx, "long")
		require.NoError(t, err)
		assert.Equal(t, []byte("l"), data)
	})

	t.Run("valid through its expiry second", func(t *testing.T) {
		clock.now = clock.now.Truncate(time.Second).Add(100 * time.Millisecond)
		require.NoError(t, cache.Set(ctx, "edge", []byte("e"), nil, time.Hour))

		clock.Advance(time.Hour + 500*time.Millisecond)
		data, err := cache.Get(ctx, "edge")
		require.NoError(t, err)
		assert.Equal(t, []byte("e"), data)

		clock.Advance(time.Second)
		data, err = cache.Get(ctx, "edge")
		require.NoError(t, err)
		assert.Nil(t, data)
	})
}

func TestMongoCacheEntry_IsExpired(t *testing.T) {
	expiresAt := time.Unix(1_700_000_000, 300_000_000)
	entry := &mongoCacheEntry{ExpiresAt: expiresAt}

	assert.False(t, entry.isExpired(expiresAt.Add(-time.Minute)))
	assert.False(t, entry.isExpired(expiresAt))
	assert.False(t, entry.isExpired(time.Unix(1_700_000_000, 900_000_000)))
	assert.True(t, entry.isExpired(time.Unix(1_700_000_001, 0)))
}
