package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	mysqlmodule "github.com/testcontainers/testcontainers-go/modules/mysql"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
)

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed cache test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// newTestRedisCache starts a throwaway Redis server and connects a cache to it
func newTestRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	requireDocker(t)
	ctx := context.Background()

	container, err := redismodule.Run(ctx, "redis:7.4-alpine")
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := NewRedisCache(pingCtx, opt.Addr, opt.Password, opt.DB, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	return c
}

// newTestMySQLCache starts a throwaway MySQL server and connects a cache to it
func newTestMySQLCache(t *testing.T) *MySQLCache {
	t.Helper()
	requireDocker(t)
	ctx := context.Background()

	container, err := mysqlmodule.Run(ctx, "mysql:8.0.36",
		mysqlmodule.WithDatabase("invoice_analyzer"),
		mysqlmodule.WithUsername("analyzer"),
		mysqlmodule.WithPassword("analyzer"),
	)
	require.NoError(t, err, "failed to start mysql container")
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	dsn, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	c, err := NewMySQLCache(dsn, zap.NewNop(), 0)
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	return c
}
