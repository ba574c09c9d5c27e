package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/invoice-analyzer/internal/adapters/cache"
	"github.com/mikey/invoice-analyzer/internal/config"
	"github.com/mikey/invoice-analyzer/internal/core"
	"go.uber.org/zap"
)

// StoppableCache is a cache repository owning background resources
type StoppableCache interface {
	core.CacheRepository
	Stop()
}

// CacheFactory creates cache repositories based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCacheRepository creates a cache repository based on the configuration.
// It returns nil when caching is disabled.
func (f *CacheFactory) CreateCacheRepository() (StoppableCache, error) {
	cacheCfg, err := f.cacheConfig()
	if err != nil {
		return nil, err
	}
	if !cacheCfg.Enabled {
		f.logger.Info("Analysis cache disabled")
		return nil, nil
	}

	// Entries without a TTL never expire, so there is nothing to sweep
	cleanupFreq := cacheCfg.CleanupFrequency
	if cacheCfg.TTL <= 0 {
		cleanupFreq = 0
	}

	switch cacheCfg.Type {
	case "memory":
		return cache.NewMemoryCache(f.logger, cleanupFreq), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(cacheCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		sqliteCache, err := cache.NewSQLiteCache(cacheCfg.SQLitePath, f.logger, cleanupFreq)
		if err != nil {
			return nil, err
		}
		return sqliteCache, nil
	case "mysql":
		mysqlCache, err := cache.NewMySQLCache(cacheCfg.MySQLDSN, f.logger, cleanupFreq)
		if err != nil {
			return nil, err
		}
		return mysqlCache, nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		redisCache, err := cache.NewRedisCache(ctx, cacheCfg.RedisAddr, cacheCfg.RedisPassword, cacheCfg.RedisDB, f.logger)
		if err != nil {
			return nil, err
		}
		return redisCache, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
}

// CacheOptions returns how the analysis service should use the cache
func (f *CacheFactory) CacheOptions() (core.CacheOptions, error) {
	cacheCfg, err := f.cacheConfig()
	if err != nil {
		return core.CacheOptions{}, err
	}

	markers := cacheCfg.BypassMarkers
	if len(markers) == 0 {
		markers = core.DefaultBypassMarkers
	}

	return core.CacheOptions{
		Enabled:       cacheCfg.Enabled,
		TTL:           cacheCfg.TTL,
		BypassMarkers: markers,
	}, nil
}

// cacheConfig loads the cache section. A daemon running the SMTP filter sees
// a fresh Message-ID per mail, so entries get smtp.cache_ttl when cache.ttl
// leaves them unbounded.
func (f *CacheFactory) cacheConfig() (config.CacheConfig, error) {
	cacheCfg, err := f.cfg.GetCache()
	if err != nil {
		return config.CacheConfig{}, err
	}
	if cacheCfg.TTL > 0 || !f.cfg.GetBool("smtp.enabled") {
		return cacheCfg, nil
	}

	ttl, err := f.cfg.GetDuration("smtp.cache_ttl")
	if err != nil {
		return config.CacheConfig{}, err
	}
	if ttl > 0 {
		f.logger.Debug("Bounding cache entries for the SMTP filter", zap.Duration("ttl", ttl))
		cacheCfg.TTL = ttl
	}
	return cacheCfg, nil
}
