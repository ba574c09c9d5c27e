package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/invoice-analyzer/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), zap.NewNop(), 0)
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	return c
}

func TestSQLiteCache_RoundTrip(t *testing.T) {
	c := newTestSQLiteCache(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	entry := sampleEntry("email-1", created, time.Time{})

	_, err := c.Get(ctx, "email-1")
	assert.ErrorIs(t, err, core.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, entry))
	got, err := c.Get(ctx, "email-1")
	require.NoError(t, err)
	assert.Equal(t, entry.Analysis, got.Analysis)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.True(t, got.ExpiresAt.IsZero())

	require.NoError(t, c.Delete(ctx, "email-1"))
	_, err = c.Get(ctx, "email-1")
	assert.ErrorIs(t, err, core.ErrCacheMiss)
}

func TestSQLiteCache_Expiry(t *testing.T) {
	c := newTestSQLiteCache(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, sampleEntry("live", now, now.Add(time.Hour))))
	require.NoError(t, c.Set(ctx, sampleEntry("expired", now.Add(-2*time.Hour), now.Add(-time.Hour))))

	_, err := c.Get(ctx, "expired")
	assert.ErrorIs(t, err, core.ErrCacheMiss)

	got, err := c.Get(ctx, "live")
	require.NoError(t, err)
	assert.True(t, now.Add(time.Hour).Equal(got.ExpiresAt))

	require.NoError(t, c.Cleanup(ctx))

	var count int
	require.NoError(t, c.db.QueryRow(`SELECT COUNT(*) FROM analysis_cache`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLiteCache_Replace(t *testing.T) {
	c := newTestSQLiteCache(t)
	ctx := context.Background()

	first := sampleEntry("email-1", time.Now(), time.Time{})
	second := sampleEntry("email-1", time.Now(), time.Time{})
	second.Analysis.Confidence = 55

	require.NoError(t, c.Set(ctx, first))
	require.NoError(t, c.Set(ctx, second))

	got, err := c.Get(ctx, "email-1")
	require.NoError(t, err)
	assert.Equal(t, 55, got.Analysis.Confidence)
}

func TestSQLiteCache_SubSecondExpiry(t *testing.T) {
	c := newTestSQLiteCache(t)
	ctx := context.Background()
	stored := time.Date(2024, 3, 1, 12, 0, 0, 900*int(time.Millisecond), time.UTC)
	c.now = func() time.Time { return stored.Add(150 * time.Millisecond) }

	require.NoError(t, c.Set(ctx, sampleEntry("email-1", stored, stored.Add(time.Second))))

	got, err := c.Get(ctx, "email-1")
	require.NoError(t, err)
	assert.True(t, stored.Add(time.Second).Equal(got.ExpiresAt))

	c.now = func() time.Time { return stored.Add(time.Second) }
	_, err = c.Get(ctx, "email-1")
	assert.ErrorIs(t, err, core.ErrCacheMiss)
}
