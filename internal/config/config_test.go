package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	server, err := cfg.GetServer()
	require.NoError(t, err)
	assert.Equal(t, ":3005", server.ListenAddress)
	assert.Equal(t, 10*time.Second, server.ShutdownTimeout)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.True(t, cache.Enabled)
	assert.Equal(t, "memory", cache.Type)
	assert.Equal(t, time.Duration(0), cache.TTL)
	assert.Equal(t, []string{"test-", "debug-"}, cache.BypassMarkers)

	smtp, err := cfg.GetSMTP()
	require.NoError(t, err)
	assert.False(t, smtp.Enabled)
	assert.Equal(t, "X-Invoice-Detected", smtp.InvoiceHeader)
	assert.Equal(t, 10*time.Second, smtp.AnalysisTimeout)

	assert.Equal(t, "enhanced", cfg.GetString("analyzer.method"))
	assert.Equal(t, "bedrock", cfg.GetLLM().Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.GetOpenAI().ModelName)
	assert.InDelta(t, 0.1, cfg.GetGemini().Temperature, 1e-6)
	assert.Equal(t, 4096, cfg.GetBedrock().MaxBodySize)
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  listen_address: ":8080"
cache:
  type: sqlite
  ttl: 24h
smtp:
  enabled: true
  skip_domains:
    - example.com
    - partner.org
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	server, err := cfg.GetServer()
	require.NoError(t, err)
	assert.Equal(t, ":8080", server.ListenAddress)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cache.Type)
	assert.Equal(t, 24*time.Hour, cache.TTL)

	smtp, err := cfg.GetSMTP()
	require.NoError(t, err)
	assert.True(t, smtp.Enabled)
	assert.Equal(t, []string{"example.com", "partner.org"}, smtp.SkipDomains)
}

func TestNewFromFile_Missing(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetDuration_Invalid(t *testing.T) {
	v := NewEmptyViper()
	v.Set("cache.ttl", "forever")
	cfg := NewFromViper(v)

	_, err := cfg.GetCache()
	assert.Error(t, err)
}
