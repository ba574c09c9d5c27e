package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingClassifier struct {
	calls int
	err   error
}

func (c *countingClassifier) Classify(_ context.Context, email *Email) (*Analysis, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &Analysis{
		ContainsInvoice: true,
		Confidence:      40 + c.calls,
		AnalysisMethod:  AnalysisMethodEnhanced,
		Summary:         email.Subject,
	}, nil
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
	getErr  error
	deleted []string
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]*CacheEntry{}}
}

func (m *mapCache) Get(_ context.Context, id string) (*CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrCacheMiss
	}
	return e, nil
}

func (m *mapCache) Set(_ context.Context, e *CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.EmailID] = e
	return nil
}

func (m *mapCache) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	delete(m.entries, id)
	return nil
}

func (m *mapCache) Cleanup(context.Context) error { return nil }

type recordingObserver struct {
	cached      []bool
	cacheErrors []string
}

func (r *recordingObserver) ObserveAnalysis(_ string, _ bool, cached bool, _ float64) {
	r.cached = append(r.cached, cached)
}

func (r *recordingObserver) ObserveCacheError(op string) {
	r.cacheErrors = append(r.cacheErrors, op)
}

func newService(classifier Classifier, cache CacheRepository, observer AnalysisObserver, ttl time.Duration) *AnalysisService {
	return NewAnalysisService(classifier, cache, observer, zap.NewNop(), CacheOptions{
		Enabled:       true,
		TTL:           ttl,
		BypassMarkers: DefaultBypassMarkers,
	})
}

func TestAnalyze_SecondCallIsCached(t *testing.T) {
	classifier := &countingClassifier{}
	observer := &recordingObserver{}
	svc := newService(classifier, newMapCache(), observer, 0)
	email := &Email{Subject: "Invoice"}

	first, cached, err := svc.Analyze(context.Background(), "email-1", email)
	require.NoError(t, err)
	assert.False(t, cached)

	second, cached, err := svc.Analyze(context.Background(), "email-1", email)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, classifier.calls)
	assert.Equal(t, []bool{false, true}, observer.cached)
}

func TestAnalyze_BypassMarkers(t *testing.T) {
	for _, id := range []string{"test-123", "run-debug-7"} {
		t.Run(id, func(t *testing.T) {
			classifier := &countingClassifier{}
			cache := newMapCache()
			svc := newService(classifier, cache, nil, 0)

			_, _, err := svc.Analyze(context.Background(), id, &Email{})
			require.NoError(t, err)
			second, cached, err := svc.Analyze(context.Background(), id, &Email{})
			require.NoError(t, err)

			assert.False(t, cached)
			assert.Equal(t, 2, classifier.calls)
			assert.Equal(t, 42, second.Confidence, "the recomputed result is returned")
			assert.Equal(t, []string{id, id}, cache.deleted)
		})
	}
}

func TestAnalyze_TTLSetsExpiry(t *testing.T) {
	cache := newMapCache()
	svc := newService(&countingClassifier{}, cache, nil, time.Hour)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, _, err := svc.Analyze(context.Background(), "email-1", &Email{})
	require.NoError(t, err)

	entry := cache.entries["email-1"]
	require.NotNil(t, entry)
	assert.Equal(t, now, entry.CreatedAt)
	assert.Equal(t, now.Add(time.Hour), entry.ExpiresAt)
}

func TestAnalyze_NoTTLNeverExpires(t *testing.T) {
	cache := newMapCache()
	svc := newService(&countingClassifier{}, cache, nil, 0)

	_, _, err := svc.Analyze(context.Background(), "email-1", &Email{})
	require.NoError(t, err)

	entry := cache.entries["email-1"]
	require.NotNil(t, entry)
	assert.True(t, entry.ExpiresAt.IsZero())
	assert.False(t, entry.Expired(time.Now().Add(100*365*24*time.Hour)))
}

func TestAnalyze_CacheErrorsDegrade(t *testing.T) {
	cache := newMapCache()
	cache.getErr = errors.New("connection refused")
	observer := &recordingObserver{}
	svc := newService(&countingClassifier{}, cache, observer, 0)

	analysis, cached, err := svc.Analyze(context.Background(), "email-1", &Email{})

	require.NoError(t, err)
	assert.False(t, cached)
	assert.NotNil(t, analysis)
	assert.Equal(t, []string{"get"}, observer.cacheErrors)
}

func TestAnalyze_ClassifierError(t *testing.T) {
	svc := newService(&countingClassifier{err: errors.New("boom")}, newMapCache(), nil, 0)

	_, _, err := svc.Analyze(context.Background(), "email-1", &Email{})

	assert.Error(t, err)
}

func TestAnalyze_NilEmail(t *testing.T) {
	svc := newService(&countingClassifier{}, newMapCache(), nil, 0)

	_, _, err := svc.Analyze(context.Background(), "email-1", nil)

	assert.Error(t, err)
}

func TestAnalyze_WithoutCache(t *testing.T) {
	classifier := &countingClassifier{}
	svc := NewAnalysisService(classifier, nil, nil, zap.NewNop(), CacheOptions{Enabled: true})

	for i := 0; i < 2; i++ {
		_, cached, err := svc.Analyze(context.Background(), "email-1", &Email{})
		require.NoError(t, err)
		assert.False(t, cached)
	}
	assert.Equal(t, 2, classifier.calls)
}

func TestCacheEntry_Expired(t *testing.T) {
	now := time.Now()

	assert.False(t, (&CacheEntry{}).Expired(now))
	assert.False(t, (&CacheEntry{ExpiresAt: now.Add(time.Second)}).Expired(now))
	assert.True(t, (&CacheEntry{ExpiresAt: now}).Expired(now))
	assert.True(t, (&CacheEntry{ExpiresAt: now.Add(-time.Second)}).Expired(now))
}
