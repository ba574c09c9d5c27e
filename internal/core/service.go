package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBypassMarkers mark email ids whose cached result is always recomputed
var DefaultBypassMarkers = []string{"test-", "debug-"}

// CacheOptions controls how the analysis service uses its cache
type CacheOptions struct {
	Enabled       bool
	TTL           time.Duration
	BypassMarkers []string
}

// AnalysisService is the core service for invoice analysis
type AnalysisService struct {
	classifier Classifier
	cache      CacheRepository
	observer   AnalysisObserver
	logger     *zap.Logger
	opts       CacheOptions
	now        func() time.Time
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(
	classifier Classifier,
	cache CacheRepository,
	observer AnalysisObserver,
	logger *zap.Logger,
	opts CacheOptions,
) *AnalysisService {
	if observer == nil {
		observer = nopObserver{}
	}
	if cache == nil {
		opts.Enabled = false
	}
	return &AnalysisService{
		classifier: classifier,
		cache:      cache,
		observer:   observer,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// shouldBypass reports whether the id carries one of the bypass markers
func (s *AnalysisService) shouldBypass(emailID string) bool {
	for _, marker := range s.opts.BypassMarkers {
		if marker != "" && strings.Contains(emailID, marker) {
			return true
		}
	}
	return false
}

// Analyze classifies an email, serving and storing results through the cache.
// The returned bool is true when the analysis came from the cache.
func (s *AnalysisService) Analyze(ctx context.Context, emailID string, email *Email) (*Analysis, bool, error) {
	if email == nil {
		return nil, false, errors.New("email content is required")
	}
	start := s.now()

	if s.opts.Enabled {
		if s.shouldBypass(emailID) {
			if err := s.cache.Delete(ctx, emailID); err != nil {
				s.observer.ObserveCacheError("delete")
				s.logger.Warn("Failed to clear cached analysis", zap.String("email_id", emailID), zap.Error(err))
			} else {
				s.logger.Debug("Cleared cache for test email", zap.String("email_id", emailID))
			}
		}

		entry, err := s.cache.Get(ctx, emailID)
		switch {
		case err == nil:
			s.logger.Debug("Cache hit for email", zap.String("email_id", emailID))
			s.observer.ObserveAnalysis(entry.Analysis.AnalysisMethod, entry.Analysis.ContainsInvoice, true, s.now().Sub(start).Seconds())
			return entry.Analysis, true, nil
		case !errors.Is(err, ErrCacheMiss):
			s.observer.ObserveCacheError("get")
			s.logger.Warn("Cache lookup failed", zap.String("email_id", emailID), zap.Error(err))
		}
	}

	analysis, err := s.classifier.Classify(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to classify email %q: %w", emailID, err)
	}

	if s.opts.Enabled {
		now := s.now()
		entry := &CacheEntry{
			EmailID:   emailID,
			Analysis:  analysis,
			CreatedAt: now,
		}
		if s.opts.TTL > 0 {
			entry.ExpiresAt = now.Add(s.opts.TTL)
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.observer.ObserveCacheError("set")
			s.logger.Error("Failed to update cache", zap.String("email_id", emailID), zap.Error(err))
		}
	}

	s.observer.ObserveAnalysis(analysis.AnalysisMethod, analysis.ContainsInvoice, false, s.now().Sub(start).Seconds())
	s.logger.Info("Analysis completed",
		zap.String("email_id", emailID),
		zap.Bool("contains_invoice", analysis.ContainsInvoice),
		zap.Int("confidence", analysis.Confidence),
		zap.String("detection_method", string(analysis.DetectionMethod)),
		zap.String("analysis_method", analysis.AnalysisMethod))

	return analysis, false, nil
}

type nopObserver struct{}

func (nopObserver) ObserveAnalysis(string, bool, bool, float64) {}
func (nopObserver) ObserveCacheError(string) {}
