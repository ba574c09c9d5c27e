package core

import (
	"context"
)

// Classifier produces an analysis for an email
type Classifier interface {
	// Classify analyzes a single email
	Classify(ctx context.Context, email *Email) (*Analysis, error)
}

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// ExtractInvoice asks the model whether the email is an invoice and for its fields
	ExtractInvoice(ctx context.Context, email *Email) (*InvoiceExtraction, error)
}

// CacheRepository defines the interface for caching analysis results
type CacheRepository interface {
	// Get retrieves a cached entry for an email id, or ErrCacheMiss
	Get(ctx context.Context, emailID string) (*CacheEntry, error)

	// Set stores a cache entry, replacing any previous one
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, emailID string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// AnalysisObserver receives the outcome of each service call
type AnalysisObserver interface {
	ObserveAnalysis(method string, containsInvoice bool, cached bool, seconds float64)
	ObserveCacheError(operation string)
}
