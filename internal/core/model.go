package core

import (
	"errors"
	"time"
)

// ErrCacheMiss is returned by cache repositories when no live entry exists
var ErrCacheMiss = errors.New("cache entry not found")

// Email represents an email message submitted for analysis
type Email struct {
	Subject string              `json:"subject"`
	From    string              `json:"from"`
	Body    string              `json:"body"`
	To      []string            `json:"-"`
	Headers map[string][]string `json:"-"`
}

// DetectionMethod names the keyword tier that flagged an invoice
type DetectionMethod string

const (
	DetectionNone           DetectionMethod = "none"
	DetectionStrongKeywords DetectionMethod = "strong_keywords"
	DetectionWeakKeywords   DetectionMethod = "weak_keywords"
	DetectionLLM            DetectionMethod = "llm"
)

// Urgency is the coarse urgency bucket derived from cue words
type Urgency string

const (
	UrgencyLow    Urgency = "Low"
	UrgencyMedium Urgency = "Medium"
	UrgencyHigh   Urgency = "High"
)

const (
	// AnalysisMethodEnhanced tags results produced by the keyword/regex classifier
	AnalysisMethodEnhanced = "enhanced"
	// AnalysisMethodLLM tags results whose invoice fields came from a language model
	AnalysisMethodLLM = "llm"

	// UnknownVendor is reported when the sender has no domain part
	UnknownVendor = "Unknown"
	// NoInvoiceNumber is reported when no invoice number pattern matched
	NoInvoiceNumber = "N/A"
	// DefaultCurrency is the only currency ever reported
	DefaultCurrency = "USD"
)

// InvoiceDetails holds the fields extracted from an invoice-like email.
// Date is the day the analysis ran, not a date found in the email.
type InvoiceDetails struct {
	Vendor        string  `json:"vendor"`
	Amount        *string `json:"amount"`
	Date          string  `json:"date"`
	InvoiceNumber string  `json:"invoiceNumber"`
	DueDate       *string `json:"dueDate"`
	Currency      string  `json:"currency"`
}

// Analysis is the classification result for a single email
type Analysis struct {
	ContainsInvoice   bool            `json:"containsInvoice"`
	Confidence        int             `json:"confidence"`
	DetectionMethod   DetectionMethod `json:"detectionMethod"`
	InvoiceDetails    InvoiceDetails  `json:"invoiceDetails"`
	ExtractedKeywords []string        `json:"extractedKeywords"`
	Patterns          []string        `json:"patterns"`
	Topics            []string        `json:"topics"`
	Urgency           Urgency         `json:"urgency"`
	ActionItems       []string        `json:"actionItems"`
	Summary           string          `json:"summary"`
	AnalysisMethod    string          `json:"analysisMethod"`
}

// InvoiceExtraction is what an LLM client reports about an email
type InvoiceExtraction struct {
	ContainsInvoice bool
	Confidence      int
	Vendor          string
	Amount          string
	InvoiceNumber   string
	DueDate         string
	Explanation     string
	ModelUsed       string
	ProcessingID    string
}

// CacheEntry is a stored analysis keyed by the caller's email id
type CacheEntry struct {
	EmailID   string
	Analysis  *Analysis
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry has a TTL that has elapsed at now
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}
