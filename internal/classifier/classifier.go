// Package classifier implements the keyword and pattern heuristics that decide
// whether an email is an invoice and pull out its billing fields.
//
// Every signal adds to an integer confidence score; the patterns and
// extractedKeywords lists record which rules fired. Classification is pure:
// the only input besides the email is the clock used for the analysis date.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/invoice-analyzer/internal/core"
)

// Classifier is the heuristic invoice classifier
type Classifier struct {
	now func() time.Time
}

// Option configures a Classifier
type Option func(*Classifier)

// WithClock sets the clock used for the analysis date
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a heuristic classifier
func New(opts ...Option) *Classifier {
	c := &Classifier{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify implements core.Classifier. It never returns an error.
func (c *Classifier) Classify(_ context.Context, email *core.Email) (*core.Analysis, error) {
	if email == nil {
		email = &core.Email{}
	}
	return c.Analyze(*email), nil
}

// Analyze runs the tiered invoice detection and the auxiliary derivations
func (c *Classifier) Analyze(email core.Email) *core.Analysis {
	content := strings.ToLower(email.Subject + " " + email.Body)

	analysis := &core.Analysis{
		DetectionMethod: core.DetectionNone,
		InvoiceDetails: core.InvoiceDetails{
			Vendor:        core.UnknownVendor,
			Date:          c.now().UTC().Format(analysisDateLayout),
			InvoiceNumber: core.NoInvoiceNumber,
			Currency:      core.DefaultCurrency,
		},
		ExtractedKeywords: []string{},
		Patterns:          []string{},
		AnalysisMethod:    core.AnalysisMethodEnhanced,
	}
	score := 0

	if matches := matchKeywords(content, strongKeywords); len(matches) > 0 {
		analysis.ContainsInvoice = true
		analysis.DetectionMethod = core.DetectionStrongKeywords
		analysis.ExtractedKeywords = append(analysis.ExtractedKeywords, matches...)
		score += strongKeywordScore
	}

	if amount, ok := extractAmount(content); ok {
		analysis.InvoiceDetails.Amount = &amount
		analysis.Patterns = append(analysis.Patterns, fmt.Sprintf("amount_pattern: %s", amount))
		score += amountScore
	}

	if number, ok := extractInvoiceNumber(content); ok {
		analysis.InvoiceDetails.InvoiceNumber = number
		analysis.Patterns = append(analysis.Patterns, fmt.Sprintf("invoice_number: %s", number))
		score += invoiceNumberScore
	}

	analysis.InvoiceDetails.Vendor = extractVendor(email.From)
	if analysis.InvoiceDetails.Vendor != core.UnknownVendor {
		score += vendorScore
	}

	if dueDate, ok := extractDueDate(content); ok {
		analysis.InvoiceDetails.DueDate = &dueDate
		analysis.Patterns = append(analysis.Patterns, fmt.Sprintf("due_date: %s", dueDate))
		score += dueDateScore
	}

	if !analysis.ContainsInvoice {
		if matches := matchKeywords(content, weakKeywords); len(matches) > 0 {
			analysis.ContainsInvoice = true
			analysis.DetectionMethod = core.DetectionWeakKeywords
			analysis.ExtractedKeywords = append(analysis.ExtractedKeywords, matches...)
			score += weakKeywordScore
		}
	}

	analysis.Confidence = finalConfidence(analysis.ContainsInvoice, score)

	analysis.Topics = extractTopics(content)
	analysis.Urgency = determineUrgency(content)
	analysis.ActionItems = extractActionItems(content)
	analysis.Summary = generateSummary(email)

	return analysis
}

// finalConfidence applies the floor and cap to a raw score. Scores of emails
// that were not flagged are discarded.
func finalConfidence(containsInvoice bool, score int) int {
	if !containsInvoice {
		return 0
	}
	if score < confidenceFloor {
		return confidenceFloor
	}
	if score > confidenceCap {
		return confidenceCap
	}
	return score
}

func matchKeywords(content string, keywords []string) []string {
	var matches []string
	for _, keyword := range keywords {
		if strings.Contains(content, keyword) {
			matches = append(matches, keyword)
		}
	}
	return matches
}

func containsAny(content string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(content, keyword) {
			return true
		}
	}
	return false
}
