package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikey/invoice-analyzer/internal/core"
	"go.uber.org/zap"
)

// LLMClassifier asks a language model for the invoice fields and keeps the
// heuristic result for everything else. When the model call fails the
// heuristic result is returned unchanged.
type LLMClassifier struct {
	client    core.LLMClient
	heuristic *Classifier
	logger    *zap.Logger
}

// NewLLMClassifier creates a classifier backed by an LLM client
func NewLLMClassifier(client core.LLMClient, heuristic *Classifier, logger *zap.Logger) *LLMClassifier {
	if heuristic == nil {
		heuristic = New()
	}
	return &LLMClassifier{
		client:    client,
		heuristic: heuristic,
		logger:    logger,
	}
}

// Classify implements core.Classifier
func (c *LLMClassifier) Classify(ctx context.Context, email *core.Email) (*core.Analysis, error) {
	if email == nil {
		email = &core.Email{}
	}
	base, err := c.heuristic.Classify(ctx, email)
	if err != nil {
		return nil, err
	}

	extraction, err := c.client.ExtractInvoice(ctx, email)
	if err != nil {
		c.logger.Warn("LLM analysis failed, using heuristic result",
			zap.String("sender", email.From),
			zap.Error(err))
		return base, nil
	}

	return mergeExtraction(base, extraction), nil
}

// mergeExtraction overlays the model's answer onto a heuristic analysis and
// re-applies the confidence invariants.
func mergeExtraction(base *core.Analysis, ext *core.InvoiceExtraction) *core.Analysis {
	merged := *base
	merged.InvoiceDetails = base.InvoiceDetails
	merged.Patterns = append([]string{}, base.Patterns...)
	merged.AnalysisMethod = core.AnalysisMethodLLM
	merged.ContainsInvoice = ext.ContainsInvoice

	if ext.ContainsInvoice {
		merged.DetectionMethod = core.DetectionLLM
	} else {
		merged.DetectionMethod = core.DetectionNone
	}

	if vendor := strings.TrimSpace(ext.Vendor); vendor != "" && !strings.EqualFold(vendor, core.UnknownVendor) {
		merged.InvoiceDetails.Vendor = vendor
	}
	if amount := strings.TrimSpace(ext.Amount); amount != "" {
		merged.InvoiceDetails.Amount = &amount
		merged.Patterns = append(merged.Patterns, fmt.Sprintf("llm_amount: %s", amount))
	}
	if number := strings.TrimSpace(ext.InvoiceNumber); number != "" && number != core.NoInvoiceNumber {
		merged.InvoiceDetails.InvoiceNumber = number
		merged.Patterns = append(merged.Patterns, fmt.Sprintf("llm_invoice_number: %s", number))
	}
	if dueDate := strings.TrimSpace(ext.DueDate); dueDate != "" {
		merged.InvoiceDetails.DueDate = &dueDate
		merged.Patterns = append(merged.Patterns, fmt.Sprintf("llm_due_date: %s", dueDate))
	}
	if ext.ModelUsed != "" {
		merged.Patterns = append(merged.Patterns, fmt.Sprintf("llm_model: %s", ext.ModelUsed))
	}

	score := ext.Confidence
	if score < 0 {
		score = 0
	}
	merged.Confidence = finalConfidence(merged.ContainsInvoice, score)

	return &merged
}
