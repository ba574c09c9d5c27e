package filter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mikey/invoice-analyzer/internal/core"
	"go.uber.org/zap"
)

const bodyPreviewLen = 500

// CliFilter implements a command-line interface for invoice detection
type CliFilter struct {
	service    Analyzer
	logger     *zap.Logger
	out        io.Writer
	verbose    bool
	jsonOutput bool
}

// NewCliFilter creates a new CLI filter writing its report to out
func NewCliFilter(service Analyzer, logger *zap.Logger, out io.Writer, verbose, jsonOutput bool) *CliFilter {
	return &CliFilter{
		service:    service,
		logger:     logger,
		out:        out,
		verbose:    verbose,
		jsonOutput: jsonOutput,
	}
}

// ProcessEmail analyzes an email and prints the results
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.Analysis, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From))

	if !f.jsonOutput {
		f.printSummary(email)
		fmt.Fprintf(f.out, "=== Analysis ===\n")
		fmt.Fprintf(f.out, "Analyzing email...\n")
	}

	startTime := time.Now()
	analysis, _, err := f.service.Analyze(ctx, "cli-"+uuid.NewString(), email)
	if err != nil {
		f.logger.Error("Failed to analyze email", zap.Error(err))
		return nil, err
	}
	duration := time.Since(startTime)

	if f.jsonOutput {
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analysis); err != nil {
			return nil, fmt.Errorf("failed to encode analysis: %w", err)
		}
		return analysis, nil
	}

	f.printResults(analysis, duration)
	return analysis, nil
}

func (f *CliFilter) printSummary(email *core.Email) {
	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", email.From)
	fmt.Fprintf(f.out, "To: %s\n", strings.Join(email.To, ", "))
	fmt.Fprintf(f.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(email.Body))

	if f.verbose {
		preview := email.Body
		if len(preview) > bodyPreviewLen {
			cut := bodyPreviewLen
			for cut > 0 && !utf8.RuneStart(preview[cut]) {
				cut--
			}
			preview = preview[:cut] + "..."
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", preview)
	}

	fmt.Fprintf(f.out, "\n")
}

func (f *CliFilter) printResults(analysis *core.Analysis, duration time.Duration) {
	details := analysis.InvoiceDetails

	fmt.Fprintf(f.out, "\n=== Results ===\n")
	fmt.Fprintf(f.out, "Contains invoice: %t\n", analysis.ContainsInvoice)
	fmt.Fprintf(f.out, "Confidence: %d\n", analysis.Confidence)
	fmt.Fprintf(f.out, "Detection method: %s\n", analysis.DetectionMethod)
	if analysis.ContainsInvoice {
		fmt.Fprintf(f.out, "Vendor: %s\n", details.Vendor)
		fmt.Fprintf(f.out, "Amount: %s\n", optional(details.Amount))
		fmt.Fprintf(f.out, "Invoice number: %s\n", details.InvoiceNumber)
		fmt.Fprintf(f.out, "Due date: %s\n", optional(details.DueDate))
		fmt.Fprintf(f.out, "Currency: %s\n", details.Currency)
	}
	fmt.Fprintf(f.out, "Topics: %s\n", strings.Join(analysis.Topics, ", "))
	fmt.Fprintf(f.out, "Urgency: %s\n", analysis.Urgency)
	if f.verbose {
		fmt.Fprintf(f.out, "Keywords: %s\n", strings.Join(analysis.ExtractedKeywords, ", "))
		fmt.Fprintf(f.out, "Patterns: %s\n", strings.Join(analysis.Patterns, "; "))
	}
	for i, item := range analysis.ActionItems {
		fmt.Fprintf(f.out, "Action item %d: %s\n", i+1, strings.TrimSpace(item))
	}
	fmt.Fprintf(f.out, "Summary: %s\n", analysis.Summary)
	fmt.Fprintf(f.out, "Analysis method: %s\n", analysis.AnalysisMethod)
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)
}

func optional(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}

// ParseMessage reads an RFC 822 message into an email, decoding the subject
// and keeping only the text parts of the body
func ParseMessage(r io.Reader) (*core.Email, error) {
	msg, err := mail.ReadMessage(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}

	body, err := extractTextFromMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to read email body: %w", err)
	}

	subject := msg.Header.Get("Subject")
	if decoded, err := decodeEncodedHeader(subject); err == nil {
		subject = decoded
	}
	from := msg.Header.Get("From")
	if decoded, err := decodeEncodedHeader(from); err == nil {
		from = decoded
	}

	var to []string
	if list, err := msg.Header.AddressList("To"); err == nil {
		for _, addr := range list {
			to = append(to, addr.Address)
		}
	} else if raw := msg.Header.Get("To"); raw != "" {
		for _, addr := range strings.Split(raw, ",") {
			to = append(to, strings.TrimSpace(addr))
		}
	}

	return &core.Email{
		Subject: subject,
		From:    from,
		Body:    body,
		To:      to,
		Headers: msg.Header,
	}, nil
}
