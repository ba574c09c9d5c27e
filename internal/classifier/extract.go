package classifier

import (
	"strings"

	"github.com/mikey/invoice-analyzer/internal/core"
)

// extractAmount returns the leftmost match of the first amount pattern that
// matches anything, verbatim.
func extractAmount(content string) (string, bool) {
	for _, pattern := range amountPatterns {
		if match := pattern.FindString(content); match != "" {
			return match, true
		}
	}
	return "", false
}

// extractInvoiceNumber prefers the INV-YYYY-NNN form, then falls through the
// looser patterns until one captures more than two characters.
func extractInvoiceNumber(content string) (string, bool) {
	if match := invoiceIDPattern.FindString(content); match != "" {
		return match, true
	}

	for _, pattern := range looseInvoiceNumberPatterns {
		groups := pattern.FindStringSubmatch(content)
		if len(groups) > 1 && len(groups[1]) > minInvoiceNumberLen {
			return groups[1], true
		}
	}
	return "", false
}

// extractVendor returns the domain part of a From header: the text between
// the first and second "@", without a closing angle bracket.
func extractVendor(from string) string {
	parts := strings.Split(from, "@")
	if len(parts) < 2 {
		return core.UnknownVendor
	}

	vendor := strings.TrimSpace(strings.TrimRight(parts[1], "> \t"))
	if vendor == "" {
		return core.UnknownVendor
	}
	return vendor
}

func extractDueDate(content string) (string, bool) {
	for _, pattern := range dueDatePatterns {
		groups := pattern.FindStringSubmatch(content)
		if len(groups) > 1 && groups[1] != "" {
			return strings.TrimSpace(groups[1]), true
		}
	}
	return "", false
}
