// Package whitelist matches sender addresses against a list of domains.
package whitelist

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// Checker reports whether a sender belongs to one of the listed domains
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new domain checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}

	normalized := make(map[string]struct{}, len(domains))
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			normalized[domain] = struct{}{}
		}
	}

	if len(normalized) > 0 {
		logger.Info("Initialized domain whitelist", zap.Int("domains", len(normalized)))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsWhitelisted checks if the sender's domain is listed. from may be a bare
// address or a full From header value.
func (c *Checker) IsWhitelisted(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	domain := SenderDomain(from)
	if domain == "" {
		return false
	}

	if _, ok := c.domains[domain]; ok {
		c.logger.Debug("Domain is whitelisted",
			zap.String("domain", domain),
			zap.String("email", from))
		return true
	}

	return false
}

// SenderDomain returns the lowercase domain of an address, or "" when there is none
func SenderDomain(from string) string {
	address := strings.TrimSpace(from)
	if parsed, err := mail.ParseAddress(address); err == nil {
		address = parsed.Address
	}

	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(strings.Trim(address[at+1:], "<> "))
}
