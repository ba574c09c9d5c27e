package ports

import (
	"context"

	"github.com/mikey/invoice-analyzer/internal/core"
)

// EmailFilter defines the interface for an email intake surface
type EmailFilter interface {
	// ProcessEmail analyzes an email and returns the result
	ProcessEmail(ctx context.Context, email *core.Email) (*core.Analysis, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}
