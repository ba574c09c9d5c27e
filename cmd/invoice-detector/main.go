// Command invoice-detector classifies a single email from a file, stdin or flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mikey/invoice-analyzer/internal/adapters/filter"
	"github.com/mikey/invoice-analyzer/internal/core"
	"github.com/mikey/invoice-analyzer/internal/di"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flags = &di.CLIFlags{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "invoice-detector",
	Short: "Detect invoices in a single email",
	Long: `invoice-detector classifies one email and reports whether it is an invoice.

Examples:
  # Classify an RFC 822 message
  invoice-detector --file message.eml

  # Classify from stdin and print JSON
  cat message.eml | invoice-detector --json

  # Classify fields given on the command line
  invoice-detector --subject "Invoice #123" --from billing@acme.com --body "Amount due: $10.00"

  # Use the LLM-assisted classifier
  invoice-detector --method llm --provider openai --openai-api-key sk-... --file message.eml`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runDetect,
}

func init() {
	f := rootCmd.Flags()

	// Input flags
	f.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	f.StringVar(&flags.Subject, "subject", "", "Email subject (skips message parsing)")
	f.StringVar(&flags.From, "from", "", "Email sender")
	f.StringVar(&flags.Body, "body", "", "Email body (skips message parsing)")

	// Output flags
	f.BoolVar(&flags.JSONOutput, "json", false, "Print the analysis as JSON")
	f.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose output and logging")
	f.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	f.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	// Classifier flags
	f.StringVar(&flags.Method, "method", core.AnalysisMethodEnhanced, "Classifier (enhanced, llm)")

	// LLM provider flags
	f.StringVar(&flags.Provider, "provider", "bedrock", "LLM provider (bedrock, gemini, openai)")
	f.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for LLM response")
	f.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for LLM generation")
	f.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for LLM generation")
	f.IntVar(&flags.MaxBodySize, "max-body-size", 4096, "Maximum email body size to send to LLM")

	// Bedrock flags
	f.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	f.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-3-haiku-20240307-v1:0", "Bedrock model ID")

	// Gemini flags
	f.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	f.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-1.5-flash", "Gemini model name")

	// OpenAI flags
	f.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	f.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4o-mini", "OpenAI model name")
}

func runDetect(cmd *cobra.Command, _ []string) error {
	container, err := di.BuildCLIContainer(flags, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(func(logger *zap.Logger, cli *filter.CliFilter, llm *di.LLMHandle) error {
		defer logger.Sync()

		if closer, ok := llm.Client.(io.Closer); ok {
			defer closer.Close()
		}

		email, err := readEmail(cmd.InOrStdin(), logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()

		_, err = cli.ProcessEmail(ctx, email)
		return err
	})
}

// readEmail builds the email from flags when given, otherwise parses a message
func readEmail(stdin io.Reader, logger *zap.Logger) (*core.Email, error) {
	if flags.Subject != "" || flags.Body != "" {
		return &core.Email{
			Subject: flags.Subject,
			From:    flags.From,
			Body:    flags.Body,
		}, nil
	}

	reader := stdin
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		reader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		logger.Info("Reading email from stdin")
	}

	email, err := filter.ParseMessage(reader)
	if err != nil {
		return nil, err
	}
	if email.Body == "" && email.Subject == "" {
		return nil, errors.New("email has neither subject nor body")
	}
	return email, nil
}
