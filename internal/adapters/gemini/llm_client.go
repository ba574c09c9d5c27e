package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/invoice-analyzer/internal/core"
	"github.com/mikey/invoice-analyzer/internal/prompt"
	"github.com/mikey/invoice-analyzer/internal/utils"
	"go.uber.org/zap"
)

// contentGenerator is the part of *genai.GenerativeModel used here
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClient is an implementation of the LLMClient interface using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	model         contentGenerator
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiClient creates a new Gemini client around a configured model.
// client may be nil when the caller owns its lifetime.
func NewGeminiClient(
	client *genai.Client,
	model contentGenerator,
	modelName string,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *GeminiClient {
	return &GeminiClient{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ExtractInvoice asks the model for the invoice fields of an email
func (c *GeminiClient) ExtractInvoice(ctx context.Context, email *core.Email) (*core.InvoiceExtraction, error) {
	body := c.textProcessor.ProcessText(email.Body, c.maxBodySize)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt.Invoice(email, body)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	responseText := candidateText(resp)
	if responseText == "" {
		return nil, errors.New("empty response from Gemini")
	}

	extraction, err := prompt.ParseInvoiceResponse(responseText)
	if err != nil {
		return nil, err
	}
	extraction.ModelUsed = c.modelName

	c.logger.Debug("Gemini invoice extraction",
		zap.String("model", c.modelName),
		zap.Bool("contains_invoice", extraction.ContainsInvoice))

	return extraction, nil
}

// candidateText joins the text parts of the first candidate
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
