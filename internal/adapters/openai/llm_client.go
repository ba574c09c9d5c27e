package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey/invoice-analyzer/internal/core"
	"github.com/mikey/invoice-analyzer/internal/prompt"
	"github.com/mikey/invoice-analyzer/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// chatCompleter is the part of *openai.Client used here
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client        chatCompleter
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client chatCompleter,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// ExtractInvoice asks the model for the invoice fields of an email
func (c *OpenAIClient) ExtractInvoice(ctx context.Context, email *core.Email) (*core.InvoiceExtraction, error) {
	body := c.textProcessor.ProcessText(email.Body, c.maxBodySize)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: prompt.SystemMessage,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt.Invoice(email, body),
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response from OpenAI")
	}

	extraction, err := prompt.ParseInvoiceResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	extraction.ModelUsed = c.modelName
	extraction.ProcessingID = resp.ID

	c.logger.Debug("OpenAI invoice extraction",
		zap.String("model", c.modelName),
		zap.String("processing_id", resp.ID),
		zap.Bool("contains_invoice", extraction.ContainsInvoice))

	return extraction, nil
}
