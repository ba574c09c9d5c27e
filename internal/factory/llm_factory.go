package factory

import (
	"fmt"

	"github.com/mikey/invoice-analyzer/internal/adapters/bedrock"
	"github.com/mikey/invoice-analyzer/internal/adapters/gemini"
	"github.com/mikey/invoice-analyzer/internal/adapters/openai"
	"github.com/mikey/invoice-analyzer/internal/config"
	"github.com/mikey/invoice-analyzer/internal/core"
	"github.com/mikey/invoice-analyzer/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "bedrock":
		client, err := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		client, err := gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai":
		client, err := openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
