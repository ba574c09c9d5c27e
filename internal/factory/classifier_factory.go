package factory

import (
	"fmt"

	"github.com/mikey/invoice-analyzer/internal/classifier"
	"github.com/mikey/invoice-analyzer/internal/config"
	"github.com/mikey/invoice-analyzer/internal/core"
	"go.uber.org/zap"
)

// ClassifierFactory creates the classifier variant selected by analyzer.method
type ClassifierFactory struct {
	cfg        *config.Config
	logger     *zap.Logger
	llmFactory *LLMFactory
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, llmFactory *LLMFactory) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:        cfg,
		logger:     logger,
		llmFactory: llmFactory,
	}
}

// CreateClassifier creates the configured classifier. The returned LLM client
// is nil unless the llm variant was selected; callers own its lifetime.
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, core.LLMClient, error) {
	method := f.cfg.GetString("analyzer.method")

	switch method {
	case core.AnalysisMethodEnhanced, "":
		return classifier.New(), nil, nil
	case core.AnalysisMethodLLM:
		client, err := f.llmFactory.CreateLLMClient()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		f.logger.Info("Using LLM-assisted classifier", zap.String("provider", f.cfg.GetLLM().Provider))
		return classifier.NewLLMClassifier(client, classifier.New(), f.logger), client, nil
	default:
		return nil, nil, fmt.Errorf("unsupported analyzer method: %s", method)
	}
}
