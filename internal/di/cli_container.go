package di

import (
	"io"

	"github.com/mikey/invoice-analyzer/internal/adapters/filter"
	"github.com/mikey/invoice-analyzer/internal/config"
	"github.com/mikey/invoice-analyzer/internal/core"
	"github.com/mikey/invoice-analyzer/internal/factory"
	"github.com/mikey/invoice-analyzer/internal/logging"
	"github.com/mikey/invoice-analyzer/internal/utils"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Input flags
	InputFile string
	Subject   string
	From      string
	Body      string

	// Output flags
	JSONOutput bool
	Verbose    bool
	JSONLog    bool
	ConfigFile string

	// Classifier flags
	Method string

	// LLM provider flags
	Provider    string
	MaxTokens   int
	Temperature float64
	TopP        float64
	MaxBodySize int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string
}

// BuildCLIContainer creates and configures a dependency injection container for
// the CLI application. Reports are written to out.
func BuildCLIContainer(flags *CLIFlags, out io.Writer) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(logger *zap.Logger) *utils.TextProcessor {
		return utils.NewTextProcessor(logger.Named("text"))
	}); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(provideClassifier); err != nil {
		return nil, err
	}

	// Register analysis service with no cache
	if err := container.Provide(func(classifier core.Classifier, logger *zap.Logger) *core.AnalysisService {
		return core.NewAnalysisService(classifier, nil, nil, logger, core.CacheOptions{})
	}); err != nil {
		return nil, err
	}

	// Register CLI filter
	if err := container.Provide(func(service *core.AnalysisService, logger *zap.Logger, flags *CLIFlags) *filter.CliFilter {
		return filter.NewCliFilter(service, logger, out, flags.Verbose, flags.JSONOutput)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("cache.enabled", false)
	v.Set("metrics.enabled", false)
	if flags.Method != "" {
		v.Set("analyzer.method", flags.Method)
	}

	// Set LLM provider
	if flags.Provider != "" {
		v.Set("llm.provider", flags.Provider)
	}

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
		v.Set("bedrock.max_body_size", flags.MaxBodySize)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
		v.Set("gemini.max_body_size", flags.MaxBodySize)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
		v.Set("openai.max_body_size", flags.MaxBodySize)
	}

	return config.NewFromViper(v)
}
