package di

import (
	"github.com/mikey/invoice-analyzer/internal/config"
	"github.com/mikey/invoice-analyzer/internal/core"
	"github.com/mikey/invoice-analyzer/internal/factory"
	"github.com/mikey/invoice-analyzer/internal/logging"
	"github.com/mikey/invoice-analyzer/internal/metrics"
	"github.com/mikey/invoice-analyzer/internal/ports"
	"github.com/mikey/invoice-analyzer/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

// CacheHandle carries the configured cache, nil when caching is disabled
type CacheHandle struct {
	Cache factory.StoppableCache
}

// LLMHandle carries the LLM client, nil unless the llm classifier is selected
type LLMHandle struct {
	Client core.LLMClient
}

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(newRegistry); err != nil {
		return nil, err
	}
	if err := container.Provide(func(reg *prometheus.Registry) (*metrics.Recorder, error) {
		return metrics.NewRecorder(reg)
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
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewFilterFactory); err != nil {
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

	// Register cache repository
	if err := container.Provide(func(f *factory.CacheFactory) (*CacheHandle, error) {
		c, err := f.CreateCacheRepository()
		if err != nil {
			return nil, err
		}
		return &CacheHandle{Cache: c}, nil
	}); err != nil {
		return nil, err
	}

	// Register analysis service
	if err := container.Provide(func(
		classifier core.Classifier,
		cacheHandle *CacheHandle,
		recorder *metrics.Recorder,
		logger *zap.Logger,
		f *factory.CacheFactory,
	) (*core.AnalysisService, error) {
		opts, err := f.CacheOptions()
		if err != nil {
			return nil, err
		}
		var repo core.CacheRepository
		if cacheHandle.Cache != nil {
			repo = cacheHandle.Cache
		}
		return core.NewAnalysisService(classifier, repo, recorder, logger, opts), nil
	}); err != nil {
		return nil, err
	}

	// Register email filters
	if err := container.Provide(func(f *factory.FilterFactory) ([]ports.EmailFilter, error) {
		return f.CreateEmailFilters()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideClassifier(f *factory.ClassifierFactory) (core.Classifier, *LLMHandle, error) {
	classifier, client, err := f.CreateClassifier()
	if err != nil {
		return nil, nil, err
	}
	return classifier, &LLMHandle{Client: client}, nil
}
