package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/invoice-analyzer/internal/di"
	"github.com/mikey/invoice-analyzer/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	filters []ports.EmailFilter,
	llm *di.LLMHandle,
	cache *di.CacheHandle,
) error {
	defer logger.Sync()

	// Start the filters
	started := make([]ports.EmailFilter, 0, len(filters))
	for _, f := range filters {
		if err := f.Start(); err != nil {
			logger.Error("Failed to start filter", zap.Error(err))
			stopAll(logger, started)
			return err
		}
		started = append(started, f)
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	stopAll(logger, started)

	// Close any resources that need closing
	if closer, ok := llm.Client.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}

	if cache.Cache != nil {
		cache.Cache.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}

func stopAll(logger *zap.Logger, filters []ports.EmailFilter) {
	for i := len(filters) - 1; i >= 0; i-- {
		if err := filters[i].Stop(); err != nil {
			logger.Error("Failed to stop filter", zap.Error(err))
		}
	}
}
