package factory

import (
	"net/http"

	"github.com/mikey/invoice-analyzer/internal/adapters/filter"
	"github.com/mikey/invoice-analyzer/internal/adapters/httpapi"
	"github.com/mikey/invoice-analyzer/internal/config"
	"github.com/mikey/invoice-analyzer/internal/core"
	"github.com/mikey/invoice-analyzer/internal/metrics"
	"github.com/mikey/invoice-analyzer/internal/ports"
	"github.com/mikey/invoice-analyzer/internal/whitelist"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// FilterFactory creates the intake surfaces of the daemon
type FilterFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	service  *core.AnalysisService
	recorder *metrics.Recorder
	registry *prometheus.Registry
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(
	cfg *config.Config,
	logger *zap.Logger,
	service *core.AnalysisService,
	recorder *metrics.Recorder,
	registry *prometheus.Registry,
) *FilterFactory {
	return &FilterFactory{
		cfg:      cfg,
		logger:   logger,
		service:  service,
		recorder: recorder,
		registry: registry,
	}
}

// CreateEmailFilters creates the HTTP API and, when enabled, the SMTP filter
func (f *FilterFactory) CreateEmailFilters() ([]ports.EmailFilter, error) {
	serverCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}

	var metricsHandler http.Handler
	if f.cfg.GetBool("metrics.enabled") {
		metricsHandler = promhttp.HandlerFor(f.registry, promhttp.HandlerOpts{Registry: f.registry})
	}

	filters := []ports.EmailFilter{
		httpapi.NewServer(f.service, serverCfg, f.logger.Named("http"), f.recorder, metricsHandler),
	}

	smtpCfg, err := f.cfg.GetSMTP()
	if err != nil {
		return nil, err
	}
	if smtpCfg.Enabled {
		smtpLogger := f.logger.Named("smtp")
		filters = append(filters, filter.NewSMTPFilter(
			f.service,
			smtpCfg,
			whitelist.NewChecker(smtpCfg.SkipDomains, smtpLogger),
			f.recorder,
			smtpLogger,
		))
	}

	return filters, nil
}
