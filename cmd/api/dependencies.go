package api

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/headers"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/normalizer"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/service"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/relay"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/report"
	reporthandler "github.com/FACorreiaa/venue-sales-report/internal/domain/report/handler"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/source"

	"github.com/FACorreiaa/venue-sales-report/pkg/config"
	"github.com/FACorreiaa/venue-sales-report/pkg/cron"
	"github.com/FACorreiaa/venue-sales-report/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Location *time.Location

	// Pipeline
	Canonicalizer *normalizer.Canonicalizer
	Normalizer    *service.Normalizer

	// Services
	Fetcher     *source.Fetcher
	SourceCache storage.Storage
	Loader      *source.Loader
	Store       *report.Store
	Scheduler   *cron.Scheduler

	// Handlers
	ReportHandler *reporthandler.ReportHandler
	RelayHandler  *relay.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}

	if err := deps.initPipeline(); err != nil {
		return nil, fmt.Errorf("failed to init pipeline: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initPipeline builds the normalization pipeline from the rule tables
func (d *Dependencies) initPipeline() error {
	loc, err := d.Config.Sales.Location()
	if err != nil {
		return err
	}
	d.Location = loc

	rules, err := normalizer.DefaultRules()
	if d.Config.Sales.RulesFile != "" {
		rules, err = normalizer.LoadRules(d.Config.Sales.RulesFile)
	}
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	d.Canonicalizer, err = normalizer.NewCanonicalizer(rules)
	if err != nil {
		return fmt.Errorf("failed to compile rules: %w", err)
	}

	d.Normalizer = service.NewNormalizer(headers.NewDefaultResolver(), d.Canonicalizer, d.Logger,
		service.WithLocation(loc),
	)

	d.Logger.Info("normalization pipeline initialized",
		slog.String("timezone", loc.String()),
		slog.String("rules_file", d.Config.Sales.RulesFile),
	)
	return nil
}

// initServices initializes the source, snapshot store and scheduler
func (d *Dependencies) initServices() error {
	if d.Config.Observability.MetricsEnabled {
		d.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	d.Fetcher = source.NewFetcher(source.FetchConfig{
		ProxyPrefix: d.Config.Sales.ProxyPrefix,
		Timeout:     d.Config.Sales.FetchTimeout,
	}, d.Logger)

	// Last good downloads, used when the sheet cannot be reached
	cache, err := storage.New(&storage.Config{
		LocalPath: d.Config.Storage.CachePath,
		Keep:      d.Config.Storage.CacheKeep,
	})
	if err != nil {
		return fmt.Errorf("failed to init source cache: %w", err)
	}
	d.SourceCache = cache

	d.Loader = source.NewLoader(d.Config.Sales.CSVURL, d.Fetcher, d.Normalizer, d.Logger,
		source.WithCache(cache, d.Config.Storage.CacheKeep),
	)
	d.Store = report.NewStore(d.Loader, d.Logger, d.Registry)

	d.Scheduler = cron.NewScheduler(d.Config.Sales.ReloadSchedule, newReloadJob(d.Store), 2*d.Config.Sales.FetchTimeout+time.Minute, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.ReportHandler = reporthandler.NewReportHandler(d.Store, d.Logger, reporthandler.Options{
		Venue:    d.Config.Sales.VenueName,
		Location: d.Location,
	})

	d.RelayHandler = relay.NewHandler(relay.Config{
		Target:        d.Config.Relay.WebAppURL,
		Timeout:       d.Config.Sales.FetchTimeout,
		RatePerSecond: float64(d.Config.Server.RateLimitPerSecond),
		Burst:         d.Config.Server.RateLimitBurst,
	}, d.Logger, relay.WithMetrics(relay.NewMetrics(d.Registry)))

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	d.Logger.Info("cleanup completed")
}
