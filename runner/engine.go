package runner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leadscout/leadscout/browser"
	"github.com/leadscout/leadscout/errlog"
	"github.com/leadscout/leadscout/models"
	"github.com/leadscout/leadscout/navigation"
	"github.com/leadscout/leadscout/orchestrator"
	"github.com/leadscout/leadscout/provider"
	"github.com/leadscout/leadscout/runlog"
	"github.com/leadscout/leadscout/scraper"
	"github.com/leadscout/leadscout/web"
)

const providerTimeout = 30 * time.Second

// NewEngineFactory wires the full per-run pipeline: pooled browser
// workers feeding the orchestrator, and the provider lookup service for
// the enrichment phase.
func NewEngineFactory(cfg *Config, pool *browser.Pool, errs *errlog.Logger, log *zap.Logger) web.EngineFactory {
	return func(scrapeCfg models.ScrapeConfig, runLog *runlog.Manager) (web.Engine, error) {
		navOpts := navigation.DefaultOptions()
		navOpts.MaxRetries = cfg.NavRetries
		navOpts.BaseDelay = cfg.NavBaseWait

		backend := provider.NewHTTPBackend(cfg.ProviderURL, providerTimeout)
		lookup := provider.NewService(backend, scrapeCfg.SimultaneousLookups, log, errs)

		factory := func(ctx context.Context) (orchestrator.TownProcessor, func(), error) {
			handle, err := pool.Acquire(ctx)
			if err != nil {
				return nil, nil, err
			}

			nav, err := navigation.NewManager(navOpts, log, errs)
			if err != nil {
				pool.Release(handle)

				return nil, nil, err
			}

			worker, err := scraper.NewWorker(scraper.WorkerConfig{
				Navigation: nav,
				Opener:     handle,
				Extractor:  browser.NewExtractor(handle, browser.DefaultSelectors()),
				SearchURL:  cfg.SearchURL,
				Logger:     log,
				Errors:     errs,
				RunLog:     runLog,
			})
			if err != nil {
				pool.Release(handle)

				return nil, nil, err
			}

			release := func() {
				pool.Release(handle)
			}

			return worker, release, nil
		}

		return orchestrator.New(scrapeCfg, factory, lookup, runLog, errs, log)
	}
}
