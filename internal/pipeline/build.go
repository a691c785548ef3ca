package pipeline

import (
	"context"

	"go.uber.org/zap"

	"job-ingest-go/internal/cache"
	"job-ingest-go/internal/config"
	"job-ingest-go/internal/metrics"
	"job-ingest-go/internal/models"
	"job-ingest-go/internal/scraper"
	"job-ingest-go/internal/scraper/sources"
	"job-ingest-go/internal/storage"
	"job-ingest-go/pkg/httpclient"
)

// NewSourceManager builds the board registry for cfg and checks that every
// configured site exists.
func NewSourceManager(cfg *config.Config) (*sources.SourceManager, error) {
	client, err := httpclient.NewHttpClient(cfg.Scraper.RequestTimeout, cfg.Scraper.ProxyURL)
	if err != nil {
		return nil, ConfigError("build http client", err)
	}
	manager := sources.NewDefaultManager(client, cfg.Scraper.Sites, cfg.Scraper.RateLimit)
	for _, site := range cfg.Scraper.Sites {
		if _, err := manager.GetSource(site); err != nil {
			return nil, ConfigError("scraper.sites", err)
		}
	}
	return manager, nil
}

// OpenSink returns the persistence target cfg's credentials select.
func OpenSink(ctx context.Context, cfg *config.Config) (storage.Sink, error) {
	switch cfg.SinkKind() {
	case "supabase":
		sink, err := storage.NewSupabaseSink(cfg.Database.SupabaseURL, cfg.Database.SupabaseKey)
		if err != nil {
			return nil, ConfigError("open supabase", err)
		}
		if err := sink.Check(ctx, cfg.Database.Table); err != nil {
			return nil, newError(KindPersist, "check supabase table", err)
		}
		return sink, nil
	case "postgres":
		sink, err := storage.NewPostgresSink(ctx, storage.PostgresConfig{DSN: cfg.Database.PostgresDSN})
		if err != nil {
			return nil, newError(KindPersist, "open postgres", err)
		}
		if cfg.Database.EnsureTable {
			if err := sink.EnsureSchema(ctx, cfg.Database.Table, models.ConflictKey); err != nil {
				_ = sink.Close()
				return nil, newError(KindPersist, "ensure table", err)
			}
		}
		return sink, nil
	default:
		return storage.NewCSVSink(cfg.Pipeline.CSVPath), nil
	}
}

// Build assembles the dependencies of a run from cfg. The returned cleanup
// closes whatever was opened.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Deps, func(), error) {
	manager, err := NewSourceManager(cfg)
	if err != nil {
		return Deps{}, nil, err
	}

	recorder, err := metrics.NewRecorder(cfg.Monitoring.PushgatewayURL, cfg.Monitoring.MetricsJob)
	if err != nil {
		return Deps{}, nil, newError(KindConfig, "metrics", err)
	}

	scraperMetrics := scraper.NewScraperMetrics()
	backend := scraper.NewMultiSite(manager, logger, func(s scraper.SiteStats) {
		scraperMetrics.RecordSite(s)
		recorder.ObserveSite(s.Site, s.Rows, s.Duration, s.Err)
	})

	sink, err := OpenSink(ctx, cfg)
	if err != nil {
		return Deps{}, nil, err
	}

	deps := Deps{
		Backend:  backend,
		Sink:     sink,
		Metrics:  scraperMetrics,
		Recorder: recorder,
		Logger:   logger,
	}

	var cellCache *cache.Cache
	if cfg.Cache.RedisURL != "" {
		cellCache, err = cache.New(cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			logger.Warn("cell cache unavailable, scraping every cell", zap.Error(err))
		} else {
			deps.Cache = cellCache
		}
	}

	cleanup := func() {
		if err := sink.Close(); err != nil {
			logger.Warn("close sink", zap.Error(err))
		}
		if cellCache != nil {
			if err := cellCache.Close(); err != nil {
				logger.Warn("close cache", zap.Error(err))
			}
		}
	}
	return deps, cleanup, nil
}
