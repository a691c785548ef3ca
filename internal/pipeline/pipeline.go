// Package pipeline runs one ingest: walk the grid, concatenate the cell
// tables, normalize them and upsert the result in batches.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"job-ingest-go/internal/config"
	"job-ingest-go/internal/metrics"
	"job-ingest-go/internal/models"
	"job-ingest-go/internal/normalize"
	"job-ingest-go/internal/scraper"
	"job-ingest-go/internal/storage"
)

// Deps are the collaborators of a run. Backend and Sink are required.
type Deps struct {
	Backend  scraper.Backend
	Sink     storage.Sink
	Cache    scraper.CellCache
	Metrics  *scraper.ScraperMetrics
	Recorder *metrics.Recorder
	Logger   *zap.Logger
	Now      func() time.Time
}

// Run executes one ingest over cfg.Grid. It returns ErrNoJobs, with a report,
// when no cell produced a persistable row; the sink is not called then.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (report *Report, err error) {
	if deps.Backend == nil || deps.Sink == nil {
		return nil, ConfigError("backend and sink are required", nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	scraperMetrics := deps.Metrics
	if scraperMetrics == nil {
		scraperMetrics = scraper.NewScraperMetrics()
	}

	loc, err := time.LoadLocation(cfg.Pipeline.Timezone)
	if err != nil {
		return nil, ConfigError("load timezone "+cfg.Pipeline.Timezone, err)
	}
	runID, err := uuid.NewV7()
	if err != nil {
		return nil, newError(KindConfig, "generate run id", err)
	}

	started := now()
	report = &Report{
		RunID:       runID.String(),
		CrawledDate: normalize.CrawledDate(started, loc),
		Sink:        deps.Sink.Name(),
		StartedAt:   started,
	}
	logger = logger.With(zap.String("run_id", report.RunID))

	defer func() {
		report.Duration = now().Sub(started)
		report.addSources(scraperMetrics.Snapshot())
		finishRun(ctx, deps.Recorder, report, err, now(), logger)
	}()

	cells := cfg.Grid.Cells()
	logger.Info("starting ingest",
		zap.String("crawled_date", report.CrawledDate),
		zap.Int("cells", len(cells)),
		zap.Strings("sites", cfg.Scraper.Sites),
		zap.String("sink", report.Sink))

	opts := []scraper.CollectorOption{scraper.WithMetrics(scraperMetrics)}
	if deps.Cache != nil {
		opts = append(opts, scraper.WithCache(deps.Cache, report.CrawledDate))
	}
	collector := scraper.NewCollector(deps.Backend, collectorConfig(cfg), logger, opts...)

	results, err := collector.Collect(ctx, cells)
	report.addCells(results)
	for _, res := range results {
		if deps.Recorder != nil {
			deps.Recorder.ObserveCell(string(res.Status))
		}
	}
	if err != nil {
		return report, newError(KindScrape, "grid walk interrupted", err)
	}
	for _, res := range scraper.Failures(results) {
		cellErr := newError(KindScrape, res.Cell.String(), res.Err)
		logger.Warn("cell skipped", zap.Error(cellErr), zap.ByteString("stack", cellErr.StackTrace()))
	}

	tables := scraper.Retained(results)
	if len(tables) == 0 {
		logger.Info("no jobs found for any cell")
		return report, ErrNoJobs
	}
	combined := models.Concat(tables...)

	normalized, err := normalize.Normalize(combined, report.CrawledDate)
	if err != nil {
		return report, newError(KindNormalize, "normalize rows", err)
	}
	report.Duplicates = normalized.Duplicates
	report.MissingURL = normalized.MissingURL
	if deps.Recorder != nil {
		deps.Recorder.RowsDropped("duplicate", normalized.Duplicates)
		deps.Recorder.RowsDropped("missing_url", normalized.MissingURL)
	}
	logger.Info("normalized rows",
		zap.Int("rows_in", combined.Len()),
		zap.Int("rows_out", normalized.Table.Len()),
		zap.Int("duplicates", normalized.Duplicates),
		zap.Int("missing_url", normalized.MissingURL))

	if normalized.Table.Len() == 0 {
		return report, ErrNoJobs
	}

	sink := &observedSink{Sink: deps.Sink, recorder: deps.Recorder, logger: logger}
	written, err := storage.Upsert(ctx, sink, cfg.Database.Table, normalized.Table.Records(), models.ConflictKey, cfg.Pipeline.BatchSize)
	report.RowsWritten = written
	if err != nil {
		return report, newError(KindPersist, "upsert into "+cfg.Database.Table, err)
	}

	logger.Info("ingest complete",
		zap.Int("rows_written", written),
		zap.String("table", cfg.Database.Table))
	return report, nil
}

func collectorConfig(cfg *config.Config) scraper.CollectorConfig {
	return scraper.CollectorConfig{
		Sites:                    cfg.Scraper.Sites,
		ResultsWanted:            cfg.Scraper.ResultsWanted,
		HoursOld:                 cfg.Scraper.HoursOld,
		CountryIndeed:            cfg.Scraper.CountryIndeed,
		LinkedInFetchDescription: cfg.Scraper.LinkedInFetchDescription,
		Retry: scraper.RetryConfig{
			MaxRetries:    cfg.Scraper.RetryAttempts,
			InitialDelay:  cfg.Scraper.RetryDelay,
			MaxDelay:      time.Minute,
			BackoffFactor: 2,
		},
	}
}

func finishRun(ctx context.Context, recorder *metrics.Recorder, report *Report, err error, now time.Time, logger *zap.Logger) {
	if recorder == nil {
		return
	}
	succeeded := err == nil || errors.Is(err, ErrNoJobs)
	recorder.RunFinished(report.Duration, succeeded, now)
	// The run context may already be cancelled; the push gets its own deadline.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if pushErr := recorder.Push(pushCtx); pushErr != nil {
		logger.Warn("metrics push failed", zap.Error(pushErr))
	}
}

// observedSink counts batches as they are written.
type observedSink struct {
	storage.Sink
	recorder *metrics.Recorder
	logger   *zap.Logger
	batches  int
}

func (s *observedSink) UpsertBatch(ctx context.Context, table string, records []map[string]any, conflictKey []string) error {
	s.batches++
	err := s.Sink.UpsertBatch(ctx, table, records, conflictKey)
	if err != nil {
		if s.recorder != nil {
			s.recorder.BatchFailed(s.Sink.Name())
		}
		return err
	}
	if s.recorder != nil {
		s.recorder.BatchWritten(s.Sink.Name(), len(records))
	}
	s.logger.Info("batch upserted",
		zap.Int("batch", s.batches),
		zap.Int("rows", len(records)))
	return nil
}
