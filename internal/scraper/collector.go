package scraper

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"job-ingest-go/internal/models"
	"job-ingest-go/internal/scraper/sources"
)

// CellStatus tells an empty cell apart from a failed one.
type CellStatus string

const (
	CellOK     CellStatus = "ok"
	CellEmpty  CellStatus = "empty"
	CellFailed CellStatus = "failed"
)

// CellResult is the outcome of scraping one grid cell.
type CellResult struct {
	Cell      models.Cell
	Status    CellStatus
	Table     models.Table
	Err       error
	Attempts  int
	FromCache bool
	Duration  time.Duration
}

// CellCache stores a cell's table between runs of the same day.
type CellCache interface {
	Get(ctx context.Context, key string) (models.Table, bool, error)
	Set(ctx context.Context, key string, t models.Table) error
}

// RetryConfig defines retry behavior
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// CollectorConfig is the part of a backend query that is fixed for a run.
type CollectorConfig struct {
	Sites                    []string
	ResultsWanted            int
	HoursOld                 int
	CountryIndeed            string
	LinkedInFetchDescription bool
	Retry                    RetryConfig
}

// Collector walks the grid one cell at a time.
type Collector struct {
	backend    Backend
	cfg        CollectorConfig
	cache      CellCache
	cacheScope string
	metrics    *ScraperMetrics
	logger     *zap.Logger
}

// CollectorOption customizes a Collector.
type CollectorOption func(*Collector)

// WithCache serves cells from cache when present. scope is folded into every
// key, so entries from another crawl date are never reused.
func WithCache(cache CellCache, scope string) CollectorOption {
	return func(c *Collector) {
		c.cache = cache
		c.cacheScope = scope
	}
}

// WithMetrics records cell outcomes into m.
func WithMetrics(m *ScraperMetrics) CollectorOption {
	return func(c *Collector) {
		c.metrics = m
	}
}

// NewCollector creates a collector over backend.
func NewCollector(backend Backend, cfg CollectorConfig, logger *zap.Logger, opts ...CollectorOption) *Collector {
	c := &Collector{
		backend: backend,
		cfg:     cfg,
		metrics: NewScraperMetrics(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect scrapes cells in order. Cell failures are recorded in the results
// and never stop the walk; only cancellation of ctx does, in which case the
// results gathered so far are returned with ctx's error.
func (c *Collector) Collect(ctx context.Context, cells []models.Cell) ([]CellResult, error) {
	start := time.Now()
	defer func() { c.metrics.setDuration(time.Since(start)) }()

	results := make([]CellResult, 0, len(cells))
	for i, cell := range cells {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := c.collectCell(ctx, cell)
		c.metrics.RecordCell(res)
		results = append(results, res)

		fields := []zap.Field{
			zap.Int("cell", i+1),
			zap.Int("cells", len(cells)),
			zap.String("role", cell.Role),
			zap.String("city", cell.City),
			zap.String("status", string(res.Status)),
			zap.Int("rows", res.Table.Len()),
			zap.Int("attempts", res.Attempts),
			zap.Bool("cached", res.FromCache),
			zap.Duration("duration", res.Duration),
		}
		if res.Status == CellFailed {
			c.logger.Warn("cell failed", append(fields, zap.Error(res.Err))...)
		} else {
			c.logger.Info("cell scraped", fields...)
		}
	}
	return results, nil
}

// query builds the backend call for cell.
func (c *Collector) query(cell models.Cell) Query {
	return Query{
		Sites: c.cfg.Sites,
		Query: sources.Query{
			SearchTerm:               cell.Role,
			GoogleSearchTerm:         cell.GoogleSearchTerm(),
			Location:                 cell.Location,
			ResultsWanted:            c.cfg.ResultsWanted,
			HoursOld:                 c.cfg.HoursOld,
			CountryIndeed:            c.cfg.CountryIndeed,
			LinkedInFetchDescription: c.cfg.LinkedInFetchDescription,
		},
	}
}

func (c *Collector) collectCell(ctx context.Context, cell models.Cell) CellResult {
	start := time.Now()
	res := CellResult{Cell: cell}
	key := c.cacheKey(cell)

	if c.cache != nil {
		table, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("cell cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			res.FromCache = true
			return c.finish(res, table, start)
		}
	}

	var (
		table   models.Table
		lastErr error
	)
	q := c.query(cell)
	for attempt := 0; attempt <= c.cfg.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoffDelay(attempt)
			c.logger.Info("retrying cell",
				zap.String("cell", cell.String()),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				res.Status = CellFailed
				res.Err = ctx.Err()
				res.Duration = time.Since(start)
				return res
			case <-time.After(delay):
			}
		}

		res.Attempts++
		table, lastErr = c.backend.Scrape(ctx, q)
		if lastErr == nil {
			break
		}
	}

	if lastErr != nil {
		res.Status = CellFailed
		res.Err = fmt.Errorf("scrape %s: %w", cell, lastErr)
		res.Duration = time.Since(start)
		return res
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, table); err != nil {
			c.logger.Warn("cell cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return c.finish(res, table, start)
}

// finish tags a scraped table with its cell and sets the status.
func (c *Collector) finish(res CellResult, table models.Table, start time.Time) CellResult {
	res.Duration = time.Since(start)
	if table.Len() == 0 {
		res.Status = CellEmpty
		return res
	}
	table.SetColumn(models.ColRole, res.Cell.Role)
	table.SetColumn(models.ColCity, res.Cell.City)
	res.Status = CellOK
	res.Table = table
	return res
}

// calculateBackoffDelay grows the delay linearly with attempt, capped at MaxDelay.
func (c *Collector) calculateBackoffDelay(attempt int) time.Duration {
	factor := c.cfg.Retry.BackoffFactor
	if factor <= 0 {
		factor = 1
	}
	delay := time.Duration(float64(c.cfg.Retry.InitialDelay) * float64(attempt) * factor)

	if c.cfg.Retry.MaxDelay > 0 && delay > c.cfg.Retry.MaxDelay {
		delay = c.cfg.Retry.MaxDelay
	}
	return delay
}

// cacheKey identifies a cell's table for one scope and site list.
func (c *Collector) cacheKey(cell models.Cell) string {
	raw := strings.ToLower(strings.Join([]string{
		c.cacheScope,
		strings.Join(c.cfg.Sites, ","),
		cell.Role,
		cell.City,
		cell.Location,
	}, "|"))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s:%x", c.cacheScope, hash[:8])
}

// Retained returns the tables of the cells that produced rows, in cell order.
func Retained(results []CellResult) []models.Table {
	var tables []models.Table
	for _, r := range results {
		if r.Status == CellOK {
			tables = append(tables, r.Table)
		}
	}
	return tables
}

// Failures returns the results of the cells that failed.
func Failures(results []CellResult) []CellResult {
	var failed []CellResult
	for _, r := range results {
		if r.Status == CellFailed {
			failed = append(failed, r)
		}
	}
	return failed
}
