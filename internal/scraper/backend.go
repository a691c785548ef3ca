package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"job-ingest-go/internal/models"
	"job-ingest-go/internal/scraper/sources"
)

// Query is one backend call: the sites to search plus the per-cell search
// parameters shared by all of them.
type Query struct {
	Sites []string
	sources.Query
}

// Backend scrapes every site in q and returns one table, or fails as a whole.
type Backend interface {
	Scrape(ctx context.Context, q Query) (models.Table, error)
}

// SiteStats is what MultiSite observed for a site during one Scrape call.
type SiteStats struct {
	Site     string
	Rows     int
	Duration time.Duration
	Err      error
}

// MultiSite fans a query out to the registered job sources in order.
type MultiSite struct {
	manager *sources.SourceManager
	limiter *RateLimiter
	logger  *zap.Logger
	observe func(SiteStats)
}

// NewMultiSite builds a backend over manager. observe, when non-nil, is
// called once per site call.
func NewMultiSite(manager *sources.SourceManager, logger *zap.Logger, observe func(SiteStats)) *MultiSite {
	return &MultiSite{
		manager: manager,
		limiter: NewRateLimiter(),
		logger:  logger,
		observe: observe,
	}
}

// Scrape queries each site in turn. A failing site fails the whole call,
// so a cell never reports a partial table.
func (m *MultiSite) Scrape(ctx context.Context, q Query) (models.Table, error) {
	if len(q.Sites) == 0 {
		return models.Table{}, fmt.Errorf("no job sites requested")
	}

	var rows []models.Row
	for _, name := range q.Sites {
		source, err := m.manager.GetSource(name)
		if err != nil {
			return models.Table{}, err
		}
		site := source.GetName()

		cfg, _ := m.manager.GetSourceConfig(site)
		if err := m.limiter.Wait(ctx, site, cfg.RateLimit); err != nil {
			return models.Table{}, err
		}

		start := time.Now()
		found, err := source.FetchJobs(ctx, q.Query)
		stats := SiteStats{Site: site, Rows: len(found), Duration: time.Since(start), Err: err}
		if m.observe != nil {
			m.observe(stats)
		}
		if err != nil {
			return models.Table{}, fmt.Errorf("%s: %w", site, err)
		}

		m.logger.Debug("site scraped",
			zap.String("site", site),
			zap.Int("rows", len(found)),
			zap.Duration("duration", stats.Duration))

		for _, row := range found {
			if _, ok := row[models.ColSite]; !ok {
				row[models.ColSite] = site
			}
			rows = append(rows, row)
		}
	}
	return models.NewTable(rows), nil
}
