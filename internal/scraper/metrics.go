package scraper

import (
	"sync"
	"time"
)

// ScraperMetrics tracks scraper performance
type ScraperMetrics struct {
	TotalRowsScraped  int64
	CellsOK           int64
	CellsEmpty        int64
	CellsFailed       int64
	CacheHits         int64
	ScrapingDuration  time.Duration
	SourcePerformance map[string]SourceMetrics
	mu                sync.RWMutex
}

// SourceMetrics tracks performance per source
type SourceMetrics struct {
	Calls        int64
	RowsScraped  int64
	Errors       int64
	ResponseTime time.Duration
	LastScraped  time.Time
}

// NewScraperMetrics returns empty metrics.
func NewScraperMetrics() *ScraperMetrics {
	return &ScraperMetrics{SourcePerformance: make(map[string]SourceMetrics)}
}

// RecordSite folds one site call into the per-source counters. It matches
// the MultiSite observe hook.
func (m *ScraperMetrics) RecordSite(s SiteStats) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sm := m.SourcePerformance[s.Site]
	sm.Calls++
	sm.ResponseTime += s.Duration
	sm.LastScraped = time.Now()
	if s.Err != nil {
		sm.Errors++
	} else {
		sm.RowsScraped += int64(s.Rows)
	}
	m.SourcePerformance[s.Site] = sm
}

// RecordCell counts a finished cell.
func (m *ScraperMetrics) RecordCell(r CellResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch r.Status {
	case CellOK:
		m.CellsOK++
		m.TotalRowsScraped += int64(r.Table.Len())
	case CellEmpty:
		m.CellsEmpty++
	case CellFailed:
		m.CellsFailed++
	}
	if r.FromCache {
		m.CacheHits++
	}
}

func (m *ScraperMetrics) setDuration(d time.Duration) {
	m.mu.Lock()
	m.ScrapingDuration = d
	m.mu.Unlock()
}

// Snapshot returns a copy safe to read while scraping continues.
func (m *ScraperMetrics) Snapshot() ScraperMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Create a copy to avoid race conditions - without copying the mutex
	sourcePerformance := make(map[string]SourceMetrics, len(m.SourcePerformance))
	for k, v := range m.SourcePerformance {
		sourcePerformance[k] = v
	}

	return ScraperMetrics{
		TotalRowsScraped:  m.TotalRowsScraped,
		CellsOK:           m.CellsOK,
		CellsEmpty:        m.CellsEmpty,
		CellsFailed:       m.CellsFailed,
		CacheHits:         m.CacheHits,
		ScrapingDuration:  m.ScrapingDuration,
		SourcePerformance: sourcePerformance,
	}
}
