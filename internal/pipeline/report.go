package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"job-ingest-go/internal/scraper"
)

// CellFailure names a cell that produced no table.
type CellFailure struct {
	Role  string `json:"role"`
	City  string `json:"city"`
	Error string `json:"error"`
}

// SourceReport is the per-board summary of a run.
type SourceReport struct {
	Calls        int64         `json:"calls"`
	RowsScraped  int64         `json:"rows_scraped"`
	Errors       int64         `json:"errors"`
	ResponseTime time.Duration `json:"response_time"`
}

// Report summarizes one run.
type Report struct {
	RunID       string                  `json:"run_id"`
	CrawledDate string                  `json:"crawled_date"`
	Sink        string                  `json:"sink"`
	StartedAt   time.Time               `json:"started_at"`
	Duration    time.Duration           `json:"duration"`
	Cells       int                     `json:"cells"`
	CellsOK     int                     `json:"cells_ok"`
	CellsEmpty  int                     `json:"cells_empty"`
	CellsFailed int                     `json:"cells_failed"`
	CacheHits   int                     `json:"cache_hits"`
	RowsScraped int                     `json:"rows_scraped"`
	Duplicates  int                     `json:"duplicates"`
	MissingURL  int                     `json:"missing_url"`
	RowsWritten int                     `json:"rows_written"`
	Failures    []CellFailure           `json:"failures,omitempty"`
	Sources     map[string]SourceReport `json:"sources,omitempty"`
}

func (r *Report) addCells(results []scraper.CellResult) {
	r.Cells = len(results)
	for _, res := range results {
		switch res.Status {
		case scraper.CellOK:
			r.CellsOK++
			r.RowsScraped += res.Table.Len()
		case scraper.CellEmpty:
			r.CellsEmpty++
		case scraper.CellFailed:
			r.CellsFailed++
			r.Failures = append(r.Failures, CellFailure{
				Role:  res.Cell.Role,
				City:  res.Cell.City,
				Error: res.Err.Error(),
			})
		}
		if res.FromCache {
			r.CacheHits++
		}
	}
}

func (r *Report) addSources(m scraper.ScraperMetrics) {
	if len(m.SourcePerformance) == 0 {
		return
	}
	r.Sources = make(map[string]SourceReport, len(m.SourcePerformance))
	for site, perf := range m.SourcePerformance {
		r.Sources[site] = SourceReport{
			Calls:        perf.Calls,
			RowsScraped:  perf.RowsScraped,
			Errors:       perf.Errors,
			ResponseTime: perf.ResponseTime,
		}
	}
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// WriteConsole writes the report as plain text.
func (r *Report) WriteConsole(w io.Writer) {
	fmt.Fprintln(w, "=== Ingest Results ===")
	fmt.Fprintf(w, "Run ID: %s\n", r.RunID)
	fmt.Fprintf(w, "Crawled Date: %s\n", r.CrawledDate)
	fmt.Fprintf(w, "Cells: %d (ok %d, empty %d, failed %d, cached %d)\n",
		r.Cells, r.CellsOK, r.CellsEmpty, r.CellsFailed, r.CacheHits)
	fmt.Fprintf(w, "Rows Scraped: %d\n", r.RowsScraped)
	fmt.Fprintf(w, "Duplicates Dropped: %d\n", r.Duplicates)
	fmt.Fprintf(w, "Missing URL Dropped: %d\n", r.MissingURL)
	fmt.Fprintf(w, "Rows Written: %d (%s)\n", r.RowsWritten, r.Sink)
	fmt.Fprintf(w, "Duration: %v\n", r.Duration)

	if len(r.Sources) > 0 {
		fmt.Fprintln(w, "\n=== Source Performance ===")
		sites := make([]string, 0, len(r.Sources))
		for site := range r.Sources {
			sites = append(sites, site)
		}
		sort.Strings(sites)
		for _, site := range sites {
			perf := r.Sources[site]
			fmt.Fprintf(w, "%s:\n", site)
			fmt.Fprintf(w, "  Calls: %d\n", perf.Calls)
			fmt.Fprintf(w, "  Rows Scraped: %d\n", perf.RowsScraped)
			fmt.Fprintf(w, "  Errors: %d\n", perf.Errors)
			fmt.Fprintf(w, "  Response Time: %v\n", perf.ResponseTime)
		}
	}

	if len(r.Failures) > 0 {
		fmt.Fprintln(w, "\n=== Failed Cells ===")
		for _, f := range r.Failures {
			fmt.Fprintf(w, "- %s in %s: %s\n", f.Role, f.City, f.Error)
		}
	}
}
