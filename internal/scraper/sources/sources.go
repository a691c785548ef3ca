package sources

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"job-ingest-go/internal/models"
	"job-ingest-go/pkg/httpclient"
)

// Site names accepted in the scraper.sites setting.
const (
	SiteIndeed   = "indeed"
	SiteLinkedIn = "linkedin"
	SiteGoogle   = "google"
	SiteRemotive = "remotive"
	SiteRemoteOK = "remoteok"
)

// Query holds the search parameters for one grid cell.
type Query struct {
	SearchTerm               string
	GoogleSearchTerm         string
	Location                 string
	ResultsWanted            int
	HoursOld                 int
	CountryIndeed            string
	LinkedInFetchDescription bool
}

// JobSource represents a job board source
type JobSource interface {
	GetName() string
	FetchJobs(ctx context.Context, q Query) ([]models.Row, error)
	GetRateLimit() int // requests per minute
	GetBaseURL() string
}

// JobSourceConfig holds configuration for job sources
type JobSourceConfig struct {
	Enabled   bool `json:"enabled"`
	RateLimit int  `json:"rate_limit"`
}

// SourceManager manages all job sources
type SourceManager struct {
	sources map[string]JobSource
	configs map[string]JobSourceConfig
}

// NewSourceManager creates a new source manager
func NewSourceManager() *SourceManager {
	return &SourceManager{
		sources: make(map[string]JobSource),
		configs: make(map[string]JobSourceConfig),
	}
}

// RegisterSource registers a new job source
func (sm *SourceManager) RegisterSource(source JobSource, config JobSourceConfig) {
	sm.sources[source.GetName()] = source
	sm.configs[source.GetName()] = config
}

// GetSource returns an enabled source by name
func (sm *SourceManager) GetSource(name string) (JobSource, error) {
	name = NormalizeSite(name)
	source, ok := sm.sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown job site %q (available: %s)", name, strings.Join(sm.Names(), ", "))
	}
	if !sm.configs[name].Enabled {
		return nil, fmt.Errorf("job site %q is disabled", name)
	}
	return source, nil
}

// GetSourceConfig returns configuration for a source
func (sm *SourceManager) GetSourceConfig(name string) (JobSourceConfig, bool) {
	config, exists := sm.configs[NormalizeSite(name)]
	return config, exists
}

// Names returns the registered source names, sorted.
func (sm *SourceManager) Names() []string {
	names := make([]string, 0, len(sm.sources))
	for name := range sm.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDefaultManager registers every board this repo can scrape, all sharing
// client. Sites listed in enabled are switched on; rateLimit caps each board
// in requests per minute.
func NewDefaultManager(client *httpclient.HttpClient, enabled []string, rateLimit int) *SourceManager {
	on := make(map[string]bool, len(enabled))
	for _, s := range enabled {
		on[NormalizeSite(s)] = true
	}

	sm := NewSourceManager()
	for _, src := range []JobSource{
		NewIndeedSource(client),
		NewLinkedInSource(client),
		NewGoogleSource(client),
		NewRemotiveSource(client),
		NewRemoteOKSource(client),
	} {
		limit := src.GetRateLimit()
		if rateLimit > 0 && rateLimit < limit {
			limit = rateLimit
		}
		sm.RegisterSource(src, JobSourceConfig{Enabled: on[src.GetName()], RateLimit: limit})
	}
	return sm
}

// NormalizeSite lowercases a site name and folds common spellings.
func NormalizeSite(site string) string {
	site = strings.ToLower(strings.TrimSpace(site))
	site = strings.TrimPrefix(site, "www.")
	switch site {
	case "google_jobs", "googlejobs":
		return SiteGoogle
	case "remote_ok":
		return SiteRemoteOK
	}
	return site
}
