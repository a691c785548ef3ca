package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-ingest-go/internal/models"
	"job-ingest-go/pkg/httpclient"
)

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T) *httpclient.HttpClient {
	t.Helper()
	client, err := httpclient.NewHttpClient(5*time.Second, "")
	require.NoError(t, err)
	return client
}

func serveHTML(t *testing.T, handler func(r *http.Request) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(handler(r)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const indeedPage = `<html><body>
<div class="job_seen_beacon">
  <h2 class="jobTitle"><a data-jk="abc123" href="/rc/clk?jk=abc123"><span title="Data Scientist">Data Scientist</span></a></h2>
  <span data-testid="company-name">Acme Analytics</span>
  <div data-testid="text-location">Chennai, Tamil Nadu</div>
  <div class="salary-snippet-container">₹8,00,000 - ₹12,00,000 a year</div>
  <div data-testid="attribute_snippet_testid">Full-time</div>
  <div class="job-snippet">Python and SQL. Mail hr@acme.in</div>
  <span class="date">Posted 2 days ago</span>
</div>
<div class="job_seen_beacon">
  <h2 class="jobTitle"><a data-jk="def456"><span title="Junior Data Scientist">Junior Data Scientist</span></a></h2>
  <span data-testid="company-name">Initech</span>
  <div data-testid="text-location">Remote</div>
  <span class="date">Just posted</span>
</div>
</body></html>`

func TestIndeedFetchJobs(t *testing.T) {
	var first *http.Request
	srv := serveHTML(t, func(r *http.Request) string {
		if r.URL.Query().Get("start") != "" {
			return "<html><body></body></html>"
		}
		first = r
		return indeedPage
	})

	src := NewIndeedSource(newTestClient(t))
	src.baseURL = srv.URL
	src.now = func() time.Time { return fixedNow }

	rows, err := src.FetchJobs(context.Background(), Query{
		SearchTerm:    "data scientist",
		Location:      "Chennai, Tamil Nadu, India",
		ResultsWanted: 5,
		HoursOld:      24,
		CountryIndeed: "INDIA",
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NotNil(t, first)
	assert.Equal(t, "/jobs", first.URL.Path)
	assert.Equal(t, "data scientist", first.URL.Query().Get("q"))
	assert.Equal(t, "1", first.URL.Query().Get("fromage"))

	row := rows[0]
	assert.Equal(t, "in-abc123", row[models.ColID])
	assert.Equal(t, SiteIndeed, row[models.ColSite])
	assert.Equal(t, srv.URL+"/viewjob?jk=abc123", row[models.ColJobURL])
	assert.Equal(t, "Acme Analytics", row[models.ColCompany])
	assert.Equal(t, models.JobTypeFullTime, row[models.ColJobType])
	assert.Equal(t, 800000.0, row[models.ColMinAmount])
	assert.Equal(t, 1200000.0, row[models.ColMaxAmount])
	assert.Equal(t, "INR", row[models.ColCurrency])
	assert.Equal(t, "yearly", row[models.ColInterval])
	assert.Equal(t, []string{"hr@acme.in"}, row[models.ColEmails])
	assert.Equal(t, civil.Date{Year: 2026, Month: 10, Day: 17}, row[models.ColDatePosted])
	assert.Equal(t, false, row[models.ColIsRemote])

	assert.Equal(t, true, rows[1][models.ColIsRemote])
	assert.Equal(t, civil.DateOf(fixedNow), rows[1][models.ColDatePosted])
}

func TestIndeedUnsupportedCountry(t *testing.T) {
	src := NewIndeedSource(newTestClient(t))
	_, err := src.FetchJobs(context.Background(), Query{SearchTerm: "x", CountryIndeed: "ATLANTIS"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported country")
}

func TestIndeedStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := NewIndeedSource(newTestClient(t))
	src.baseURL = srv.URL
	_, err := src.FetchJobs(context.Background(), Query{SearchTerm: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
}

const linkedInSearch = `<li>
<div class="base-card base-search-card" data-entity-urn="urn:li:jobPosting:123">
  <h3 class="base-search-card__title"> AI Engineer </h3>
  <h4 class="base-search-card__subtitle"><a href="https://in.linkedin.com/company/acme?trk=x">Acme</a></h4>
  <span class="job-search-card__location">Hyderabad, Telangana, India</span>
  <time class="job-search-card__listdate" datetime="2026-10-18">1 day ago</time>
</div>
</li>`

const linkedInDetail = `<html><body>
<div class="show-more-less-html__markup">Build LLM apps. careers@acme.com</div>
<ul>
  <li class="description__job-criteria-item"><h3 class="description__job-criteria-subheader">Seniority level</h3><span class="description__job-criteria-text">Mid-Senior level</span></li>
  <li class="description__job-criteria-item"><h3 class="description__job-criteria-subheader">Employment type</h3><span class="description__job-criteria-text">Full-time</span></li>
  <li class="description__job-criteria-item"><h3 class="description__job-criteria-subheader">Industries</h3><span class="description__job-criteria-text">IT Services</span></li>
</ul>
</body></html>`

func TestLinkedInFetchJobsWithDetails(t *testing.T) {
	var searchQuery string
	srv := serveHTML(t, func(r *http.Request) string {
		switch r.URL.Path {
		case "/jobs-guest/jobs/api/seeMoreJobPostings/search":
			if r.URL.Query().Get("start") != "0" {
				return ""
			}
			searchQuery = r.URL.RawQuery
			return linkedInSearch
		case "/jobs/view/123":
			return linkedInDetail
		}
		return ""
	})

	src := NewLinkedInSource(newTestClient(t))
	src.baseURL = srv.URL

	rows, err := src.FetchJobs(context.Background(), Query{
		SearchTerm:               "ai engineer",
		Location:                 "Hyderabad, Telangana, India",
		ResultsWanted:            10,
		HoursOld:                 24,
		LinkedInFetchDescription: true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, searchQuery, "f_TPR=r86400")

	row := rows[0]
	assert.Equal(t, "li-123", row[models.ColID])
	assert.Equal(t, srv.URL+"/jobs/view/123", row[models.ColJobURL])
	assert.Equal(t, "AI Engineer", row[models.ColTitle])
	assert.Equal(t, "https://in.linkedin.com/company/acme", row[models.ColCompanyURL])
	assert.Equal(t, civil.Date{Year: 2026, Month: 10, Day: 18}, row[models.ColDatePosted])
	assert.Equal(t, "mid-senior level", row[models.ColJobLevel])
	assert.Equal(t, models.JobTypeFullTime, row[models.ColJobType])
	assert.Equal(t, "it services", row[models.ColCompanyIndustry])
	assert.Equal(t, "Build LLM apps. careers@acme.com", row[models.ColDescription])
	assert.Equal(t, []string{"careers@acme.com"}, row[models.ColEmails])
}

func TestLinkedInSkipsDetailsWhenDisabled(t *testing.T) {
	detailHits := 0
	srv := serveHTML(t, func(r *http.Request) string {
		if r.URL.Path == "/jobs/view/123" {
			detailHits++
			return linkedInDetail
		}
		if r.URL.Query().Get("start") == "0" {
			return linkedInSearch
		}
		return ""
	})

	src := NewLinkedInSource(newTestClient(t))
	src.baseURL = srv.URL

	rows, err := src.FetchJobs(context.Background(), Query{SearchTerm: "ai engineer", ResultsWanted: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Zero(t, detailHits)
	assert.NotContains(t, rows[0], models.ColDescription)
}

const googlePage = `<html><body>
<div class="gws-plugins-horizon-jobs__li-ed">
  <div class="BjJfJf">Business Analyst</div>
  <div class="vNEEBe">Globex</div>
  <div class="Qk80Jf">Bengaluru, Karnataka</div>
  <div class="Qk80Jf">via Naukri</div>
  <div class="LL4CDc"><span>3 days ago</span><span>Full-time</span></div>
  <a class="pMhGee" href="https://naukri.example/job/1">Apply</a>
  <span class="HBvzbc">Analyse data.</span>
</div>
<div class="gws-plugins-horizon-jobs__li-ed">
  <div class="BjJfJf">No link</div>
</div>
</body></html>`

func TestGoogleFetchJobs(t *testing.T) {
	var term string
	srv := serveHTML(t, func(r *http.Request) string {
		if r.URL.Query().Get("start") != "" {
			return "<html><body></body></html>"
		}
		term = r.URL.Query().Get("q")
		return googlePage
	})

	src := NewGoogleSource(newTestClient(t))
	src.baseURL = srv.URL
	src.now = func() time.Time { return fixedNow }

	cell := models.Cell{Role: "business analyst", City: "Bengaluru", Location: "Bengaluru, Karnataka, India"}
	rows, err := src.FetchJobs(context.Background(), Query{
		SearchTerm:       cell.Role,
		GoogleSearchTerm: cell.GoogleSearchTerm(),
		Location:         cell.Location,
		ResultsWanted:    5,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "business analyst jobs near Bengaluru since yesterday", term)

	row := rows[0]
	assert.Equal(t, SiteGoogle, row[models.ColSite])
	assert.Equal(t, "https://naukri.example/job/1", row[models.ColJobURL])
	assert.Equal(t, "Globex", row[models.ColCompany])
	assert.Equal(t, "Bengaluru, Karnataka", row[models.ColLocation])
	assert.Equal(t, "Naukri", row["via"])
	assert.Equal(t, models.JobTypeFullTime, row[models.ColJobType])
	assert.Equal(t, civil.Date{Year: 2026, Month: 10, Day: 16}, row[models.ColDatePosted])
	assert.Contains(t, row[models.ColID], "go-")
}

func TestGoogleStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := NewGoogleSource(newTestClient(t))
	src.baseURL = srv.URL
	_, err := src.FetchJobs(context.Background(), Query{SearchTerm: "x", ResultsWanted: 1})
	require.Error(t, err)
}

func TestRemotiveFetchJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "data scientist", r.URL.Query().Get("search"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jobs": [
			{"id": 1, "url": "https://remotive.com/1", "title": "Data Scientist", "company_name": "Acme",
			 "category": "data-analysis", "tags": ["python", "sql"], "job_type": "full_time",
			 "publication_date": "2026-10-19T02:00:00", "candidate_required_location": "",
			 "salary": "$100k", "description": "Write to jobs@acme.io"},
			{"id": 2, "url": "https://remotive.com/2", "title": "Old Data Scientist", "company_name": "Acme",
			 "job_type": "contract", "publication_date": "2026-09-01T00:00:00"}
		]}`))
	}))
	defer srv.Close()

	src := NewRemotiveSource(newTestClient(t))
	src.baseURL = srv.URL
	src.now = func() time.Time { return fixedNow }

	rows, err := src.FetchJobs(context.Background(), Query{SearchTerm: "data scientist", ResultsWanted: 10, HoursOld: 24})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "rm-1", row[models.ColID])
	assert.Equal(t, "Remote", row[models.ColLocation])
	assert.Equal(t, "Data Analysis", row[models.ColJobFunction])
	assert.Equal(t, []string{"python", "sql"}, row[models.ColSkills])
	assert.Equal(t, []string{"jobs@acme.io"}, row[models.ColEmails])
	assert.Equal(t, "$100k", row["salary"])
	assert.Equal(t, true, row[models.ColIsRemote])
}

func TestRemoteOKFetchJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"legal": "API terms"},
			{"id": "11", "slug": "data-scientist-11", "company": "Hooli", "position": "Senior Data Scientist",
			 "tags": ["python", "data"], "salary_min": 90000, "salary_max": 120000,
			 "date": "2026-10-19T01:00:00+00:00"},
			{"id": "12", "company": "Hooli", "position": "Sales Lead", "tags": ["sales"],
			 "url": "https://remoteok.com/12", "date": "2026-10-19T01:00:00+00:00"}
		]`))
	}))
	defer srv.Close()

	src := NewRemoteOKSource(newTestClient(t))
	src.baseURL = srv.URL
	src.now = func() time.Time { return fixedNow }

	rows, err := src.FetchJobs(context.Background(), Query{SearchTerm: "data scientist", ResultsWanted: 10, HoursOld: 24})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "https://remoteok.com/remote-jobs/data-scientist-11", row[models.ColJobURL])
	assert.Equal(t, []string{"python", "data"}, row[models.ColSkills])
	assert.Equal(t, 90000.0, row[models.ColMinAmount])
	assert.Equal(t, "USD", row[models.ColCurrency])
	assert.Equal(t, "Data Science", row["category"])
}

func TestSourceManager(t *testing.T) {
	sm := NewDefaultManager(newTestClient(t), []string{"Indeed", "LinkedIn"}, 15)

	assert.Equal(t, []string{SiteGoogle, SiteIndeed, SiteLinkedIn, SiteRemotive, SiteRemoteOK}, sm.Names())

	src, err := sm.GetSource("indeed")
	require.NoError(t, err)
	assert.Equal(t, SiteIndeed, src.GetName())

	cfg, ok := sm.GetSourceConfig("linkedin")
	require.True(t, ok)
	assert.Equal(t, 10, cfg.RateLimit)

	cfg, _ = sm.GetSourceConfig("indeed")
	assert.Equal(t, 15, cfg.RateLimit)

	_, err = sm.GetSource("google")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")

	_, err = sm.GetSource("monster")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job site")
}
