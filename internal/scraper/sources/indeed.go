package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"job-ingest-go/internal/models"
	"job-ingest-go/pkg/httpclient"
)

const indeedPageSize = 10

// indeedDomains maps the country_indeed setting to the Indeed host for it.
var indeedDomains = map[string]string{
	"INDIA":     "in.indeed.com",
	"USA":       "www.indeed.com",
	"US":        "www.indeed.com",
	"UK":        "uk.indeed.com",
	"CANADA":    "ca.indeed.com",
	"AUSTRALIA": "au.indeed.com",
	"GERMANY":   "de.indeed.com",
	"SINGAPORE": "sg.indeed.com",
}

// IndeedSource scrapes the Indeed search results page.
type IndeedSource struct {
	client  *httpclient.HttpClient
	baseURL string // overrides the per-country host when set
	now     func() time.Time
}

func NewIndeedSource(client *httpclient.HttpClient) *IndeedSource {
	return &IndeedSource{client: client, now: time.Now}
}

func (in *IndeedSource) GetName() string {
	return SiteIndeed
}

func (in *IndeedSource) GetRateLimit() int {
	return 20
}

func (in *IndeedSource) GetBaseURL() string {
	if in.baseURL != "" {
		return in.baseURL
	}
	return "https://" + indeedDomains["INDIA"]
}

// hostFor returns the scheme and host for country.
func (in *IndeedSource) hostFor(country string) (string, error) {
	if in.baseURL != "" {
		return in.baseURL, nil
	}
	domain, ok := indeedDomains[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		return "", fmt.Errorf("indeed: unsupported country %q", country)
	}
	return "https://" + domain, nil
}

// FetchJobs pages through search results until ResultsWanted rows are read
// or a page comes back without cards.
func (in *IndeedSource) FetchJobs(ctx context.Context, q Query) ([]models.Row, error) {
	host, err := in.hostFor(q.CountryIndeed)
	if err != nil {
		return nil, err
	}

	wanted := q.ResultsWanted
	if wanted <= 0 {
		wanted = indeedPageSize
	}

	now := in.now()
	seen := make(map[string]bool)
	var rows []models.Row
	for start := 0; len(rows) < wanted; start += indeedPageSize {
		page, err := in.fetchPage(ctx, host, q, start, now)
		if err != nil {
			return nil, err
		}
		added := 0
		for _, row := range page {
			id := row[models.ColID].(string)
			if seen[id] {
				continue
			}
			seen[id] = true
			rows = append(rows, row)
			added++
			if len(rows) >= wanted {
				break
			}
		}
		if added == 0 {
			break
		}
	}
	return rows, nil
}

func (in *IndeedSource) fetchPage(ctx context.Context, host string, q Query, start int, now time.Time) ([]models.Row, error) {
	params := url.Values{}
	params.Set("q", q.SearchTerm)
	params.Set("l", q.Location)
	if q.HoursOld > 0 {
		days := (q.HoursOld + 23) / 24
		params.Set("fromage", strconv.Itoa(days))
	}
	if start > 0 {
		params.Set("start", strconv.Itoa(start))
	}
	searchURL := fmt.Sprintf("%s/jobs?%s", host, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("indeed: building request: %w", err)
	}
	resp, err := in.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indeed: executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indeed: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("indeed: parsing HTML: %w", err)
	}

	var rows []models.Row
	doc.Find(".job_seen_beacon").Each(func(_ int, s *goquery.Selection) {
		if row := in.parseCard(s, host, now); row != nil {
			rows = append(rows, row)
		}
	})
	return rows, nil
}

func (in *IndeedSource) parseCard(s *goquery.Selection, host string, now time.Time) models.Row {
	link := s.Find("h2.jobTitle a").First()
	jk, _ := link.Attr("data-jk")
	title := cleanText(s.Find("h2.jobTitle span[title]").First().Text())
	if title == "" {
		title = cleanText(link.Text())
	}
	if jk == "" || title == "" {
		return nil
	}

	location := cleanText(s.Find(`[data-testid="text-location"]`).Text())
	snippet := cleanText(s.Find(".job-snippet").Text())

	row := models.Row{
		models.ColID:          "in-" + jk,
		models.ColSite:        SiteIndeed,
		models.ColJobURL:      host + "/viewjob?jk=" + jk,
		models.ColTitle:       title,
		models.ColCompany:     orNA(cleanText(s.Find(`[data-testid="company-name"]`).Text())),
		models.ColLocation:    orNA(location),
		models.ColIsRemote:    strings.Contains(strings.ToLower(location+" "+title), "remote"),
		models.ColDescription: orNA(snippet),
		models.ColEmails:      extractEmails(snippet),
	}

	if posted, ok := parsePostedText(s.Find(`[data-testid="myJobsStateDate"], span.date`).First().Text(), now); ok {
		row[models.ColDatePosted] = posted
	}

	var attrs []string
	s.Find(`[data-testid="attribute_snippet_testid"]`).Each(func(_ int, a *goquery.Selection) {
		if t := cleanText(a.Text()); t != "" {
			attrs = append(attrs, t)
		}
	})
	salaryText := cleanText(s.Find(".salary-snippet-container").Text())
	for _, a := range attrs {
		if jt := jobTypeFromText(a); jt != "" {
			row[models.ColJobType] = jt
			continue
		}
		if salaryText == "" && strings.ContainsAny(a, "₹$£€") {
			salaryText = a
		}
	}
	if sal, ok := parseSalary(salaryText); ok {
		applySalary(row, sal, "direct_data")
	}
	if len(attrs) > 0 {
		row["attributes"] = attrs
	}
	return row
}

// jobTypeFromText maps labels such as "Full-time" to a job type value.
func jobTypeFromText(text string) string {
	t := strings.ToLower(strings.NewReplacer("-", "", " ", "").Replace(text))
	switch {
	case strings.Contains(t, "fulltime"), strings.Contains(t, "permanent"):
		return models.JobTypeFullTime
	case strings.Contains(t, "parttime"):
		return models.JobTypePartTime
	case strings.Contains(t, "contract"), strings.Contains(t, "freelance"):
		return models.JobTypeContract
	case strings.Contains(t, "intern"):
		return models.JobTypeInternship
	case strings.Contains(t, "temporary"):
		return models.JobTypeTemporary
	}
	return ""
}
