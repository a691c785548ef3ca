package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"

	"job-ingest-go/internal/models"
	"job-ingest-go/pkg/httpclient"
)

const googlePageSize = 10

// GoogleSource scrapes the Google jobs panel for the synthesized
// "<role> jobs near <city> since yesterday" query.
type GoogleSource struct {
	client  *httpclient.HttpClient
	baseURL string
	now     func() time.Time
}

func NewGoogleSource(client *httpclient.HttpClient) *GoogleSource {
	return &GoogleSource{
		client:  client,
		baseURL: "https://www.google.com",
		now:     time.Now,
	}
}

func (g *GoogleSource) GetName() string {
	return SiteGoogle
}

func (g *GoogleSource) GetRateLimit() int {
	return 10
}

func (g *GoogleSource) GetBaseURL() string {
	return g.baseURL
}

// ctxTransport binds every request colly makes to ctx.
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

func (g *GoogleSource) FetchJobs(ctx context.Context, q Query) ([]models.Row, error) {
	term := q.GoogleSearchTerm
	if term == "" {
		term = q.SearchTerm + " jobs near " + q.Location
	}
	wanted := q.ResultsWanted
	if wanted <= 0 {
		wanted = googlePageSize
	}

	base := g.client.Client().Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(&ctxTransport{ctx: ctx, base: base})
	c.SetRequestTimeout(g.client.Client().Timeout)
	c.UserAgent = httpclient.UserAgent()

	now := g.now()
	seen := make(map[string]bool)
	var (
		rows     []models.Row
		added    int
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "en-IN,en;q=0.9")
	})
	c.OnHTML("div.gws-plugins-horizon-jobs__li-ed", func(e *colly.HTMLElement) {
		if len(rows) >= wanted {
			return
		}
		row := g.parseCard(e, now)
		if row == nil {
			return
		}
		jobURL := row[models.ColJobURL].(string)
		if seen[jobURL] {
			return
		}
		seen[jobURL] = true
		rows = append(rows, row)
		added++
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("google: status %d: %w", r.StatusCode, err)
	})

	for start := 0; len(rows) < wanted; start += googlePageSize {
		params := url.Values{}
		params.Set("q", term)
		params.Set("ibp", "htl;jobs")
		params.Set("hl", "en")
		if start > 0 {
			params.Set("start", strconv.Itoa(start))
		}

		added = 0
		if err := c.Visit(g.baseURL + "/search?" + params.Encode()); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("google: %w", ctx.Err())
			}
			if fetchErr != nil {
				return nil, fetchErr
			}
			return nil, fmt.Errorf("google: visiting search page: %w", err)
		}
		if fetchErr != nil {
			return nil, fetchErr
		}
		if added == 0 {
			break
		}
	}
	return rows, nil
}

func (g *GoogleSource) parseCard(e *colly.HTMLElement, now time.Time) models.Row {
	title := cleanText(e.ChildText(".BjJfJf"))
	jobURL := e.ChildAttr("a.pMhGee", "href")
	if title == "" || jobURL == "" {
		return nil
	}

	var meta []string
	e.ForEach(".Qk80Jf", func(_ int, el *colly.HTMLElement) {
		meta = append(meta, cleanText(el.Text))
	})
	description := cleanText(e.ChildText(".HBvzbc"))

	row := models.Row{
		models.ColID:          "go-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(jobURL)).String(),
		models.ColSite:        SiteGoogle,
		models.ColJobURL:      jobURL,
		models.ColTitle:       title,
		models.ColCompany:     orNA(cleanText(e.ChildText(".vNEEBe"))),
		models.ColDescription: orNA(description),
		models.ColEmails:      extractEmails(description),
	}
	if len(meta) > 0 {
		row[models.ColLocation] = orNA(meta[0])
		row[models.ColIsRemote] = strings.Contains(strings.ToLower(meta[0]), "remote")
	}
	if len(meta) > 1 {
		row["via"] = strings.TrimPrefix(meta[1], "via ")
	}

	e.ForEach(".LL4CDc span", func(_ int, el *colly.HTMLElement) {
		text := cleanText(el.Text)
		if d, ok := parsePostedText(text, now); ok {
			row[models.ColDatePosted] = d
			return
		}
		if jt := jobTypeFromText(text); jt != "" {
			row[models.ColJobType] = jt
			return
		}
		if strings.ContainsAny(text, "₹$£€") {
			if sal, ok := parseSalary(text); ok {
				applySalary(row, sal, "direct_data")
			}
		}
	})
	return row
}
