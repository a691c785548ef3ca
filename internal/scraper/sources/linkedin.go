package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/PuerkitoBio/goquery"

	"job-ingest-go/internal/models"
	"job-ingest-go/pkg/httpclient"
)

const linkedInPageSize = 25

// LinkedInSource reads the public guest job search endpoints.
type LinkedInSource struct {
	client  *httpclient.HttpClient
	baseURL string
}

func NewLinkedInSource(client *httpclient.HttpClient) *LinkedInSource {
	return &LinkedInSource{
		client:  client,
		baseURL: "https://www.linkedin.com",
	}
}

func (l *LinkedInSource) GetName() string {
	return SiteLinkedIn
}

func (l *LinkedInSource) GetRateLimit() int {
	return 10
}

func (l *LinkedInSource) GetBaseURL() string {
	return l.baseURL
}

func (l *LinkedInSource) FetchJobs(ctx context.Context, q Query) ([]models.Row, error) {
	wanted := q.ResultsWanted
	if wanted <= 0 {
		wanted = linkedInPageSize
	}

	seen := make(map[string]bool)
	var rows []models.Row
	for start := 0; len(rows) < wanted; start += linkedInPageSize {
		page, err := l.fetchPage(ctx, q, start)
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

	if q.LinkedInFetchDescription {
		for _, row := range rows {
			if err := l.fetchDetails(ctx, row); err != nil {
				return nil, err
			}
		}
	}
	return rows, nil
}

func (l *LinkedInSource) fetchPage(ctx context.Context, q Query, start int) ([]models.Row, error) {
	params := url.Values{}
	params.Set("keywords", q.SearchTerm)
	params.Set("location", q.Location)
	if q.HoursOld > 0 {
		params.Set("f_TPR", "r"+strconv.Itoa(q.HoursOld*3600))
	}
	params.Set("start", strconv.Itoa(start))
	searchURL := fmt.Sprintf("%s/jobs-guest/jobs/api/seeMoreJobPostings/search?%s", l.baseURL, params.Encode())

	doc, err := l.getDocument(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	var rows []models.Row
	doc.Find("div.base-search-card").Each(func(_ int, s *goquery.Selection) {
		if row := l.parseCard(s); row != nil {
			rows = append(rows, row)
		}
	})
	return rows, nil
}

func (l *LinkedInSource) parseCard(s *goquery.Selection) models.Row {
	urn, _ := s.Attr("data-entity-urn")
	id := urn[strings.LastIndex(urn, ":")+1:]
	title := cleanText(s.Find(".base-search-card__title").Text())
	if id == "" || title == "" {
		return nil
	}

	companyLink := s.Find("h4.base-search-card__subtitle a").First()
	companyURL, _ := companyLink.Attr("href")
	if i := strings.Index(companyURL, "?"); i >= 0 {
		companyURL = companyURL[:i]
	}
	location := cleanText(s.Find(".job-search-card__location").Text())

	row := models.Row{
		models.ColID:         "li-" + id,
		models.ColSite:       SiteLinkedIn,
		models.ColJobURL:     l.baseURL + "/jobs/view/" + id,
		models.ColTitle:      title,
		models.ColCompany:    orNA(cleanText(companyLink.Text())),
		models.ColCompanyURL: orNA(companyURL),
		models.ColLocation:   orNA(location),
		models.ColIsRemote:   strings.Contains(strings.ToLower(location+" "+title), "remote"),
	}
	if logo, ok := s.Find("img.artdeco-entity-image").Attr("data-delayed-url"); ok {
		row[models.ColCompanyLogo] = logo
	}
	if dt, ok := s.Find("time").Attr("datetime"); ok {
		if d, err := civil.ParseDate(dt); err == nil {
			row[models.ColDatePosted] = d
		}
	}
	if sal, ok := parseSalary(cleanText(s.Find(".job-search-card__salary-info").Text())); ok {
		applySalary(row, sal, "direct_data")
	}
	if benefit := cleanText(s.Find(".job-posting-benefits__text").Text()); benefit != "" {
		row["benefits"] = benefit
	}
	return row
}

// criteriaColumns maps the job page's criteria headings to columns.
var criteriaColumns = map[string]string{
	"seniority level": models.ColJobLevel,
	"employment type": models.ColJobType,
	"job function":    models.ColJobFunction,
	"industries":      models.ColCompanyIndustry,
}

// fetchDetails loads the posting page and fills description and the
// criteria columns in place.
func (l *LinkedInSource) fetchDetails(ctx context.Context, row models.Row) error {
	doc, err := l.getDocument(ctx, row[models.ColJobURL].(string))
	if err != nil {
		return err
	}

	desc := cleanText(doc.Find(".show-more-less-html__markup").Text())
	row[models.ColDescription] = orNA(desc)
	row[models.ColEmails] = extractEmails(desc)

	doc.Find("li.description__job-criteria-item").Each(func(_ int, s *goquery.Selection) {
		heading := strings.ToLower(cleanText(s.Find("h3.description__job-criteria-subheader").Text()))
		value := cleanText(s.Find("span.description__job-criteria-text").Text())
		col, ok := criteriaColumns[heading]
		if !ok || value == "" {
			return
		}
		if col == models.ColJobType {
			if jt := jobTypeFromText(value); jt != "" {
				row[col] = jt
			}
			return
		}
		row[col] = strings.ToLower(value)
	})

	if apply, ok := doc.Find("code#applyUrl").Attr("data-url"); ok {
		row[models.ColJobURLDirect] = apply
	}
	return nil
}

func (l *LinkedInSource) getDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("linkedin: building request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("linkedin: executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("linkedin: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("linkedin: parsing HTML: %w", err)
	}
	return doc, nil
}
