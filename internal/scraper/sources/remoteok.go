package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"job-ingest-go/internal/models"
	"job-ingest-go/pkg/httpclient"
)

// RemoteOKSource implements JobSource for RemoteOK API
type RemoteOKSource struct {
	client  *httpclient.HttpClient
	baseURL string
	now     func() time.Time
}

// NewRemoteOKSource creates a new RemoteOK source
func NewRemoteOKSource(client *httpclient.HttpClient) *RemoteOKSource {
	return &RemoteOKSource{
		client:  client,
		baseURL: "https://remoteok.com/api",
		now:     time.Now,
	}
}

func (r *RemoteOKSource) GetName() string {
	return SiteRemoteOK
}

func (r *RemoteOKSource) GetRateLimit() int {
	return 60 // 60 requests per minute
}

func (r *RemoteOKSource) GetBaseURL() string {
	return r.baseURL
}

// RemoteOKJob represents a job from RemoteOK API
type RemoteOKJob struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Company     string    `json:"company"`
	CompanyLogo string    `json:"company_logo"`
	Position    string    `json:"position"`
	Tags        []string  `json:"tags"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	SalaryMin   int       `json:"salary_min"`
	SalaryMax   int       `json:"salary_max"`
	URL         string    `json:"url"`
	ApplyURL    string    `json:"apply_url"`
	Date        time.Time `json:"date"`
}

// FetchJobs reads the RemoteOK feed and keeps the postings whose title or
// tags match q.SearchTerm. The feed has no server-side search.
func (r *RemoteOKSource) FetchJobs(ctx context.Context, q Query) ([]models.Row, error) {
	resp, err := r.client.Get(ctx, r.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from RemoteOK: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("RemoteOK API returned status %d", resp.StatusCode)
	}

	var remoteOKJobs []RemoteOKJob
	if err := json.NewDecoder(resp.Body).Decode(&remoteOKJobs); err != nil {
		return nil, fmt.Errorf("failed to parse RemoteOK response: %w", err)
	}

	now := r.now()
	var rows []models.Row
	for _, job := range remoteOKJobs {
		// Skip the first element which is metadata
		if job.ID == "" {
			continue
		}
		if !matchesTerm(job.Position+" "+strings.Join(job.Tags, " "), q.SearchTerm) {
			continue
		}
		if !withinHours(job.Date, q.HoursOld, now) {
			continue
		}

		jobURL := job.URL
		if jobURL == "" {
			jobURL = fmt.Sprintf("https://remoteok.com/remote-jobs/%s", job.Slug)
		}

		row := models.Row{
			models.ColID:           "ro-" + job.ID,
			models.ColSite:         SiteRemoteOK,
			models.ColJobURL:       jobURL,
			models.ColJobURLDirect: orNA(job.ApplyURL),
			models.ColTitle:        job.Position,
			models.ColCompany:      job.Company,
			models.ColLocation:     orNA(job.Location),
			models.ColJobType:      r.getJobType(job.Tags),
			models.ColIsRemote:     true,
			models.ColDescription:  orNA(job.Description),
			models.ColCompanyLogo:  orNA(job.CompanyLogo),
			models.ColEmails:       extractEmails(job.Description),
			models.ColSkills:       job.Tags,
			"category":             r.getJobCategory(job.Tags),
		}
		if !job.Date.IsZero() {
			row[models.ColDatePosted] = civil.DateOf(job.Date)
		}
		if job.SalaryMin > 0 || job.SalaryMax > 0 {
			applySalary(row, salary{
				Min:      float64(job.SalaryMin),
				Max:      float64(job.SalaryMax),
				Interval: "yearly",
				Currency: "USD",
			}, "direct_data")
		}

		rows = append(rows, row)
		if q.ResultsWanted > 0 && len(rows) >= q.ResultsWanted {
			break
		}
	}

	return rows, nil
}

// getJobCategory extracts job category from tags - using a conservative approach since tags are mixed
func (r *RemoteOKSource) getJobCategory(tags []string) string {
	// Priority mapping - more specific tags first
	categoryMap := map[string]string{
		"backend":    "Backend Development",
		"frontend":   "Frontend Development",
		"fullstack":  "Full Stack Development",
		"full-stack": "Full Stack Development",
		"devops":     "DevOps",
		"data":       "Data Science",
		"ml":         "Machine Learning",
		"ai":         "Artificial Intelligence",
		"mobile":     "Mobile Development",
		"design":     "Design",
		"marketing":  "Marketing",
		"sales":      "Sales",
	}

	for _, tag := range tags {
		if category, exists := categoryMap[strings.ToLower(tag)]; exists {
			return category
		}
	}
	return "Technology" // Safe default
}

// getJobType extracts job type from tags
func (r *RemoteOKSource) getJobType(tags []string) string {
	for _, tag := range tags {
		switch strings.ToLower(tag) {
		case "full-time", "fulltime", "permanent":
			return models.JobTypeFullTime
		case "part-time", "parttime":
			return models.JobTypePartTime
		case "contract", "contractor", "freelance":
			return models.JobTypeContract
		case "internship", "intern":
			return models.JobTypeInternship
		}
	}
	return models.JobTypeFullTime // Default assumption
}
