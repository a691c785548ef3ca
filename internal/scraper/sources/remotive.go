package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"job-ingest-go/internal/models"
	"job-ingest-go/pkg/httpclient"
)

// RemotiveSource implements JobSource for Remotive API
type RemotiveSource struct {
	client  *httpclient.HttpClient
	baseURL string
	now     func() time.Time
}

// NewRemotiveSource creates a new Remotive source
func NewRemotiveSource(client *httpclient.HttpClient) *RemotiveSource {
	return &RemotiveSource{
		client:  client,
		baseURL: "https://remotive.com/api/remote-jobs",
		now:     time.Now,
	}
}

func (r *RemotiveSource) GetName() string {
	return SiteRemotive
}

func (r *RemotiveSource) GetRateLimit() int {
	return 100 // 100 requests per minute
}

func (r *RemotiveSource) GetBaseURL() string {
	return r.baseURL
}

// RemotiveResponse represents the API response from Remotive
type RemotiveResponse struct {
	Jobs []RemotiveJob `json:"jobs"`
}

// RemotiveJob represents a job from Remotive API
type RemotiveJob struct {
	ID                        int      `json:"id"`
	URL                       string   `json:"url"`
	Title                     string   `json:"title"`
	CompanyName               string   `json:"company_name"`
	CompanyLogo               string   `json:"company_logo"`
	Category                  string   `json:"category"`
	Tags                      []string `json:"tags"`
	JobType                   string   `json:"job_type"`
	PublicationDate           string   `json:"publication_date"`
	CandidateRequiredLocation string   `json:"candidate_required_location"`
	Salary                    string   `json:"salary"`
	Description               string   `json:"description"`
}

var remotiveDateFormats = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FetchJobs searches Remotive for q.SearchTerm. Remotive only lists remote
// roles, so q.Location is not sent; it is kept on the row for reference.
func (r *RemotiveSource) FetchJobs(ctx context.Context, q Query) ([]models.Row, error) {
	params := url.Values{}
	params.Set("search", q.SearchTerm)
	if q.ResultsWanted > 0 {
		params.Set("limit", strconv.Itoa(q.ResultsWanted))
	}

	resp, err := r.client.Get(ctx, r.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from Remotive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Remotive API returned status %d", resp.StatusCode)
	}

	var response RemotiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to parse Remotive response: %w", err)
	}

	now := r.now()
	var rows []models.Row
	for _, job := range response.Jobs {
		posted := parseFirst(job.PublicationDate, remotiveDateFormats)
		if !withinHours(posted, q.HoursOld, now) {
			continue
		}

		location := job.CandidateRequiredLocation
		if location == "" {
			location = "Remote"
		}

		row := models.Row{
			models.ColID:          "rm-" + strconv.Itoa(job.ID),
			models.ColSite:        SiteRemotive,
			models.ColJobURL:      job.URL,
			models.ColTitle:       job.Title,
			models.ColCompany:     job.CompanyName,
			models.ColLocation:    location,
			models.ColJobType:     r.getJobType(job.JobType),
			models.ColIsRemote:    true,
			models.ColDescription: orNA(job.Description),
			models.ColCompanyLogo: orNA(job.CompanyLogo),
			models.ColJobFunction: orNA(r.getJobCategory(job.Category)),
			models.ColEmails:      extractEmails(job.Description),
			"salary":              orNA(job.Salary),
			"search_location":     q.Location,
		}
		if len(job.Tags) > 0 {
			row[models.ColSkills] = job.Tags
		}
		if !posted.IsZero() {
			row[models.ColDatePosted] = civil.DateOf(posted)
		}
		rows = append(rows, row)
		if q.ResultsWanted > 0 && len(rows) >= q.ResultsWanted {
			break
		}
	}

	return rows, nil
}

// getJobCategory turns a Remotive category slug into a readable label
func (r *RemotiveSource) getJobCategory(category string) string {
	formatted := strings.ReplaceAll(category, "-", " ")
	words := strings.Fields(formatted)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}

// getJobType maps Remotive job types to our standardized job types
func (r *RemotiveSource) getJobType(jobType string) string {
	jobTypeLower := strings.ToLower(jobType)

	if strings.Contains(jobTypeLower, "full_time") || strings.Contains(jobTypeLower, "full-time") {
		return models.JobTypeFullTime
	}
	if strings.Contains(jobTypeLower, "part_time") || strings.Contains(jobTypeLower, "part-time") {
		return models.JobTypePartTime
	}
	if strings.Contains(jobTypeLower, "contract") || strings.Contains(jobTypeLower, "freelance") {
		return models.JobTypeContract
	}
	if strings.Contains(jobTypeLower, "intern") {
		return models.JobTypeInternship
	}

	return models.JobTypeFullTime // Default
}

// parseFirst tries each layout in turn and returns the zero time when none match.
func parseFirst(value string, layouts []string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
