package sources

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"job-ingest-go/internal/models"
)

var (
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	relativePattern = regexp.MustCompile(`(\d+)\+?\s*(minute|min|hour|hr|day|week|month)s?`)
	spacePattern    = regexp.MustCompile(`\s+`)
)

// extractEmails returns the distinct addresses found in text, or nil.
func extractEmails(text string) []string {
	found := emailPattern.FindAllString(text, -1)
	if len(found) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(found))
	var out []string
	for _, e := range found {
		e = strings.ToLower(e)
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// parsePostedText turns listing labels like "3 days ago", "Just posted" or
// "30+ days ago" into a calendar date relative to now.
func parsePostedText(text string, now time.Time) (civil.Date, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return civil.Date{}, false
	}
	if strings.Contains(text, "just") || strings.Contains(text, "today") || strings.Contains(text, "active") {
		return civil.DateOf(now), true
	}
	if strings.Contains(text, "yesterday") {
		return civil.DateOf(now.AddDate(0, 0, -1)), true
	}
	m := relativePattern.FindStringSubmatch(text)
	if m == nil {
		return civil.Date{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return civil.Date{}, false
	}
	switch m[2] {
	case "minute", "min":
		return civil.DateOf(now.Add(-time.Duration(n) * time.Minute)), true
	case "hour", "hr":
		return civil.DateOf(now.Add(-time.Duration(n) * time.Hour)), true
	case "day":
		return civil.DateOf(now.AddDate(0, 0, -n)), true
	case "week":
		return civil.DateOf(now.AddDate(0, 0, -7*n)), true
	case "month":
		return civil.DateOf(now.AddDate(0, -n, 0)), true
	}
	return civil.Date{}, false
}

// withinHours reports whether posted falls inside the recency window.
// hours <= 0 disables the filter.
func withinHours(posted time.Time, hours int, now time.Time) bool {
	if hours <= 0 || posted.IsZero() {
		return true
	}
	return !posted.Before(now.Add(-time.Duration(hours) * time.Hour))
}

// cleanText collapses whitespace runs.
func cleanText(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// orNA maps empty strings to a missing value.
func orNA(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// matchesTerm reports whether every word of term appears in text.
func matchesTerm(text, term string) bool {
	text = strings.ToLower(text)
	for _, w := range strings.Fields(strings.ToLower(term)) {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

var amountPattern = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*([kK])?`)

// salary is a compensation range parsed from listing text.
type salary struct {
	Min      float64
	Max      float64
	Interval string
	Currency string
}

// parseSalary reads labels like "₹5,00,000 - ₹8,00,000 a year" or
// "$40 - $55 an hour". Single amounts set Min and Max to the same value.
func parseSalary(text string) (salary, bool) {
	text = strings.TrimSpace(text)
	matches := amountPattern.FindAllStringSubmatch(text, 2)
	if len(matches) == 0 {
		return salary{}, false
	}

	var amounts []float64
	for _, m := range matches {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			return salary{}, false
		}
		if m[2] != "" {
			v *= 1000
		}
		amounts = append(amounts, v)
	}

	s := salary{Min: amounts[0], Max: amounts[len(amounts)-1]}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "hour"):
		s.Interval = "hourly"
	case strings.Contains(lower, "day"):
		s.Interval = "daily"
	case strings.Contains(lower, "week"):
		s.Interval = "weekly"
	case strings.Contains(lower, "month"):
		s.Interval = "monthly"
	default:
		s.Interval = "yearly"
	}
	switch {
	case strings.Contains(text, "₹"):
		s.Currency = "INR"
	case strings.Contains(text, "£"):
		s.Currency = "GBP"
	case strings.Contains(text, "€"):
		s.Currency = "EUR"
	case strings.Contains(text, "$"):
		s.Currency = "USD"
	}
	return s, true
}

// applySalary copies s into the compensation columns of row.
func applySalary(row models.Row, s salary, source string) {
	row[models.ColMinAmount] = s.Min
	row[models.ColMaxAmount] = s.Max
	row[models.ColInterval] = s.Interval
	row[models.ColCurrency] = orNA(s.Currency)
	row[models.ColSalarySource] = source
}
