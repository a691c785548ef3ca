package normalize

import (
	"fmt"
	"strings"

	"job-ingest-go/internal/models"
)

// Deduplicator drops rows whose job_url was already seen. The first
// occurrence wins, so the upsert never touches one conflict key twice in a
// batch.
type Deduplicator struct {
	seenJobs map[string]bool
}

// NewDeduplicator creates a new deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		seenJobs: make(map[string]bool),
	}
}

// RemoveDuplicates returns the rows with a new job_url, in input order, and
// counts what it dropped. Rows without a job_url cannot be keyed and are
// dropped too.
func (d *Deduplicator) RemoveDuplicates(rows []models.Row) (unique []models.Row, duplicates, missingURL int) {
	unique = make([]models.Row, 0, len(rows))
	for _, row := range rows {
		key, ok := jobKey(row)
		if !ok {
			missingURL++
			continue
		}
		if d.seenJobs[key] {
			duplicates++
			continue
		}
		d.seenJobs[key] = true
		unique = append(unique, row)
	}
	return unique, duplicates, missingURL
}

// jobKey is the row's job_url as text. URLs are compared exactly.
func jobKey(row models.Row) (string, bool) {
	v, ok := row[models.ColJobURL]
	if !ok || models.IsMissing(v) {
		return "", false
	}
	key, isString := v.(string)
	if !isString {
		key = fmt.Sprint(v)
	}
	if strings.TrimSpace(key) == "" {
		return "", false
	}
	return key, true
}
