// Package normalize turns the concatenated scrape into rows the jobs table
// accepts: one crawl date, unique job URLs, explicit nulls, text dates,
// JSON-encoded nested fields and a fixed column set.
package normalize

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"job-ingest-go/internal/models"
)

const (
	dateLayout    = "2006-01-02"
	isoTimeLayout = "2006-01-02T15:04:05.999999-07:00"
)

// Result is a normalized table plus what normalization dropped.
type Result struct {
	Table       models.Table
	Duplicates  int
	MissingURL  int
	CrawledDate string
}

// CrawledDate is today's calendar date in loc, as YYYY-MM-DD.
func CrawledDate(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(dateLayout)
}

// Normalize applies, in order: crawl date stamping, job_url dedup, missing
// value nulling, date text conversion, nested field encoding and the
// allowlist projection. The input table's rows are modified in place.
func Normalize(in models.Table, crawledDate string) (Result, error) {
	table := in
	table.SetColumn(models.ColCrawledDate, crawledDate)

	unique, duplicates, missing := NewDeduplicator().RemoveDuplicates(table.Rows)
	table.Rows = unique

	for _, row := range table.Rows {
		nullMissing(row, table.Columns)
		datesToText(row, table.Columns)
		coerceRemote(row)
		if err := encodeNested(row); err != nil {
			return Result{}, fmt.Errorf("job %v: %w", row[models.ColJobURL], err)
		}
	}

	return Result{
		Table:       project(table),
		Duplicates:  duplicates,
		MissingURL:  missing,
		CrawledDate: crawledDate,
	}, nil
}

// nullMissing replaces every missing sentinel with nil. Columns the row never
// had become nil as well.
func nullMissing(row models.Row, columns []string) {
	for _, c := range columns {
		if models.IsMissing(row[c]) {
			row[c] = nil
		}
	}
}

// isDateColumn reports whether values of column get date text conversion.
func isDateColumn(column string) bool {
	return strings.Contains(column, "date") || strings.Contains(column, "time")
}

// datesToText converts date and datetime values in date-like columns to
// ISO-8601 text. Other values are left as they are.
func datesToText(row models.Row, columns []string) {
	for _, c := range columns {
		if !isDateColumn(c) {
			continue
		}
		switch v := row[c].(type) {
		case civil.Date:
			row[c] = v.String()
		case *civil.Date:
			row[c] = v.String()
		case civil.DateTime:
			row[c] = v.String()
		case time.Time:
			row[c] = v.Format(isoTimeLayout)
		case *time.Time:
			row[c] = v.Format(isoTimeLayout)
		}
	}
}

// coerceRemote makes is_remote a bool when a board returned text or a number.
func coerceRemote(row models.Row) {
	switch v := row[models.ColIsRemote].(type) {
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			row[models.ColIsRemote] = b
		} else {
			row[models.ColIsRemote] = strings.Contains(strings.ToLower(v), "remote")
		}
	case int:
		row[models.ColIsRemote] = v != 0
	case int64:
		row[models.ColIsRemote] = v != 0
	case float64:
		row[models.ColIsRemote] = v != 0
	}
}

// encodeNested turns list and mapping values of the nested columns into
// JSON text. Scalars pass through.
func encodeNested(row models.Row) error {
	for _, c := range models.NestedColumns {
		v, ok := row[c]
		if !ok || v == nil {
			continue
		}
		switch reflect.ValueOf(v).Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			text, err := CanonicalJSON(v)
			if err != nil {
				return fmt.Errorf("encode %s: %w", c, err)
			}
			row[c] = text
		}
	}
	return nil
}

// project narrows the table to the allowlist and packs every other column of
// each row into raw_data.
func project(in models.Table) models.Table {
	var extra []string
	for _, c := range in.Columns {
		if !models.IsAllowlisted(c) {
			extra = append(extra, c)
		}
	}

	out := models.Table{
		Columns: models.PersistedColumns(),
		Rows:    make([]models.Row, 0, len(in.Rows)),
	}
	for _, row := range in.Rows {
		raw := make(map[string]any, len(extra))
		for _, c := range extra {
			raw[c] = row[c]
		}
		projected := make(models.Row, len(out.Columns))
		for _, c := range models.Allowlist {
			projected[c] = row[c]
		}
		projected[models.ColRawData] = raw
		out.Rows = append(out.Rows, projected)
	}
	return out
}
