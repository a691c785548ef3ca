package storage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"

	"job-ingest-go/internal/models"
	"job-ingest-go/internal/normalize"
)

// DefaultCSVPath is where CSVSink writes when no path is configured.
const DefaultCSVPath = "daily_jobs_full.csv"

// CSVSink writes rows to a local CSV file when no database is configured.
// Text fields are always quoted, numbers and booleans never are. The file is
// truncated when the first batch arrives.
type CSVSink struct {
	path    string
	columns []string
	file    *os.File
	w       *bufio.Writer
}

// NewCSVSink returns a sink writing to path.
func NewCSVSink(path string) *CSVSink {
	if path == "" {
		path = DefaultCSVPath
	}
	return &CSVSink{path: path, columns: models.PersistedColumns()}
}

// Name implements Sink.
func (s *CSVSink) Name() string { return "csv" }

// Path returns the output file.
func (s *CSVSink) Path() string { return s.path }

// UpsertBatch implements Sink. Rows are appended; the conflict key is unused
// since dedup already happened upstream.
func (s *CSVSink) UpsertBatch(ctx context.Context, _ string, records []map[string]any, _ []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.w == nil {
		if err := s.open(); err != nil {
			return err
		}
	}
	for _, rec := range records {
		if err := s.writeRow(rec); err != nil {
			return err
		}
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *CSVSink) open() error {
	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}
	s.file = file
	s.w = bufio.NewWriter(file)

	header := make([]string, len(s.columns))
	for i, c := range s.columns {
		header[i] = quoteField(c)
	}
	if _, err := s.w.WriteString(strings.Join(header, ",") + "\n"); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *CSVSink) writeRow(rec map[string]any) error {
	fields := make([]string, len(s.columns))
	for i, c := range s.columns {
		field, err := formatField(rec[c])
		if err != nil {
			return fmt.Errorf("column %s: %w", c, err)
		}
		fields[i] = field
	}
	if _, err := s.w.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Close flushes and closes the file. Closing a sink that never wrote is a no-op.
func (s *CSVSink) Close() error {
	if s.file == nil {
		return nil
	}
	flushErr := s.w.Flush()
	closeErr := s.file.Close()
	s.file, s.w = nil, nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func formatField(v any) (string, error) {
	if models.IsMissing(v) {
		return quoteField(""), nil
	}
	switch x := v.(type) {
	case bool:
		if x {
			return "True", nil
		}
		return "False", nil
	case string:
		return quoteField(x), nil
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return normalize.CanonicalJSON(v)
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		text, err := normalize.CanonicalJSON(v)
		if err != nil {
			return "", err
		}
		return quoteField(text), nil
	}
	return quoteField(fmt.Sprint(v)), nil
}

// quoteField wraps s in quotes, doubling quotes and escaping backslashes.
func quoteField(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `""`)
	return `"` + s + `"`
}
