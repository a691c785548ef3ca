package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-ingest-go/internal/models"
)

func TestFormatField(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, `""`},
		{"na", models.NA, `""`},
		{"text", "Data Scientist", `"Data Scientist"`},
		{"quote", `say "hi"`, `"say ""hi"""`},
		{"backslash", `C:\jobs`, `"C:\\jobs"`},
		{"int", 42, `42`},
		{"float", 800000.0, `800000.0`},
		{"bool", true, `True`},
		{"map", map[string]any{"benefits": "PF"}, `"{""benefits"": ""PF""}"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatField(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCSVSinkWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.csv")
	sink := NewCSVSink(path)

	written, err := Upsert(context.Background(), sink, "jobs", makeRecords(3), models.ConflictKey, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, written)
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], `"site","job_url","job_url_direct",`))
	assert.True(t, strings.HasSuffix(lines[0], `"crawled_date","raw_data"`))
	assert.True(t, strings.HasPrefix(lines[1], `"","https://example.com/job/0","",`))
	assert.Equal(t, len(models.PersistedColumns())-1, strings.Count(lines[3], ","))
}

func TestCSVSinkDefaultPath(t *testing.T) {
	sink := NewCSVSink("")
	assert.Equal(t, DefaultCSVPath, sink.Path())
	assert.NoError(t, sink.Close())
}
