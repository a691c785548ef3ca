package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-ingest-go/internal/models"
)

type upsertCall struct {
	table       string
	size        int
	firstURL    any
	conflictKey []string
}

type recordingSink struct {
	calls  []upsertCall
	failAt int
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) UpsertBatch(_ context.Context, table string, records []map[string]any, conflictKey []string) error {
	s.calls = append(s.calls, upsertCall{
		table:       table,
		size:        len(records),
		firstURL:    records[0][models.ColJobURL],
		conflictKey: conflictKey,
	})
	if s.failAt > 0 && len(s.calls) == s.failAt {
		return errors.New("503 service unavailable")
	}
	return nil
}

func (s *recordingSink) Close() error { return nil }

func makeRecords(n int) []map[string]any {
	recs := make([]map[string]any, n)
	for i := range recs {
		recs[i] = map[string]any{
			models.ColJobURL:      fmt.Sprintf("https://example.com/job/%d", i),
			models.ColCrawledDate: "2026-10-19",
		}
	}
	return recs
}

func TestUpsertSplitsIntoBatches(t *testing.T) {
	sink := &recordingSink{}

	written, err := Upsert(context.Background(), sink, "jobs", makeRecords(250), models.ConflictKey, DefaultBatchSize)
	require.NoError(t, err)
	assert.Equal(t, 250, written)

	require.Len(t, sink.calls, 3)
	assert.Equal(t, 100, sink.calls[0].size)
	assert.Equal(t, 100, sink.calls[1].size)
	assert.Equal(t, 50, sink.calls[2].size)
	assert.Equal(t, "https://example.com/job/200", sink.calls[2].firstURL)
	for _, c := range sink.calls {
		assert.Equal(t, "jobs", c.table)
		assert.Equal(t, []string{"job_url", "crawled_date"}, c.conflictKey)
	}
}

func TestUpsertStopsAtFirstFailure(t *testing.T) {
	sink := &recordingSink{failAt: 2}

	written, err := Upsert(context.Background(), sink, "jobs", makeRecords(250), models.ConflictKey, 100)
	require.Error(t, err)
	assert.Equal(t, 100, written)
	assert.Len(t, sink.calls, 2)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 1, batchErr.Index)
	assert.Equal(t, 100, batchErr.Offset)
	assert.Equal(t, 100, batchErr.Size)
	assert.Equal(t, 100, batchErr.Written)
	assert.Contains(t, err.Error(), "rows 100-199")
	assert.Contains(t, err.Error(), "503")
}

func TestUpsertNoRecords(t *testing.T) {
	sink := &recordingSink{}

	written, err := Upsert(context.Background(), sink, "jobs", nil, models.ConflictKey, 100)
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Empty(t, sink.calls)
}

func TestUpsertDefaultsBatchSize(t *testing.T) {
	sink := &recordingSink{}

	_, err := Upsert(context.Background(), sink, "jobs", makeRecords(101), models.ConflictKey, 0)
	require.NoError(t, err)
	require.Len(t, sink.calls, 2)
	assert.Equal(t, 1, sink.calls[1].size)
}

func TestUpsertCancelled(t *testing.T) {
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Upsert(ctx, sink, "jobs", makeRecords(5), models.ConflictKey, 100)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.calls)
}
