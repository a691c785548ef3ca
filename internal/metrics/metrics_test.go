package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r, err := NewRecorder("", "job_ingest")
	require.NoError(t, err)

	r.ObserveSite("indeed", 12, 2*time.Second, nil)
	r.ObserveSite("linkedin", 0, time.Second, errors.New("429"))
	r.ObserveCell("ok")
	r.ObserveCell("failed")
	r.RowsDropped("duplicate", 3)
	r.RowsDropped("missing_url", 0)
	r.BatchWritten("supabase", 100)
	r.BatchWritten("supabase", 50)
	r.BatchFailed("supabase")
	r.RunFinished(90*time.Second, true, time.Unix(1700000000, 0))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.siteCalls.WithLabelValues("indeed", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.siteCalls.WithLabelValues("linkedin", "error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.siteRows.WithLabelValues("indeed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cells.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.rowsDropped.WithLabelValues("duplicate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.batches.WithLabelValues("supabase", "success")))
	assert.Equal(t, 150.0, testutil.ToFloat64(r.rowsWritten.WithLabelValues("supabase")))
	assert.Equal(t, 90.0, testutil.ToFloat64(r.runDuration))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.lastSuccess))
	assert.Equal(t, 2, testutil.CollectAndCount(r.siteDuration, "jobingest_site_duration_seconds"))
}

func TestPushWithoutURLIsNoop(t *testing.T) {
	r, err := NewRecorder("", "job_ingest")
	require.NoError(t, err)
	require.NoError(t, r.Push(context.Background()))
}

func TestPushSendsJobGroup(t *testing.T) {
	var hits atomic.Int32
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		path.Store(req.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r, err := NewRecorder(srv.URL, "job_ingest")
	require.NoError(t, err)
	r.ObserveCell("ok")

	require.NoError(t, r.Push(context.Background()))
	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, strings.HasSuffix(path.Load().(string), "/job/job_ingest"))
}

func TestPushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r, err := NewRecorder(srv.URL, "job_ingest")
	require.NoError(t, err)

	err = r.Push(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
}
