package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	supabase "github.com/nedpals/supabase-go"
	postgrest "github.com/supabase-community/postgrest-go"

	"job-ingest-go/internal/models"
)

// upserter is the slice of the PostgREST client SupabaseSink needs.
type upserter interface {
	Upsert(ctx context.Context, table string, rows []map[string]any, onConflict string) error
}

// restUpserter posts batches through supabase-community/postgrest-go, which
// can name the on_conflict columns.
type restUpserter struct {
	endpoint string
	headers  map[string]string
}

func newRestUpserter(supabaseURL, supabaseKey string) restUpserter {
	return restUpserter{
		endpoint: strings.TrimRight(supabaseURL, "/") + "/" + supabase.RestEndpoint,
		headers: map[string]string{
			"apikey":        supabaseKey,
			"Authorization": "Bearer " + supabaseKey,
		},
	}
}

// Upsert sends rows with resolution=merge-duplicates keyed on onConflict.
// The client is built per call so its transport can carry ctx.
func (r restUpserter) Upsert(ctx context.Context, table string, rows []map[string]any, onConflict string) error {
	client := postgrest.NewClient(r.endpoint, "public", r.headers)
	if client.ClientError != nil {
		return client.ClientError
	}
	client.Transport.Parent = &ctxTransport{ctx: ctx, base: http.DefaultTransport}

	_, _, err := client.From(table).Upsert(rows, onConflict, "minimal", "").Execute()
	return err
}

// ctxTransport binds every request to ctx.
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// SupabaseSink persists jobs through Supabase's PostgREST endpoint.
type SupabaseSink struct {
	client upserter
	db     *supabase.Client
}

// NewSupabaseSink creates a SupabaseSink. It reads SUPABASE_URL and SUPABASE_KEY
// from environment variables if empty values are provided.
func NewSupabaseSink(supabaseURL, supabaseKey string) (*SupabaseSink, error) {
	if supabaseURL == "" {
		supabaseURL = os.Getenv("SUPABASE_URL")
	}
	if supabaseKey == "" {
		supabaseKey = os.Getenv("SUPABASE_KEY")
	}
	if supabaseURL == "" || supabaseKey == "" {
		return nil, fmt.Errorf("supabase URL and key must be provided via args or SUPABASE_URL / SUPABASE_KEY env vars")
	}

	// CreateClient returns *supabase.Client (no error)
	client := supabase.CreateClient(supabaseURL, supabaseKey)
	return &SupabaseSink{
		client: newRestUpserter(supabaseURL, supabaseKey),
		db:     client,
	}, nil
}

// Name implements Sink.
func (s *SupabaseSink) Name() string { return "supabase" }

// Check reads at most one row of table, so bad credentials or a missing
// table fail before any scraping starts.
func (s *SupabaseSink) Check(ctx context.Context, table string) error {
	var rows []map[string]any
	err := s.db.DB.From(table).Select(models.ColJobURL).Limit(1).ExecuteWithContext(ctx, &rows)
	if err != nil {
		return fmt.Errorf("supabase check %s: %w", table, err)
	}
	return nil
}

// UpsertBatch implements Sink. Rows that collide on conflictKey are merged
// into the existing row.
func (s *SupabaseSink) UpsertBatch(ctx context.Context, table string, records []map[string]any, conflictKey []string) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Upsert(ctx, table, records, strings.Join(conflictKey, ",")); err != nil {
		return fmt.Errorf("supabase upsert into %s: %w", table, err)
	}
	return nil
}

// Close implements Sink; the HTTP client holds nothing to release.
func (s *SupabaseSink) Close() error { return nil }
