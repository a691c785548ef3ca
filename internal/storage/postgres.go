package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"job-ingest-go/internal/models"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// maxBindParams is the most placeholders one Postgres statement may carry.
const maxBindParams = 65535

// MaxBatchSize is the largest batch PostgresSink can write as one INSERT.
var MaxBatchSize = maxBindParams / len(models.PersistedColumns())

// columnTypes are the Postgres types of the persisted columns. Unlisted
// columns are text.
var columnTypes = map[string]string{
	models.ColMinAmount:           "double precision",
	models.ColMaxAmount:           "double precision",
	models.ColIsRemote:            "boolean",
	models.ColCompanyRating:       "double precision",
	models.ColCompanyReviewsCount: "double precision",
	models.ColVacancyCount:        "double precision",
	models.ColCrawledDate:         "date",
	models.ColRawData:             "jsonb",
}

// PostgresConfig controls the connection pool used by PostgresSink.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresSink upserts rows straight into a Postgres table.
type PostgresSink struct {
	pool    execCloser
	columns []string
}

// NewPostgresSink connects a pool using cfg.
func NewPostgresSink(ctx context.Context, cfg PostgresConfig) (*PostgresSink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresSink{pool: pool, columns: models.PersistedColumns()}, nil
}

// NewPostgresSinkWithPool constructs a sink from an existing pool (primarily for testing).
func NewPostgresSinkWithPool(pool execCloser) (*PostgresSink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PostgresSink{pool: pool, columns: models.PersistedColumns()}, nil
}

// Name implements Sink.
func (s *PostgresSink) Name() string { return "postgres" }

// Close releases the underlying pool resources.
func (s *PostgresSink) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// EnsureSchema creates table if it does not exist, keyed on conflictKey.
func (s *PostgresSink) EnsureSchema(ctx context.Context, table string, conflictKey []string) error {
	if !validTableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	defs := make([]string, 0, len(s.columns)+1)
	for _, c := range s.columns {
		typ, ok := columnTypes[c]
		if !ok {
			typ = "text"
		}
		def := quoteIdent(c) + " " + typ
		if contains(conflictKey, c) {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs, "PRIMARY KEY ("+quoteIdents(conflictKey)+")")

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quoteIdent(table), strings.Join(defs, ",\n\t"))
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// UpsertBatch implements Sink with a single multi-row INSERT ... ON CONFLICT.
func (s *PostgresSink) UpsertBatch(ctx context.Context, table string, records []map[string]any, conflictKey []string) error {
	if len(records) == 0 {
		return nil
	}
	if !validTableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	if len(conflictKey) == 0 {
		return fmt.Errorf("conflict key is required")
	}
	if n := len(records) * len(s.columns); n > maxBindParams {
		return fmt.Errorf("upsert into %s: %d rows need %d parameters, limit is %d", table, len(records), n, maxBindParams)
	}

	query := upsertQuery(table, s.columns, conflictKey, len(records))
	args := make([]any, 0, len(records)*len(s.columns))
	for _, rec := range records {
		for _, c := range s.columns {
			args = append(args, rec[c])
		}
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", table, err)
	}
	if tag.RowsAffected() != int64(len(records)) {
		return fmt.Errorf("upsert into %s: %d of %d rows affected", table, tag.RowsAffected(), len(records))
	}
	return nil
}

func upsertQuery(table string, columns, conflictKey []string, rows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", quoteIdent(table), quoteIdents(columns))

	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range columns {
			if c > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		b.WriteByte(')')
	}

	fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET ", quoteIdents(conflictKey))
	first := true
	for _, c := range columns {
		if contains(conflictKey, c) {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s = EXCLUDED.%s", quoteIdent(c), quoteIdent(c))
	}
	return b.String()
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
