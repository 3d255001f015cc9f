package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxIface is the subset of pgxpool.Pool (and pgx.Tx) the driver needs. It
// lets pgxmock stand in for a real pool.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres is a Backend over a PostgreSQL database.
type Postgres struct {
	db   PgxIface
	b    builder
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool to connString and verifies it with a ping.
func OpenPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.HealthCheckPeriod = 30 * time.Second
	config.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	p := NewPostgres(pool)
	p.pool = pool
	return p, nil
}

// NewPostgres wraps an existing pool or mock.
func NewPostgres(db PgxIface) *Postgres {
	return &Postgres{
		db: db,
		b:  builder{ph: squirrel.Dollar, encode: func(v any) any { return v }},
	}
}

// Close releases the pool if this driver opened it.
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// InTx runs fn inside a single transaction.
func (p *Postgres) InTx(ctx context.Context, fn func(Backend) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return translatePg(err)
	}
	defer tx.Rollback(ctx)
	if err := fn(&Postgres{db: tx, b: p.b}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translatePg(err)
	}
	return nil
}

func (p *Postgres) Select(ctx context.Context, q Query) ([]Row, error) {
	rows, err := p.selectFlat(ctx, q)
	if err != nil {
		return nil, err
	}
	if q.Embed != nil {
		if err := attachEmbed(ctx, p.selectFlat, rows, q.Embed); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (p *Postgres) selectFlat(ctx context.Context, q Query) ([]Row, error) {
	query, args, err := p.b.selectSQL(q)
	if err != nil {
		return nil, err
	}
	return p.query(ctx, query, args...)
}

func (p *Postgres) Insert(ctx context.Context, table string, rows ...Row) ([]Row, error) {
	var out []Row
	for _, row := range rows {
		query, args, err := p.b.insertSQL(table, row)
		if err != nil {
			return nil, err
		}
		inserted, err := p.query(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, inserted...)
	}
	return out, nil
}

func (p *Postgres) Update(ctx context.Context, table string, values Row, filters ...Filter) ([]Row, error) {
	query, args, err := p.b.updateSQL(table, values, filters)
	if err != nil {
		return nil, err
	}
	return p.query(ctx, query, args...)
}

func (p *Postgres) Delete(ctx context.Context, table string, filters ...Filter) ([]Row, error) {
	query, args, err := p.b.deleteSQL(table, filters)
	if err != nil {
		return nil, err
	}
	return p.query(ctx, query, args...)
}

// Call invokes a set-returning function using named notation:
// SELECT * FROM fn(a => $1, b => $2).
func (p *Postgres) Call(ctx context.Context, fn string, args Row) ([]Row, error) {
	if err := checkIdent(fn); err != nil {
		return nil, err
	}
	keys := sortedKeys(args)
	if err := checkIdent(keys...); err != nil {
		return nil, err
	}
	params := make([]string, len(keys))
	vals := make([]any, len(keys))
	for i, k := range keys {
		params[i] = fmt.Sprintf("%s => $%d", k, i+1)
		vals[i] = args[k]
	}
	query := fmt.Sprintf("SELECT * FROM %s(%s)", fn, strings.Join(params, ", "))
	return p.query(ctx, query, vals...)
}

func (p *Postgres) query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translatePg(err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, translatePg(err)
	}
	out := make([]Row, len(maps))
	for i, m := range maps {
		out[i] = Row(m)
	}
	return out, nil
}

// translatePg keeps SQLSTATE codes as they are, except for missing tables and
// functions which are reported with the PostgREST codes callers check for.
func translatePg(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case CodeUndefinedTable:
			return &Error{Code: CodeResourceNotFound, Message: pgErr.Message, Detail: pgErr.Code, Err: err}
		case CodeUndefinedFunction:
			return &Error{Code: CodeFunctionNotFound, Message: pgErr.Message, Detail: pgErr.Code, Err: err}
		}
		return &Error{Code: pgErr.Code, Message: pgErr.Message, Err: err}
	}
	return &Error{Message: err.Error(), Err: err}
}

// EnsureSchema creates the base tables and applies the given optional
// features. It is safe to call repeatedly.
func (p *Postgres) EnsureSchema(ctx context.Context, features ...Feature) error {
	if _, err := p.db.Exec(ctx, pgBaseSchema); err != nil {
		return fmt.Errorf("base schema: %w", translatePg(err))
	}
	for _, f := range features {
		ddl, ok := pgFeatures[f]
		if !ok {
			return fmt.Errorf("store: unknown feature %q", f)
		}
		if _, err := p.db.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("feature %s: %w", f, translatePg(err))
		}
	}
	return nil
}

const pgBaseSchema = `
CREATE TABLE IF NOT EXISTS blog_posts (
    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    post_id TEXT NOT NULL UNIQUE,
    slug TEXT NOT NULL,
    title TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT 'General Legal',
    tags TEXT[] NOT NULL DEFAULT '{}',
    excerpt TEXT NOT NULL DEFAULT '',
    introduction TEXT NOT NULL DEFAULT '',
    main_content TEXT NOT NULL DEFAULT '',
    conclusion TEXT NOT NULL DEFAULT '',
    significance TEXT NOT NULL DEFAULT 'Medium',
    publication_date TEXT NOT NULL,
    reading_time TEXT NOT NULL DEFAULT '',
    word_count INTEGER NOT NULL DEFAULT 0,
    author TEXT NOT NULL DEFAULT '',
    case_type TEXT NOT NULL DEFAULT '',
    outcome TEXT NOT NULL DEFAULT '',
    legal_implications TEXT NOT NULL DEFAULT '',
    twitter_summary TEXT NOT NULL DEFAULT '',
    linkedin_summary TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blog_posts_date ON blog_posts(publication_date DESC);

CREATE TABLE IF NOT EXISTS timeline_entries (
    id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    entry_date TEXT NOT NULL,
    event_type TEXT NOT NULL DEFAULT 'Legal Event',
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    significance TEXT NOT NULL DEFAULT '',
    legal_context TEXT NOT NULL DEFAULT '',
    related_cases TEXT[] NOT NULL DEFAULT '{}',
    confidence_level TEXT NOT NULL DEFAULT 'Medium',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_timeline_entries_date ON timeline_entries(entry_date DESC);

CREATE TABLE IF NOT EXISTS profile (
    id INTEGER PRIMARY KEY,
    full_name TEXT NOT NULL DEFAULT '',
    current_position TEXT NOT NULL DEFAULT '',
    previous_position TEXT NOT NULL DEFAULT '',
    law_firm TEXT NOT NULL DEFAULT '',
    career_span TEXT NOT NULL DEFAULT '',
    specialization TEXT NOT NULL DEFAULT '',
    undergraduate TEXT NOT NULL DEFAULT '',
    graduate TEXT NOT NULL DEFAULT '',
    professional TEXT NOT NULL DEFAULT '',
    institutions TEXT[] NOT NULL DEFAULT '{}',
    featured_image_url TEXT NOT NULL DEFAULT '',
    featured_image_alt TEXT NOT NULL DEFAULT '',
    featured_image_caption TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ
);
INSERT INTO profile (id) VALUES (1) ON CONFLICT (id) DO NOTHING;

CREATE TABLE IF NOT EXISTS company_profile (
    id INTEGER PRIMARY KEY,
    firm_name TEXT NOT NULL DEFAULT '',
    firm_description TEXT NOT NULL DEFAULT '',
    established TEXT NOT NULL DEFAULT '',
    vision TEXT NOT NULL DEFAULT '',
    mission TEXT NOT NULL DEFAULT '',
    founding_partners JSONB NOT NULL DEFAULT '[]',
    firm_values TEXT[] NOT NULL DEFAULT '{}',
    areas_of_practice JSONB NOT NULL DEFAULT '[]',
    updated_at TIMESTAMPTZ
);
INSERT INTO company_profile (id) VALUES (1) ON CONFLICT (id) DO NOTHING;

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'admin',
    password_hash TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    token_hash TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
`

var pgFeatures = map[Feature]string{
	FeatureArchive: `
ALTER TABLE blog_posts ADD COLUMN IF NOT EXISTS is_archived BOOLEAN NOT NULL DEFAULT FALSE;
CREATE INDEX IF NOT EXISTS idx_blog_posts_archived ON blog_posts(is_archived);
`,
	FeatureTimelineSources: `
CREATE TABLE IF NOT EXISTS timeline_sources (
    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    timeline_entry_id TEXT NOT NULL REFERENCES timeline_entries(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL DEFAULT 0,
    url TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    publication TEXT NOT NULL DEFAULT '',
    source_date TEXT,
    source_type TEXT NOT NULL DEFAULT '',
    case_number TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_timeline_sources_entry ON timeline_sources(timeline_entry_id);
`,
	FeaturePostSources: `
CREATE TABLE IF NOT EXISTS blog_sources (
    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    blog_post_id BIGINT NOT NULL REFERENCES blog_posts(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL DEFAULT 0,
    url TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    publication TEXT NOT NULL DEFAULT '',
    source_date TEXT,
    source_type TEXT NOT NULL DEFAULT '',
    case_number TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_blog_sources_post ON blog_sources(blog_post_id);
`,
	FeatureScrapingLog: `
CREATE TABLE IF NOT EXISTS scraping_log (
    id TEXT PRIMARY KEY,
    scraping_date TIMESTAMPTZ NOT NULL,
    source TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT '',
    items_found INTEGER NOT NULL DEFAULT 0,
    items_added INTEGER NOT NULL DEFAULT 0,
    message TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_scraping_log_date ON scraping_log(scraping_date DESC);
`,
	FeatureStats: `
CREATE OR REPLACE FUNCTION dashboard_stats()
RETURNS TABLE (
    total_posts BIGINT,
    high_significance_posts BIGINT,
    total_timeline_entries BIGINT,
    appointments BIGINT,
    legal_cases BIGINT
) LANGUAGE sql STABLE AS $$
    SELECT
        (SELECT COUNT(*) FROM blog_posts),
        (SELECT COUNT(*) FROM blog_posts WHERE significance = 'High'),
        (SELECT COUNT(*) FROM timeline_entries),
        (SELECT COUNT(*) FROM timeline_entries WHERE event_type = 'Government Appointment'),
        (SELECT COUNT(*) FROM timeline_entries WHERE event_type = 'Legal Case')
$$;
`,
}
