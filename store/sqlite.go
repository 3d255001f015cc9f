package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// TimeLayout is the fixed-width UTC layout used for timestamps stored as
// text, so that lexical order matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type sqlRunner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLite is a Backend over a local SQLite database.
type SQLite struct {
	sqliteConn
	db *sql.DB
}

type sqliteConn struct {
	r     sqlRunner
	b     builder
	procs *procedures
}

type procedures struct {
	mu sync.RWMutex
	m  map[string]string
}

func (p *procedures) get(name string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	q, ok := p.m[name]
	return q, ok
}

func (p *procedures) set(name, query string) {
	p.mu.Lock()
	p.m[name] = query
	p.mu.Unlock()
}

// OpenSQLite opens (or creates) the SQLite database at path and ensures the
// data directory exists. It does not create any tables; call EnsureSchema.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	// WAL lets readers proceed during writes; busy_timeout makes writers wait
	// instead of failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	return &SQLite{
		db: db,
		sqliteConn: sqliteConn{
			r:     db,
			b:     builder{ph: squirrel.Question, encode: encodeSQLite},
			procs: &procedures{m: make(map[string]string)},
		},
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for migrations and tests.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// RegisterProcedure makes a named procedure callable through Call. query may
// reference arguments as :name.
func (s *SQLite) RegisterProcedure(name, query string) error {
	if err := checkIdent(name); err != nil {
		return err
	}
	s.procs.set(name, query)
	return nil
}

// InTx runs fn inside a single transaction.
func (s *SQLite) InTx(ctx context.Context, fn func(Backend) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateSQLite(err)
	}
	defer tx.Rollback()
	if err := fn(&sqliteConn{r: tx, b: s.b, procs: s.procs}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translateSQLite(err)
	}
	return nil
}

func (c *sqliteConn) Select(ctx context.Context, q Query) ([]Row, error) {
	rows, err := c.selectFlat(ctx, q)
	if err != nil {
		return nil, err
	}
	if q.Embed != nil {
		if err := attachEmbed(ctx, c.selectFlat, rows, q.Embed); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (c *sqliteConn) selectFlat(ctx context.Context, q Query) ([]Row, error) {
	query, args, err := c.b.selectSQL(q)
	if err != nil {
		return nil, err
	}
	return c.query(ctx, query, args...)
}

func (c *sqliteConn) Insert(ctx context.Context, table string, rows ...Row) ([]Row, error) {
	var out []Row
	for _, row := range rows {
		query, args, err := c.b.insertSQL(table, row)
		if err != nil {
			return nil, err
		}
		inserted, err := c.query(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, inserted...)
	}
	return out, nil
}

func (c *sqliteConn) Update(ctx context.Context, table string, values Row, filters ...Filter) ([]Row, error) {
	query, args, err := c.b.updateSQL(table, values, filters)
	if err != nil {
		return nil, err
	}
	return c.query(ctx, query, args...)
}

func (c *sqliteConn) Delete(ctx context.Context, table string, filters ...Filter) ([]Row, error) {
	query, args, err := c.b.deleteSQL(table, filters)
	if err != nil {
		return nil, err
	}
	return c.query(ctx, query, args...)
}

func (c *sqliteConn) Call(ctx context.Context, fn string, args Row) ([]Row, error) {
	query, ok := c.procs.get(fn)
	if !ok {
		return nil, &Error{
			Code:    CodeFunctionNotFound,
			Message: fmt.Sprintf("could not find the function %s", fn),
			Detail:  CodeUndefinedFunction,
		}
	}
	named := make([]any, 0, len(args))
	for _, k := range sortedKeys(args) {
		named = append(named, sql.Named(k, encodeSQLite(args[k])))
	}
	return c.query(ctx, query, named...)
}

func (c *sqliteConn) query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := c.r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateSQLite(err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, translateSQLite(err)
	}
	out := []Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, translateSQLite(err)
		}
		r := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				r[col] = string(b)
			} else {
				r[col] = vals[i]
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, translateSQLite(err)
	}
	return out, nil
}

// translateSQLite maps SQLite failures onto store error codes by inspecting
// the driver message.
func translateSQLite(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	switch {
	case lowerContains(err, "no such column"), lowerContains(err, "has no column named"):
		return &Error{Code: CodeUndefinedColumn, Message: err.Error(), Err: err}
	case lowerContains(err, "no such table"):
		return &Error{Code: CodeResourceNotFound, Message: err.Error(), Detail: CodeUndefinedTable, Err: err}
	case lowerContains(err, "unique constraint failed"):
		return &Error{Code: CodeUniqueViolation, Message: err.Error(), Err: err}
	}
	return &Error{Message: err.Error(), Err: err}
}

func encodeSQLite(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(TimeLayout)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC().Format(TimeLayout)
	case []string:
		if x == nil {
			return "[]"
		}
		return mustJSON(x)
	case []any:
		if x == nil {
			return "[]"
		}
		return mustJSON(x)
	case map[string]any:
		return mustJSON(x)
	}
	return v
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// EnsureSchema creates the base tables and applies the given optional
// features. It is safe to call repeatedly.
func (s *SQLite) EnsureSchema(ctx context.Context, features ...Feature) error {
	if _, err := s.db.ExecContext(ctx, sqliteBaseSchema); err != nil {
		return fmt.Errorf("base schema: %w", err)
	}
	for _, f := range features {
		if err := s.applyFeature(ctx, f); err != nil {
			return fmt.Errorf("feature %s: %w", f, err)
		}
	}
	return nil
}

func (s *SQLite) applyFeature(ctx context.Context, f Feature) error {
	switch f {
	case FeatureArchive:
		if _, err := s.db.ExecContext(ctx, `ALTER TABLE blog_posts ADD COLUMN is_archived INTEGER NOT NULL DEFAULT 0;`); err != nil {
			if !lowerContains(err, "duplicate column") {
				return err
			}
		}
		_, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_blog_posts_archived ON blog_posts(is_archived);`)
		return err
	case FeatureTimelineSources:
		_, err := s.db.ExecContext(ctx, sqliteTimelineSources)
		return err
	case FeaturePostSources:
		_, err := s.db.ExecContext(ctx, sqliteBlogSources)
		return err
	case FeatureScrapingLog:
		_, err := s.db.ExecContext(ctx, sqliteScrapingLog)
		return err
	case FeatureStats:
		return s.RegisterProcedure("dashboard_stats", sqliteDashboardStats)
	}
	return fmt.Errorf("store: unknown feature %q", f)
}

const sqliteBaseSchema = `
CREATE TABLE IF NOT EXISTS blog_posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    post_id TEXT NOT NULL UNIQUE,
    slug TEXT NOT NULL,
    title TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT 'General Legal',
    tags TEXT NOT NULL DEFAULT '[]',
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
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blog_posts_date ON blog_posts(publication_date DESC);

CREATE TABLE IF NOT EXISTS timeline_entries (
    id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
    entry_date TEXT NOT NULL,
    event_type TEXT NOT NULL DEFAULT 'Legal Event',
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    significance TEXT NOT NULL DEFAULT '',
    legal_context TEXT NOT NULL DEFAULT '',
    related_cases TEXT NOT NULL DEFAULT '[]',
    confidence_level TEXT NOT NULL DEFAULT 'Medium',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
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
    institutions TEXT NOT NULL DEFAULT '[]',
    featured_image_url TEXT NOT NULL DEFAULT '',
    featured_image_alt TEXT NOT NULL DEFAULT '',
    featured_image_caption TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL DEFAULT ''
);
INSERT OR IGNORE INTO profile (id) VALUES (1);

CREATE TABLE IF NOT EXISTS company_profile (
    id INTEGER PRIMARY KEY,
    firm_name TEXT NOT NULL DEFAULT '',
    firm_description TEXT NOT NULL DEFAULT '',
    established TEXT NOT NULL DEFAULT '',
    vision TEXT NOT NULL DEFAULT '',
    mission TEXT NOT NULL DEFAULT '',
    founding_partners TEXT NOT NULL DEFAULT '[]',
    firm_values TEXT NOT NULL DEFAULT '[]',
    areas_of_practice TEXT NOT NULL DEFAULT '[]',
    updated_at TEXT NOT NULL DEFAULT ''
);
INSERT OR IGNORE INTO company_profile (id) VALUES (1);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'admin',
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    token_hash TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    expires_at TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`

const sqliteTimelineSources = `
CREATE TABLE IF NOT EXISTS timeline_sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timeline_entry_id TEXT NOT NULL REFERENCES timeline_entries(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL DEFAULT 0,
    url TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    publication TEXT NOT NULL DEFAULT '',
    source_date TEXT,
    source_type TEXT NOT NULL DEFAULT '',
    case_number TEXT,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_timeline_sources_entry ON timeline_sources(timeline_entry_id);
`

const sqliteBlogSources = `
CREATE TABLE IF NOT EXISTS blog_sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    blog_post_id INTEGER NOT NULL REFERENCES blog_posts(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL DEFAULT 0,
    url TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    publication TEXT NOT NULL DEFAULT '',
    source_date TEXT,
    source_type TEXT NOT NULL DEFAULT '',
    case_number TEXT,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_blog_sources_post ON blog_sources(blog_post_id);
`

const sqliteScrapingLog = `
CREATE TABLE IF NOT EXISTS scraping_log (
    id TEXT PRIMARY KEY,
    scraping_date TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT '',
    items_found INTEGER NOT NULL DEFAULT 0,
    items_added INTEGER NOT NULL DEFAULT 0,
    message TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_scraping_log_date ON scraping_log(scraping_date DESC);
`

const sqliteDashboardStats = `
SELECT
    (SELECT COUNT(*) FROM blog_posts) AS total_posts,
    (SELECT COUNT(*) FROM blog_posts WHERE significance = 'High') AS high_significance_posts,
    (SELECT COUNT(*) FROM timeline_entries) AS total_timeline_entries,
    (SELECT COUNT(*) FROM timeline_entries WHERE event_type = 'Government Appointment') AS appointments,
    (SELECT COUNT(*) FROM timeline_entries WHERE event_type = 'Legal Case') AS legal_cases
`
