package content

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/eringen/dossier/store"
)

type testLogger struct {
	mu       sync.Mutex
	warnings []string
}

func (l *testLogger) Infof(string, ...interface{}) {}

func (l *testLogger) Warnf(format string, args ...interface{}) {
	l.mu.Lock()
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *testLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warnings)
}

// tickClock advances one second on every reading.
type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTickClock() *tickClock {
	return &tickClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *tickClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func openTestStore(t *testing.T, features ...store.Feature) *store.SQLite {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "content.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.EnsureSchema(context.Background(), features...); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return db
}

func newTestService(t *testing.T, features ...store.Feature) (*Service, *testLogger) {
	t.Helper()
	return newServiceOn(t, openTestStore(t, features...))
}

func newServiceOn(t *testing.T, db store.Backend) (*Service, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	return NewService(db, WithLogger(logger), WithClock(newTickClock().now)), logger
}

// plainBackend hides any transaction support of the wrapped backend.
type plainBackend struct {
	store.Backend
}

// flakyInserts fails the next n inserts into table.
type flakyInserts struct {
	store.Backend
	table string
	n     int
	calls int
}

func (f *flakyInserts) Insert(ctx context.Context, table string, rows ...store.Row) ([]store.Row, error) {
	if table == f.table {
		f.calls++
		if f.n > 0 {
			f.n--
			return nil, &store.Error{Code: "08006", Message: "connection failure"}
		}
	}
	return f.Backend.Insert(ctx, table, rows...)
}

func mustCreatePost(t *testing.T, s *Service, title, date string) Post {
	t.Helper()
	p, err := s.CreatePost(context.Background(), PostInput{
		Title:           Str(title),
		PublicationDate: Str(date),
		Category:        Str("Election Law"),
		Introduction:    Str("An introduction."),
	})
	if err != nil {
		t.Fatalf("CreatePost(%q): %v", title, err)
	}
	return p
}

func TestNewServiceDefaults(t *testing.T) {
	s := NewService(openTestStore(t))
	if s.log == nil {
		t.Fatal("expected default logger")
	}
	if s.now == nil {
		t.Fatal("expected default clock")
	}
	if s.Backend() == nil {
		t.Fatal("expected backend")
	}
}
