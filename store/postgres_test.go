package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
)

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPostgres(mock), mock
}

func TestPostgresUndefinedColumnKeepsCode(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectQuery(`SELECT \* FROM blog_posts WHERE is_archived = \$1 ORDER BY publication_date DESC`).
		WithArgs(false).
		WillReturnError(&pgconn.PgError{Code: "42703", Message: `column "is_archived" does not exist`})

	_, err := p.Select(context.Background(), From("blog_posts").Eq("is_archived", false).Order("publication_date", true))
	if !HasCode(err, CodeUndefinedColumn) {
		t.Fatalf("got %v, want %s", err, CodeUndefinedColumn)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresUndefinedTableTranslated(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectQuery(`SELECT \* FROM scraping_log ORDER BY scraping_date DESC LIMIT 50`).
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: `relation "scraping_log" does not exist`})

	_, err := p.Select(context.Background(), From("scraping_log").Order("scraping_date", true).Range(0, 50))
	if !HasCode(err, CodeResourceNotFound) {
		t.Fatalf("got %v, want %s", err, CodeResourceNotFound)
	}
	var se *Error
	if !errors.As(err, &se) || se.Detail != CodeUndefinedTable {
		t.Errorf("detail = %+v", se)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Error("driver error should stay reachable through Unwrap")
	}
}

func TestPostgresCallTranslatesMissingFunction(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectQuery(`SELECT \* FROM dashboard_stats\(\)`).
		WillReturnError(&pgconn.PgError{Code: "42883", Message: "function dashboard_stats() does not exist"})

	_, err := p.Call(context.Background(), "dashboard_stats", nil)
	if !HasCode(err, CodeFunctionNotFound) {
		t.Fatalf("got %v, want %s", err, CodeFunctionNotFound)
	}
}

func TestPostgresCallNamedArguments(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectQuery(`SELECT \* FROM search_posts\(lim => \$1, term => \$2\)`).
		WithArgs(10, "icc").
		WillReturnError(errors.New("stop"))

	_, err := p.Call(context.Background(), "search_posts", Row{"term": "icc", "lim": 10})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresInTxRollsBackOnError(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM timeline_sources WHERE timeline_entry_id = \$1 RETURNING \*`).
		WithArgs("e1").
		WillReturnError(&pgconn.PgError{Code: "42501", Message: "permission denied"})
	mock.ExpectRollback()

	err := p.InTx(context.Background(), func(tx Backend) error {
		_, err := tx.Delete(context.Background(), "timeline_sources", Eq("timeline_entry_id", "e1"))
		return err
	})
	if CodeOf(err) != "42501" {
		t.Fatalf("got %v, want code 42501", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresEnsureSchema(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS blog_posts`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`ALTER TABLE blog_posts ADD COLUMN IF NOT EXISTS is_archived`).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))

	if err := p.EnsureSchema(context.Background(), FeatureArchive); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
	if err := p.EnsureSchema(context.Background(), Feature("bogus")); err == nil {
		t.Error("expected error for unknown feature")
	}
}
