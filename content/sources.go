package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/eringen/dossier/store"
)

// relation describes a child source table owned by a parent row.
type relation struct {
	table string
	fk    string
}

var (
	postSources     = relation{table: "blog_sources", fk: "blog_post_id"}
	timelineSources = relation{table: "timeline_sources", fk: "timeline_entry_id"}
)

func (r relation) order() []store.Order {
	return []store.Order{{Column: "seq"}, {Column: "id"}}
}

func (r relation) embed() store.Embed {
	return store.Embed{Table: r.table, ForeignKey: r.fk, As: "sources", OrderBy: r.order()}
}

// cleanSources drops sources without a URL.
func cleanSources(in []Source) []Source {
	out := make([]Source, 0, len(in))
	for _, src := range in {
		src.URL = strings.TrimSpace(src.URL)
		if src.URL == "" {
			continue
		}
		out = append(out, src)
	}
	return out
}

func (r relation) rows(owner any, sources []Source) []store.Row {
	rows := make([]store.Row, len(sources))
	for i, src := range sources {
		row := store.Row{
			r.fk:          owner,
			"seq":         i,
			"url":         src.URL,
			"title":       src.Title,
			"publication": src.Publication,
			"source_type": src.SourceType,
		}
		if src.SourceDate != "" {
			row["source_date"] = src.SourceDate
		}
		if src.CaseNumber != "" {
			row["case_number"] = src.CaseNumber
		}
		rows[i] = row
	}
	return rows
}

func decodeSources(rows []store.Row) ([]Source, error) {
	out := make([]Source, 0, len(rows))
	for _, row := range rows {
		var src Source
		if err := decodeRow(row, &src); err != nil {
			return nil, fmt.Errorf("decoding source: %w", err)
		}
		out = append(out, src)
	}
	return out, nil
}

// loadSources reads the sources of one owner. A missing child table yields
// no sources.
func (s *Service) loadSources(ctx context.Context, r relation, owner any) ([]Source, error) {
	q := store.From(r.table).Eq(r.fk, owner)
	q.OrderBy = r.order()
	rows, err := s.db.Select(ctx, q)
	if err != nil {
		if a := decide(opSources, err); a == skipSources {
			s.fallback(opSources, a, err)
			return []Source{}, nil
		}
		return nil, wrap(opSources, err)
	}
	return decodeSources(rows)
}

// replaceSources swaps owner's sources for next. With a transactional
// backend the delete and insert commit together. Otherwise they run as
// separate calls: a failed insert is retried once and, if it still fails,
// the previous sources are put back before the error is returned.
func (s *Service) replaceSources(ctx context.Context, r relation, owner any, next []Source) ([]Source, error) {
	next = cleanSources(next)
	var err error
	if tx, ok := s.db.(store.Transactor); ok {
		err = tx.InTx(ctx, func(b store.Backend) error {
			if _, err := b.Delete(ctx, r.table, store.Eq(r.fk, owner)); err != nil {
				return err
			}
			if len(next) == 0 {
				return nil
			}
			_, err := b.Insert(ctx, r.table, r.rows(owner, next)...)
			return err
		})
	} else {
		err = s.replaceSourcesSaga(ctx, r, owner, next)
	}
	if err != nil {
		if a := decide(opSources, err); a == skipSources {
			s.fallback(opSources, a, err)
			return []Source{}, nil
		}
		return nil, wrap(opSources, err)
	}
	return next, nil
}

func (s *Service) replaceSourcesSaga(ctx context.Context, r relation, owner any, next []Source) error {
	q := store.From(r.table).Eq(r.fk, owner)
	q.OrderBy = r.order()
	prev, err := s.db.Select(ctx, q)
	if err != nil {
		return err
	}
	if _, err := s.db.Delete(ctx, r.table, store.Eq(r.fk, owner)); err != nil {
		return err
	}
	if len(next) == 0 {
		return nil
	}
	rows := r.rows(owner, next)
	_, err = s.db.Insert(ctx, r.table, rows...)
	if err == nil {
		return nil
	}
	s.log.Warnf("%s: inserting %d sources for %v failed, retrying: %v", r.table, len(rows), owner, err)
	if _, err = s.db.Insert(ctx, r.table, rows...); err == nil {
		return nil
	}
	if len(prev) == 0 {
		return err
	}
	restore := make([]store.Row, len(prev))
	for i, row := range prev {
		kept := make(store.Row, len(row))
		for k, v := range row {
			if k != "id" {
				kept[k] = v
			}
		}
		restore[i] = kept
	}
	if _, rerr := s.db.Insert(ctx, r.table, restore...); rerr != nil {
		return fmt.Errorf("%w (restoring %d previous sources: %v)", err, len(prev), rerr)
	}
	return err
}

// deleteSources removes owner's sources after the owner itself is gone.
func (s *Service) deleteSources(ctx context.Context, r relation, owner any) error {
	_, err := s.db.Delete(ctx, r.table, store.Eq(r.fk, owner))
	if err != nil {
		if a := decide(opSources, err); a == skipSources {
			return nil
		}
		return wrap(opSources, err)
	}
	return nil
}
