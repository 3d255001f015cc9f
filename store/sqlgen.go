package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func checkIdent(names ...string) error {
	for _, n := range names {
		if !identRe.MatchString(n) {
			return &Error{Code: CodeInvalidIdentifier, Message: fmt.Sprintf("invalid identifier %q", n)}
		}
	}
	return nil
}

// builder turns queries into SQL. Both drivers share it and differ only in
// placeholder style and how Go values are encoded for the wire.
type builder struct {
	ph     squirrel.PlaceholderFormat
	encode func(any) any
}

func (b builder) predicate(f Filter) (squirrel.Sqlizer, error) {
	if err := checkIdent(f.Column); err != nil {
		return nil, err
	}
	switch f.Op {
	case OpEq, "":
		return squirrel.Eq{f.Column: b.encode(f.Value)}, nil
	case OpNeq:
		return squirrel.NotEq{f.Column: b.encode(f.Value)}, nil
	case OpGte:
		return squirrel.GtOrEq{f.Column: b.encode(f.Value)}, nil
	case OpLte:
		return squirrel.LtOrEq{f.Column: b.encode(f.Value)}, nil
	case OpIn:
		vals, ok := f.Value.([]any)
		if !ok {
			return nil, fmt.Errorf("store: in filter on %s needs []any, got %T", f.Column, f.Value)
		}
		enc := make([]any, len(vals))
		for i, v := range vals {
			enc[i] = b.encode(v)
		}
		return squirrel.Eq{f.Column: enc}, nil
	}
	return nil, fmt.Errorf("store: unknown filter operator %q", f.Op)
}

func (b builder) where(filters []Filter) ([]squirrel.Sqlizer, error) {
	preds := make([]squirrel.Sqlizer, 0, len(filters))
	for _, f := range filters {
		p, err := b.predicate(f)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func (b builder) selectSQL(q Query) (string, []any, error) {
	if err := checkIdent(q.Table); err != nil {
		return "", nil, err
	}
	cols := q.Columns
	if len(cols) == 0 {
		cols = []string{"*"}
	} else if err := checkIdent(cols...); err != nil {
		return "", nil, err
	}
	sb := squirrel.Select(cols...).From(q.Table).PlaceholderFormat(b.ph)
	preds, err := b.where(q.Filters)
	if err != nil {
		return "", nil, err
	}
	for _, p := range preds {
		sb = sb.Where(p)
	}
	for _, o := range q.OrderBy {
		if err := checkIdent(o.Column); err != nil {
			return "", nil, err
		}
		if o.Desc {
			sb = sb.OrderBy(o.Column + " DESC")
		} else {
			sb = sb.OrderBy(o.Column + " ASC")
		}
	}
	if q.Limit > 0 {
		sb = sb.Limit(uint64(q.Limit))
		if q.Offset > 0 {
			sb = sb.Offset(uint64(q.Offset))
		}
	}
	return sb.ToSql()
}

func (b builder) insertSQL(table string, row Row) (string, []any, error) {
	if len(row) == 0 {
		return "", nil, fmt.Errorf("store: insert into %s with no columns", table)
	}
	keys := sortedKeys(row)
	if err := checkIdent(append([]string{table}, keys...)...); err != nil {
		return "", nil, err
	}
	vals := make([]any, len(keys))
	for i, k := range keys {
		vals[i] = b.encode(row[k])
	}
	return squirrel.Insert(table).
		Columns(keys...).
		Values(vals...).
		Suffix("RETURNING *").
		PlaceholderFormat(b.ph).
		ToSql()
}

func (b builder) updateSQL(table string, values Row, filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, fmt.Errorf("store: update of %s without a filter", table)
	}
	if len(values) == 0 {
		return "", nil, fmt.Errorf("store: update of %s with no columns", table)
	}
	if err := checkIdent(append([]string{table}, sortedKeys(values)...)...); err != nil {
		return "", nil, err
	}
	set := make(map[string]any, len(values))
	for k, v := range values {
		set[k] = b.encode(v)
	}
	ub := squirrel.Update(table).SetMap(set).PlaceholderFormat(b.ph)
	preds, err := b.where(filters)
	if err != nil {
		return "", nil, err
	}
	for _, p := range preds {
		ub = ub.Where(p)
	}
	return ub.Suffix("RETURNING *").ToSql()
}

func (b builder) deleteSQL(table string, filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, fmt.Errorf("store: delete from %s without a filter", table)
	}
	if err := checkIdent(table); err != nil {
		return "", nil, err
	}
	db := squirrel.Delete(table).PlaceholderFormat(b.ph)
	preds, err := b.where(filters)
	if err != nil {
		return "", nil, err
	}
	for _, p := range preds {
		db = db.Where(p)
	}
	return db.Suffix("RETURNING *").ToSql()
}

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// attachEmbed loads the child rows described by e for parents and stores
// them under e.As. A missing child table is reported as CodeRelationNotFound.
func attachEmbed(ctx context.Context, sel func(context.Context, Query) ([]Row, error), parents []Row, e *Embed) error {
	for _, p := range parents {
		p[e.As] = []Row{}
	}
	ids := make([]any, 0, len(parents))
	for _, p := range parents {
		if id, ok := p["id"]; ok && id != nil {
			ids = append(ids, id)
		}
	}
	q := Query{Table: e.Table, Columns: e.Columns, OrderBy: e.OrderBy}
	if len(ids) == 0 {
		// Still probe the relation so a missing child table is reported
		// consistently.
		q.Limit = 1
	} else {
		q.Filters = []Filter{{Column: e.ForeignKey, Op: OpIn, Value: ids}}
	}
	if len(q.Columns) > 0 && !contains(q.Columns, e.ForeignKey) {
		q.Columns = append(q.Columns[:len(q.Columns):len(q.Columns)], e.ForeignKey)
	}
	children, err := sel(ctx, q)
	if err != nil {
		if HasCode(err, CodeResourceNotFound) {
			return &Error{
				Code:    CodeRelationNotFound,
				Message: fmt.Sprintf("could not find a relationship between %s and the parent table", e.Table),
				Detail:  CodeUndefinedTable,
				Err:     err,
			}
		}
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	byParent := make(map[string][]Row, len(parents))
	for _, c := range children {
		k := keyOf(c[e.ForeignKey])
		byParent[k] = append(byParent[k], c)
	}
	for _, p := range parents {
		if kids, ok := byParent[keyOf(p["id"])]; ok {
			p[e.As] = kids
		}
	}
	return nil
}

func keyOf(v any) string {
	return fmt.Sprint(v)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func lowerContains(err error, substr string) bool {
	return strings.Contains(strings.ToLower(err.Error()), substr)
}
