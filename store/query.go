// Package store is the backing-store query API used by the content and auth
// layers. It exposes per-table select/insert/update/delete with filters,
// ordering, range pagination and embedded child relations, plus named
// procedures. Failures are reported as *Error values carrying a string code.
package store

import "context"

// Row is a single record keyed by column name.
type Row map[string]any

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpGte Op = "gte"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

// Filter restricts a query or write to rows where Column Op Value holds.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq is shorthand for an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// Order sorts a result by Column.
type Order struct {
	Column string
	Desc   bool
}

// Embed describes a child relation fetched together with the parent rows.
// Child rows are attached to each parent under As, in OrderBy order.
type Embed struct {
	Table      string
	ForeignKey string // child column referencing the parent's "id"
	As         string
	Columns    []string
	OrderBy    []Order
}

// Query is a select against one table. The zero Limit returns every matching
// row; Offset only applies together with a Limit.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	OrderBy []Order
	Offset  int
	Limit   int
	Embed   *Embed
}

// From starts a query on table selecting every column.
func From(table string) Query {
	return Query{Table: table}
}

// Select restricts the projected columns.
func (q Query) Select(columns ...string) Query {
	q.Columns = columns
	return q
}

// Where adds a filter.
func (q Query) Where(f Filter) Query {
	q.Filters = append(q.Filters[:len(q.Filters):len(q.Filters)], f)
	return q
}

// Eq adds an equality filter.
func (q Query) Eq(column string, value any) Query {
	return q.Where(Eq(column, value))
}

// Order appends a sort key.
func (q Query) Order(column string, desc bool) Query {
	q.OrderBy = append(q.OrderBy[:len(q.OrderBy):len(q.OrderBy)], Order{Column: column, Desc: desc})
	return q
}

// Range limits the result to limit rows starting at offset. A non-positive
// limit leaves the query unbounded.
func (q Query) Range(offset, limit int) Query {
	if limit <= 0 {
		q.Offset, q.Limit = 0, 0
		return q
	}
	if offset < 0 {
		offset = 0
	}
	q.Offset, q.Limit = offset, limit
	return q
}

// With attaches an embedded child relation.
func (q Query) With(e Embed) Query {
	q.Embed = &e
	return q
}

// Without returns a copy of q with every filter on column removed.
func (q Query) Without(column string) Query {
	kept := make([]Filter, 0, len(q.Filters))
	for _, f := range q.Filters {
		if f.Column != column {
			kept = append(kept, f)
		}
	}
	q.Filters = kept
	return q
}

// Flat returns a copy of q without its embedded relation.
func (q Query) Flat() Query {
	q.Embed = nil
	return q
}

// Backend is a relational store reachable through a row-level query API.
type Backend interface {
	Select(ctx context.Context, q Query) ([]Row, error)
	// Insert writes rows and returns them as stored.
	Insert(ctx context.Context, table string, rows ...Row) ([]Row, error)
	// Update applies values to rows matching filters and returns them as stored.
	Update(ctx context.Context, table string, values Row, filters ...Filter) ([]Row, error)
	// Delete removes rows matching filters and returns their prior state.
	Delete(ctx context.Context, table string, filters ...Filter) ([]Row, error)
	// Call invokes a named procedure returning a result set.
	Call(ctx context.Context, fn string, args Row) ([]Row, error)
}

// Transactor is implemented by backends that can run several calls in one
// transaction. fn receives a Backend bound to the transaction; returning an
// error rolls it back.
type Transactor interface {
	InTx(ctx context.Context, fn func(Backend) error) error
}
