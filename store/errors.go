package store

import (
	"errors"
	"fmt"
)

// Error codes reported by the drivers. The values follow PostgreSQL SQLSTATE
// and PostgREST conventions so callers can inspect them the same way no
// matter which driver produced the failure.
const (
	CodeUndefinedColumn   = "42703"
	CodeUndefinedTable    = "42P01"
	CodeUndefinedFunction = "42883"
	CodeUniqueViolation   = "23505"
	CodeInvalidIdentifier = "42602"

	// CodeRelationNotFound means an embedded child relation could not be
	// resolved (PostgREST "could not find a relationship in the schema cache").
	CodeRelationNotFound = "PGRST200"
	// CodeFunctionNotFound means a named procedure does not exist.
	CodeFunctionNotFound = "PGRST202"
	// CodeResourceNotFound means the queried table does not exist.
	CodeResourceNotFound = "PGRST205"
	// CodeNoRows means a single-row result was requested but nothing matched.
	CodeNoRows = "PGRST116"
)

// Error is the structured failure returned by every Backend call.
type Error struct {
	Code    string // machine-readable code, see the Code* constants
	Message string // human-readable message from the driver
	Detail  string // raw driver code when it was translated, e.g. "42P01"
	Err     error  // underlying driver error, if any
}

func (e *Error) Error() string {
	if e.Code == "" {
		return "store: " + e.Message
	}
	return fmt.Sprintf("store: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the store error code carried by err, or "" if err is not
// (and does not wrap) a *Error.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// HasCode reports whether err carries the given store error code.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// Single returns the only row of rows. It fails with CodeNoRows when rows is
// empty.
func Single(rows []Row) (Row, error) {
	if len(rows) == 0 {
		return nil, &Error{Code: CodeNoRows, Message: "the result contains 0 rows"}
	}
	return rows[0], nil
}
