package recdb

import (
	"errors"
	"fmt"

	"github.com/spy16/recdb/pager"
)

var (
	// ErrPageNotFound is returned when an update refers to a page id that
	// was never allocated.
	ErrPageNotFound = pager.ErrPageNotFound

	// ErrSchemaMismatch is returned when a record does not conform to the
	// schema declared for its table. Returned errors are *SchemaError.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrInvalidSchema is returned when a schema declaration itself is not
	// valid (no fields, duplicate or empty field names, unknown types).
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrTableExists is returned when a schema is declared twice for the
	// same table.
	ErrTableExists = errors.New("table already declared")

	// ErrWrongTable is returned by UpdateTableData when the page is not
	// part of the given table.
	ErrWrongTable = errors.New("page belongs to another table")

	// ErrEmptyTable is returned when an empty table name is used.
	ErrEmptyTable = errors.New("empty table name")
)

// SchemaError describes why a record was rejected by a table schema.
type SchemaError struct {
	Table  string // table the record was written to
	Field  string // offending field
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("schema mismatch for table '%s' field '%s': %s", e.Table, e.Field, e.Reason)
	}
	return fmt.Sprintf("schema mismatch for field '%s': %s", e.Field, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchemaMismatch }
