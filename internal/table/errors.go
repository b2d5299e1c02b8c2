package table

import "github.com/rotisserie/eris"

var (
	// ErrMissingColumn is returned when an operation names a column the table lacks.
	ErrMissingColumn = eris.New("table: missing column")

	// ErrSchemaMismatch is returned when tables or rows disagree on their columns.
	ErrSchemaMismatch = eris.New("table: schema mismatch")
)
