package datatable

import "errors"

// Common errors returned by the rowframe packages.
var (
	// ErrInvalidColumn is returned when a column index is out of range.
	ErrInvalidColumn = errors.New("invalid column index")

	// ErrInvalidRow is returned when a row index is out of range.
	ErrInvalidRow = errors.New("invalid row index")

	// ErrTypeMismatch is returned when a field value cannot be converted
	// to the type of the column it is extracted into.
	ErrTypeMismatch = errors.New("type mismatch in extraction")

	// ErrUnclassifiableType is returned when a field type is neither a
	// nested struct, an enumeration nor a supported scalar.
	ErrUnclassifiableType = errors.New("unclassifiable field type")

	// ErrNotStruct is returned when a row type is not a struct.
	ErrNotStruct = errors.New("row type is not a struct")

	// ErrDuplicateField is returned when two fields of a row type share a name.
	ErrDuplicateField = errors.New("duplicate field name")

	// ErrColumnNotFound is returned when a column name is not found.
	ErrColumnNotFound = errors.New("column not found")

	// ErrDuplicateColumn is returned when a table already holds a column
	// with the appended column's name.
	ErrDuplicateColumn = errors.New("duplicate column name")

	// ErrRowCountMismatch is returned when an appended column does not have
	// the same number of rows as the columns already in the table.
	ErrRowCountMismatch = errors.New("column row count mismatch")

	// ErrUnsupportedFormat is returned when a file format is unknown or
	// cannot be used for the requested operation.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExportFailed is returned when export operation fails.
	ErrExportFailed = errors.New("export failed")
)
