package datatable

// DataSource provides read-only access to tabular data.
// Both Frame and the arrow backed table implement it, so callers can
// inspect a converted table without knowing its storage.
// All methods should return errors rather than panic.
type DataSource interface {
	// RowCount returns the total number of rows in the data source.
	RowCount() int

	// ColumnCount returns the total number of columns in the data source.
	ColumnCount() int

	// ColumnName returns the name of the column at the given index.
	// Returns ErrInvalidColumn if col is out of range.
	ColumnName(col int) (string, error)

	// ColumnType returns the data type of the column at the given index.
	// Returns ErrInvalidColumn if col is out of range.
	ColumnType(col int) (DataType, error)

	// Cell returns the value at the specified row and column.
	// Returns ErrInvalidRow if row is out of range.
	// Returns ErrInvalidColumn if col is out of range.
	Cell(row, col int) (Value, error)

	// Row returns all values for the specified row.
	// Returns ErrInvalidRow if row is out of range.
	Row(row int) ([]Value, error)

	// Metadata returns optional metadata about the data source.
	// Returns an empty Metadata map if no metadata is available.
	Metadata() Metadata
}

// ColumnIndex returns the index of the column with the given name.
// Returns ErrColumnNotFound if no column has that name.
func ColumnIndex(ds DataSource, name string) (int, error) {
	for i := range ds.ColumnCount() {
		n, err := ds.ColumnName(i)
		if err != nil {
			return -1, err
		}
		if n == name {
			return i, nil
		}
	}
	return -1, ErrColumnNotFound
}

// ColumnNames returns the names of all columns in order.
func ColumnNames(ds DataSource) []string {
	names := make([]string, 0, ds.ColumnCount())
	for i := range ds.ColumnCount() {
		n, _ := ds.ColumnName(i)
		names = append(names, n)
	}
	return names
}
