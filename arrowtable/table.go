// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package arrowtable

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/magpierre/rowframe/datatable"
)

// Table is an append-only list of arrow columns with a common row count.
// It implements datatable.DataSource. Call Release when done.
type Table struct {
	fields []arrow.Field
	arrays []arrow.Array
	meta   datatable.Metadata
}

// NewTable returns an empty Table. Can pass an optional name which sets metadata.
func NewTable(name ...string) *Table {
	t := &Table{meta: datatable.Metadata{}}
	if len(name) > 0 {
		t.meta["name"] = name[0]
	}
	return t
}

// FromArrow copies the columns of an arrow table into a new Table,
// concatenating chunked columns.
func FromArrow(tbl arrow.Table, mem memory.Allocator) (*Table, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	t := NewTable()
	for i := range int(tbl.NumCols()) {
		col := tbl.Column(i)
		var arr arrow.Array
		chunks := col.Data().Chunks()
		switch len(chunks) {
		case 0:
			arr = array.MakeArrayOfNull(mem, col.DataType(), 0)
		case 1:
			arr = chunks[0]
			arr.Retain()
		default:
			var err error
			arr, err = array.Concatenate(chunks, mem)
			if err != nil {
				t.Release()
				return nil, fmt.Errorf("failed to concatenate column %s: %w", col.Name(), err)
			}
		}
		if err := t.Append(Column{Field: col.Field(), Array: arr}); err != nil {
			arr.Release()
			t.Release()
			return nil, err
		}
	}
	return t, nil
}

// Append adds col after the existing columns. The table takes ownership of
// the column's array; on error the caller keeps it.
func (t *Table) Append(col Column) error {
	for _, f := range t.fields {
		if f.Name == col.Field.Name {
			return fmt.Errorf("%w: %q", datatable.ErrDuplicateColumn, col.Field.Name)
		}
	}
	if len(t.arrays) > 0 && col.Array.Len() != t.RowCount() {
		return fmt.Errorf("%w: column %q has %d rows, table has %d",
			datatable.ErrRowCountMismatch, col.Field.Name, col.Array.Len(), t.RowCount())
	}
	t.fields = append(t.fields, col.Field)
	t.arrays = append(t.arrays, col.Array)
	return nil
}

// Schema returns the arrow schema of the columns appended so far.
func (t *Table) Schema() *arrow.Schema {
	return arrow.NewSchema(t.fields, nil)
}

// NewRecord returns a record holding all columns. The caller must release it.
func (t *Table) NewRecord() arrow.Record {
	return array.NewRecord(t.Schema(), t.arrays, int64(t.RowCount()))
}

// NewArrowTable returns an arrow table holding all columns. The caller must release it.
func (t *Table) NewArrowTable() arrow.Table {
	rec := t.NewRecord()
	defer rec.Release()
	return array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
}

// Release releases all column arrays.
func (t *Table) Release() {
	for _, a := range t.arrays {
		a.Release()
	}
	t.arrays = nil
	t.fields = nil
}

// RowCount implements datatable.DataSource.
func (t *Table) RowCount() int {
	if len(t.arrays) == 0 {
		return 0
	}
	return t.arrays[0].Len()
}

// ColumnCount implements datatable.DataSource.
func (t *Table) ColumnCount() int { return len(t.arrays) }

// ColumnName implements datatable.DataSource.
func (t *Table) ColumnName(col int) (string, error) {
	if col < 0 || col >= len(t.fields) {
		return "", datatable.ErrInvalidColumn
	}
	return t.fields[col].Name, nil
}

// ColumnType implements datatable.DataSource.
func (t *Table) ColumnType(col int) (datatable.DataType, error) {
	if col < 0 || col >= len(t.fields) {
		return datatable.TypeInvalid, datatable.ErrInvalidColumn
	}
	return DataTypeOf(t.fields[col]), nil
}

// Cell implements datatable.DataSource.
func (t *Table) Cell(row, col int) (datatable.Value, error) {
	if col < 0 || col >= len(t.arrays) {
		return datatable.Value{}, datatable.ErrInvalidColumn
	}
	if row < 0 || row >= t.RowCount() {
		return datatable.Value{}, datatable.ErrInvalidRow
	}
	typ := DataTypeOf(t.fields[col])
	raw := RawValue(t.arrays[col], row)
	if typ == datatable.TypeChar {
		if s, ok := raw.(string); ok && s != "" {
			raw = []rune(s)[0]
		}
	}
	return datatable.NewValue(raw, typ), nil
}

// Row implements datatable.DataSource.
func (t *Table) Row(row int) ([]datatable.Value, error) {
	if row < 0 || row >= t.RowCount() {
		return nil, datatable.ErrInvalidRow
	}
	vals := make([]datatable.Value, len(t.arrays))
	for i := range t.arrays {
		v, err := t.Cell(row, i)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// Metadata implements datatable.DataSource.
func (t *Table) Metadata() datatable.Metadata { return t.meta }
