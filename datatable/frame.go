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

package datatable

import (
	"database/sql"
	"fmt"
	"iter"
	"time"

	"github.com/shopspring/decimal"
)

// Column is a named, uniformly typed column of a Frame.
type Column struct {
	Name   string
	Type   DataType
	Values []Value
}

// Len returns the number of rows in the column.
func (c *Column) Len() int { return len(c.Values) }

// Frame is an in-memory, append-only table of Columns.
// Frame is also a column factory: its Bool, Int8, ... methods
// materialize a lazily produced value sequence into a Column.
type Frame struct {
	columns []*Column
	meta    Metadata
}

// NewFrame returns an empty Frame. Can pass an optional name which sets metadata.
func NewFrame(name ...string) *Frame {
	f := &Frame{meta: Metadata{}}
	if len(name) > 0 {
		f.meta["name"] = name[0]
	}
	return f
}

// Append adds col after the existing columns.
func (f *Frame) Append(col *Column) error {
	for _, c := range f.columns {
		if c.Name == col.Name {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name)
		}
	}
	if len(f.columns) > 0 && col.Len() != f.RowCount() {
		return fmt.Errorf("%w: column %q has %d rows, table has %d",
			ErrRowCountMismatch, col.Name, col.Len(), f.RowCount())
	}
	f.columns = append(f.columns, col)
	return nil
}

// Columns returns the columns in append order.
func (f *Frame) Columns() []*Column { return f.columns }

// Column returns the column with the given name, or nil if not found.
func (f *Frame) Column(name string) *Column {
	for _, c := range f.columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// RowCount implements DataSource.
func (f *Frame) RowCount() int {
	if len(f.columns) == 0 {
		return 0
	}
	return f.columns[0].Len()
}

// ColumnCount implements DataSource.
func (f *Frame) ColumnCount() int { return len(f.columns) }

// ColumnName implements DataSource.
func (f *Frame) ColumnName(col int) (string, error) {
	if col < 0 || col >= len(f.columns) {
		return "", ErrInvalidColumn
	}
	return f.columns[col].Name, nil
}

// ColumnType implements DataSource.
func (f *Frame) ColumnType(col int) (DataType, error) {
	if col < 0 || col >= len(f.columns) {
		return TypeInvalid, ErrInvalidColumn
	}
	return f.columns[col].Type, nil
}

// Cell implements DataSource.
func (f *Frame) Cell(row, col int) (Value, error) {
	if col < 0 || col >= len(f.columns) {
		return Value{}, ErrInvalidColumn
	}
	if row < 0 || row >= f.RowCount() {
		return Value{}, ErrInvalidRow
	}
	return f.columns[col].Values[row], nil
}

// Row implements DataSource.
func (f *Frame) Row(row int) ([]Value, error) {
	if row < 0 || row >= f.RowCount() {
		return nil, ErrInvalidRow
	}
	vals := make([]Value, len(f.columns))
	for i, c := range f.columns {
		vals[i] = c.Values[row]
	}
	return vals, nil
}

// Metadata implements DataSource.
func (f *Frame) Metadata() Metadata { return f.meta }

// Bool collects a boolean column.
func (f *Frame) Bool(name string, values iter.Seq2[sql.Null[bool], error]) (*Column, error) {
	return collect(name, TypeBool, values)
}

// Int8 collects an 8-bit integer column.
func (f *Frame) Int8(name string, values iter.Seq2[sql.Null[int8], error]) (*Column, error) {
	return collect(name, TypeInt8, values)
}

// Int16 collects a 16-bit integer column.
func (f *Frame) Int16(name string, values iter.Seq2[sql.Null[int16], error]) (*Column, error) {
	return collect(name, TypeInt16, values)
}

// Int32 collects a 32-bit integer column.
func (f *Frame) Int32(name string, values iter.Seq2[sql.Null[int32], error]) (*Column, error) {
	return collect(name, TypeInt32, values)
}

// Int64 collects a 64-bit integer column. Enumerations read as codes
// use it too.
func (f *Frame) Int64(name string, values iter.Seq2[sql.Null[int64], error]) (*Column, error) {
	return collect(name, TypeInt64, values)
}

// Uint8 collects an unsigned 8-bit integer column.
func (f *Frame) Uint8(name string, values iter.Seq2[sql.Null[uint8], error]) (*Column, error) {
	return collect(name, TypeUint8, values)
}

// Uint16 collects an unsigned 16-bit integer column.
func (f *Frame) Uint16(name string, values iter.Seq2[sql.Null[uint16], error]) (*Column, error) {
	return collect(name, TypeUint16, values)
}

// Uint32 collects an unsigned 32-bit integer column.
func (f *Frame) Uint32(name string, values iter.Seq2[sql.Null[uint32], error]) (*Column, error) {
	return collect(name, TypeUint32, values)
}

// Uint64 collects an unsigned 64-bit integer column.
func (f *Frame) Uint64(name string, values iter.Seq2[sql.Null[uint64], error]) (*Column, error) {
	return collect(name, TypeUint64, values)
}

// Float32 collects a single precision column.
func (f *Frame) Float32(name string, values iter.Seq2[sql.Null[float32], error]) (*Column, error) {
	return collect(name, TypeFloat32, values)
}

// Float64 collects a double precision column.
func (f *Frame) Float64(name string, values iter.Seq2[sql.Null[float64], error]) (*Column, error) {
	return collect(name, TypeFloat64, values)
}

// Decimal collects a decimal column. Values keep their exact scale.
func (f *Frame) Decimal(name string, values iter.Seq2[sql.Null[decimal.Decimal], error]) (*Column, error) {
	return collect(name, TypeDecimal, values)
}

// Timestamp collects a timestamp column.
func (f *Frame) Timestamp(name string, values iter.Seq2[sql.Null[time.Time], error]) (*Column, error) {
	return collect(name, TypeTimestamp, values)
}

// Text collects a string column.
func (f *Frame) Text(name string, values iter.Seq2[sql.Null[string], error]) (*Column, error) {
	return collect(name, TypeString, values)
}

// Char collects a single character column.
func (f *Frame) Char(name string, values iter.Seq2[sql.Null[rune], error]) (*Column, error) {
	return collect(name, TypeChar, values)
}

// collect drains values into a new Column. The first error aborts.
func collect[T any](name string, typ DataType, values iter.Seq2[sql.Null[T], error]) (*Column, error) {
	col := &Column{Name: name, Type: typ}
	for v, err := range values {
		if err != nil {
			return nil, fmt.Errorf("failed to build column %q: %w", name, err)
		}
		if !v.Valid {
			col.Values = append(col.Values, NewNullValue(typ))
			continue
		}
		col.Values = append(col.Values, NewValue(v.V, typ))
	}
	return col, nil
}
