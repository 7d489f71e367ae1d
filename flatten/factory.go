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

package flatten

import (
	"database/sql"
	"fmt"
	"iter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magpierre/rowframe/datatable"
	"github.com/magpierre/rowframe/extract"
	"github.com/magpierre/rowframe/schema"
)

// Values is the lazy sequence a factory consumes: one nullable value per
// row. A non-nil error ends the sequence and must abort the column.
type Values[T any] = iter.Seq2[sql.Null[T], error]

// Factory materializes columns of type C, one method per column type.
type Factory[C any] interface {
	Bool(name string, values Values[bool]) (C, error)
	Int8(name string, values Values[int8]) (C, error)
	Int16(name string, values Values[int16]) (C, error)
	Int32(name string, values Values[int32]) (C, error)
	Int64(name string, values Values[int64]) (C, error)
	Uint8(name string, values Values[uint8]) (C, error)
	Uint16(name string, values Values[uint16]) (C, error)
	Uint32(name string, values Values[uint32]) (C, error)
	Uint64(name string, values Values[uint64]) (C, error)
	Float32(name string, values Values[float32]) (C, error)
	Float64(name string, values Values[float64]) (C, error)
	Decimal(name string, values Values[decimal.Decimal]) (C, error)
	Timestamp(name string, values Values[time.Time]) (C, error)
	Text(name string, values Values[string]) (C, error)
	Char(name string, values Values[rune]) (C, error)
}

// Table receives built columns in flattened order.
type Table[C any] interface {
	Append(col C) error
}

// Build materializes s with f.
func Build[C any](s ColumnSpec, f Factory[C]) (C, error) {
	fd, rows := s.Field, s.rows
	if fd.Class == schema.ClassEnum {
		return f.Text(s.Name, extract.EnumLabel(fd, rows))
	}

	switch s.Kind {
	case datatable.TypeBool:
		return f.Bool(s.Name, extract.Scalar[bool](fd, rows))
	case datatable.TypeInt8:
		return f.Int8(s.Name, extract.Scalar[int8](fd, rows))
	case datatable.TypeInt16:
		return f.Int16(s.Name, extract.Scalar[int16](fd, rows))
	case datatable.TypeInt32:
		return f.Int32(s.Name, extract.Scalar[int32](fd, rows))
	case datatable.TypeInt64:
		return f.Int64(s.Name, extract.Scalar[int64](fd, rows))
	case datatable.TypeUint8:
		return f.Uint8(s.Name, extract.Scalar[uint8](fd, rows))
	case datatable.TypeUint16:
		return f.Uint16(s.Name, extract.Scalar[uint16](fd, rows))
	case datatable.TypeUint32:
		return f.Uint32(s.Name, extract.Scalar[uint32](fd, rows))
	case datatable.TypeUint64:
		return f.Uint64(s.Name, extract.Scalar[uint64](fd, rows))
	case datatable.TypeFloat32:
		return f.Float32(s.Name, extract.Scalar[float32](fd, rows))
	case datatable.TypeFloat64:
		return f.Float64(s.Name, extract.Scalar[float64](fd, rows))
	case datatable.TypeDecimal:
		return f.Decimal(s.Name, extract.Reference[decimal.Decimal](fd, rows))
	case datatable.TypeTimestamp:
		return f.Timestamp(s.Name, extract.Reference[time.Time](fd, rows))
	case datatable.TypeString:
		return f.Text(s.Name, extract.Reference[string](fd, rows))
	case datatable.TypeChar:
		return f.Char(s.Name, extract.Scalar[rune](fd, rows))
	}
	var zero C
	return zero, fmt.Errorf("%w: column %s has type %v", datatable.ErrUnclassifiableType, s.Name, s.Kind)
}

// Append builds every spec with f and appends the columns to t in order.
// The first error stops the conversion; columns already appended stay in t.
func Append[C any](specs []ColumnSpec, f Factory[C], t Table[C]) error {
	for _, s := range specs {
		col, err := Build(s, f)
		if err != nil {
			return err
		}
		if err := t.Append(col); err != nil {
			return fmt.Errorf("failed to append column %s: %w", s.Name, err)
		}
	}
	return nil
}
