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
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/magpierre/rowframe/datatable"
)

// DataTypeOf returns the column type of an arrow field, or TypeInvalid
// for arrow types that no flattened column produces.
func DataTypeOf(field arrow.Field) datatable.DataType {
	switch field.Type.ID() {
	case arrow.BOOL:
		return datatable.TypeBool
	case arrow.INT8:
		return datatable.TypeInt8
	case arrow.INT16:
		return datatable.TypeInt16
	case arrow.INT32:
		return datatable.TypeInt32
	case arrow.INT64:
		return datatable.TypeInt64
	case arrow.UINT8:
		return datatable.TypeUint8
	case arrow.UINT16:
		return datatable.TypeUint16
	case arrow.UINT32:
		return datatable.TypeUint32
	case arrow.UINT64:
		return datatable.TypeUint64
	case arrow.FLOAT32:
		return datatable.TypeFloat32
	case arrow.FLOAT64:
		return datatable.TypeFloat64
	case arrow.DECIMAL128:
		return datatable.TypeDecimal
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return datatable.TypeTimestamp
	case arrow.STRING, arrow.LARGE_STRING:
		if idx := field.Metadata.FindKey(MetaKind); idx >= 0 && field.Metadata.Values()[idx] == KindChar {
			return datatable.TypeChar
		}
		return datatable.TypeString
	default:
		return datatable.TypeInvalid
	}
}

// RawValue returns the Go value at pos: decimals as decimal.Decimal,
// timestamps and dates as time.Time, nested types as decoded JSON.
// It returns nil for null values.
func RawValue(col arrow.Array, pos int) any {
	if col.IsNull(pos) {
		return nil
	}

	switch c := col.(type) {
	case *array.Boolean:
		return c.Value(pos)
	case *array.Int8:
		return c.Value(pos)
	case *array.Int16:
		return c.Value(pos)
	case *array.Int32:
		return c.Value(pos)
	case *array.Int64:
		return c.Value(pos)
	case *array.Uint8:
		return c.Value(pos)
	case *array.Uint16:
		return c.Value(pos)
	case *array.Uint32:
		return c.Value(pos)
	case *array.Uint64:
		return c.Value(pos)
	case *array.Float16:
		return c.Value(pos).Float32()
	case *array.Float32:
		return c.Value(pos)
	case *array.Float64:
		return c.Value(pos)
	case *array.String:
		return c.Value(pos)
	case *array.LargeString:
		return c.Value(pos)
	case *array.Binary:
		return string(c.Value(pos))
	case *array.Decimal128:
		scale := c.DataType().(*arrow.Decimal128Type).Scale
		return decimal.NewFromBigInt(c.Value(pos).BigInt(), -scale)
	case *array.Timestamp:
		unit := c.DataType().(*arrow.TimestampType).Unit
		return c.Value(pos).ToTime(unit)
	case *array.Date32:
		return c.Value(pos).ToTime()
	case *array.Date64:
		return c.Value(pos).ToTime()
	case *array.Struct, *array.List, *array.Map:
		var out any
		slice := array.NewSlice(col, int64(pos), int64(pos+1))
		defer slice.Release()
		b, err := json.Marshal(slice)
		if err != nil || json.Unmarshal(b, &out) != nil {
			return col.ValueStr(pos)
		}
		if elems, ok := out.([]any); ok && len(elems) == 1 {
			return elems[0]
		}
		return out
	default:
		return col.ValueStr(pos)
	}
}

// FormatValue converts the value at pos to a display string.
// Null values format as the empty string.
func FormatValue(col arrow.Array, pos int) string {
	if col.IsNull(pos) {
		return ""
	}

	switch c := col.(type) {
	case *array.Float32:
		return fmt.Sprintf("%.6f", c.Value(pos))
	case *array.Float64:
		return fmt.Sprintf("%.6f", c.Value(pos))
	case *array.Timestamp:
		unit := c.DataType().(*arrow.TimestampType).Unit
		return c.Value(pos).ToTime(unit).Format("2006-01-02 15:04:05.999999999")
	case *array.Date32:
		return c.Value(pos).ToTime().Format("2006-01-02")
	case *array.Date64:
		return c.Value(pos).ToTime().Format("2006-01-02")
	case *array.Struct, *array.List, *array.Map:
		b, err := json.Marshal(RawValue(col, pos))
		if err != nil {
			return col.ValueStr(pos)
		}
		return string(b)
	}
	return fmt.Sprintf("%v", RawValue(col, pos))
}
