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

// Package datatable provides the column vocabulary shared by the schema,
// flattening and host table packages, and Frame, a small in-memory table.
package datatable

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DataType represents the type of data in a column.
type DataType int

const (
	// TypeInvalid is the zero DataType; no column ever has it.
	TypeInvalid DataType = iota
	// TypeBool represents boolean data.
	TypeBool
	// TypeInt8 represents signed 8-bit integers.
	TypeInt8
	// TypeInt16 represents signed 16-bit integers.
	TypeInt16
	// TypeInt32 represents signed 32-bit integers.
	TypeInt32
	// TypeInt64 represents signed 64-bit integers.
	TypeInt64
	// TypeUint8 represents unsigned 8-bit integers.
	TypeUint8
	// TypeUint16 represents unsigned 16-bit integers.
	TypeUint16
	// TypeUint32 represents unsigned 32-bit integers.
	TypeUint32
	// TypeUint64 represents unsigned 64-bit integers.
	TypeUint64
	// TypeFloat32 represents single precision floating-point data.
	TypeFloat32
	// TypeFloat64 represents double precision floating-point data.
	TypeFloat64
	// TypeDecimal represents decimal/numeric data (fixed precision).
	TypeDecimal
	// TypeTimestamp represents timestamp data (date + time).
	TypeTimestamp
	// TypeString represents string data.
	TypeString
	// TypeChar represents a single character.
	TypeChar
	// TypeEnum represents an enumeration. Enumeration fields produce
	// TypeString columns holding the value labels.
	TypeEnum
	// TypeStruct represents structured data (nested fields). Struct fields
	// never produce a column of their own.
	TypeStruct
)

var typeNames = [...]string{
	TypeInvalid:   "Invalid",
	TypeBool:      "Bool",
	TypeInt8:      "Int8",
	TypeInt16:     "Int16",
	TypeInt32:     "Int32",
	TypeInt64:     "Int64",
	TypeUint8:     "Uint8",
	TypeUint16:    "Uint16",
	TypeUint32:    "Uint32",
	TypeUint64:    "Uint64",
	TypeFloat32:   "Float32",
	TypeFloat64:   "Float64",
	TypeDecimal:   "Decimal",
	TypeTimestamp: "Timestamp",
	TypeString:    "String",
	TypeChar:      "Char",
	TypeEnum:      "Enum",
	TypeStruct:    "Struct",
}

// String returns the string representation of a DataType.
func (dt DataType) String() string {
	if dt >= 0 && int(dt) < len(typeNames) {
		return typeNames[dt]
	}
	return fmt.Sprintf("Unknown(%d)", int(dt))
}

// IsScalar reports whether dt is a concrete column type.
func (dt DataType) IsScalar() bool {
	return dt >= TypeBool && dt <= TypeChar
}

// IsInteger reports whether dt is one of the signed or unsigned integer types.
func (dt DataType) IsInteger() bool {
	return dt >= TypeInt8 && dt <= TypeUint64
}

// Value is a typed container for cell values.
// It holds the raw value, type information, and a pre-formatted string for display.
type Value struct {
	// Raw holds the underlying value.
	// The type depends on the DataType field.
	Raw any

	// Type indicates the data type of this value.
	Type DataType

	// IsNull indicates whether this value is null/nil.
	IsNull bool

	// Formatted is a pre-formatted string representation for display.
	Formatted string
}

// NewValue creates a new Value from a raw value and type.
func NewValue(raw any, dataType DataType) Value {
	if raw == nil {
		return NewNullValue(dataType)
	}

	return Value{
		Raw:       raw,
		Type:      dataType,
		IsNull:    false,
		Formatted: formatValue(raw, dataType),
	}
}

// NewNullValue creates a null value of the specified type.
func NewNullValue(dataType DataType) Value {
	return Value{
		Raw:       nil,
		Type:      dataType,
		IsNull:    true,
		Formatted: "",
	}
}

// formatValue converts a raw value to a formatted string.
func formatValue(raw any, dataType DataType) string {
	switch v := raw.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case decimal.Decimal:
		return v.String()
	case rune:
		if dataType == TypeChar {
			return string(v)
		}
	}
	return fmt.Sprintf("%v", raw)
}

// Metadata holds optional metadata about a data source.
type Metadata map[string]any
