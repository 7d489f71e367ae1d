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

// Package arrowtable hosts flattened columns in Apache Arrow arrays.
package arrowtable

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/shopspring/decimal"

	"github.com/magpierre/rowframe/flatten"
)

const (
	// MetaKind is the field metadata key marking columns whose arrow type
	// does not identify the source column type.
	MetaKind = "rowframe.kind"
	// KindChar is the MetaKind value of character columns.
	KindChar = "char"

	// DefaultDecimalPrecision is the precision of decimal columns.
	DefaultDecimalPrecision = 38
	// DefaultDecimalScale is the scale of decimal columns.
	DefaultDecimalScale = 9
	// MaxDecimalPrecision is the largest precision of a decimal128 column.
	MaxDecimalPrecision = 38
)

var (
	// ErrInvalidDecimalType is returned when the configured decimal
	// precision or scale cannot describe a decimal128 column.
	ErrInvalidDecimalType = errors.New("invalid decimal type")
	// ErrTimestampOverflow is returned when a time cannot be represented in
	// the configured timestamp unit.
	ErrTimestampOverflow = errors.New("timestamp out of range")
)

// timeRange returns the instants representable as int64 counts of unit.
// Nanosecond timestamps span 1677-09-21 to 2262-04-11. Seconds cover every
// time.Time and report ok false.
func timeRange(unit arrow.TimeUnit) (lo, hi time.Time, ok bool) {
	switch unit {
	case arrow.Nanosecond:
		return time.Unix(0, math.MinInt64), time.Unix(0, math.MaxInt64), true
	case arrow.Microsecond:
		return time.UnixMicro(math.MinInt64), time.UnixMicro(math.MaxInt64), true
	case arrow.Millisecond:
		return time.UnixMilli(math.MinInt64), time.UnixMilli(math.MaxInt64), true
	}
	return time.Time{}, time.Time{}, false
}

// Column is an arrow array together with its schema field.
type Column struct {
	Field arrow.Field
	Array arrow.Array
}

// Release releases the column's array.
func (c Column) Release() {
	if c.Array != nil {
		c.Array.Release()
	}
}

// Config holds the arrow types used for columns whose arrow type is
// parameterized.
type Config struct {
	// DecimalPrecision and DecimalScale define the decimal128 type.
	// Values are rounded to DecimalScale digits.
	DecimalPrecision int32
	DecimalScale     int32

	// TimeUnit and TimeZone define the timestamp type.
	TimeUnit arrow.TimeUnit
	TimeZone string
}

// DefaultConfig returns the default Config.
func DefaultConfig() Config {
	return Config{
		DecimalPrecision: DefaultDecimalPrecision,
		DecimalScale:     DefaultDecimalScale,
		TimeUnit:         arrow.Microsecond,
		TimeZone:         "UTC",
	}
}

// Validate reports whether the decimal precision and scale describe a
// decimal128 type: precision in 1..38 and scale in 0..precision.
func (c Config) Validate() error {
	if c.DecimalPrecision < 1 || c.DecimalPrecision > MaxDecimalPrecision {
		return fmt.Errorf("%w: precision %d not in 1..%d", ErrInvalidDecimalType, c.DecimalPrecision, MaxDecimalPrecision)
	}
	if c.DecimalScale < 0 || c.DecimalScale > c.DecimalPrecision {
		return fmt.Errorf("%w: scale %d not in 0..%d", ErrInvalidDecimalType, c.DecimalScale, c.DecimalPrecision)
	}
	return nil
}

// Factory builds arrow columns from lazily produced values.
type Factory struct {
	mem memory.Allocator
	cfg Config
}

// NewFactory returns a Factory allocating from mem, or from a Go allocator
// if mem is nil. A zero precision selects DefaultDecimalPrecision. Use
// Config.Validate to reject other invalid decimal types up front; Decimal
// fails with ErrInvalidDecimalType otherwise.
func NewFactory(mem memory.Allocator, cfg Config) *Factory {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	if cfg.DecimalPrecision == 0 {
		cfg.DecimalPrecision = DefaultDecimalPrecision
	}
	return &Factory{mem: mem, cfg: cfg}
}

// Config returns the factory's configuration after defaults are applied.
func (f *Factory) Config() Config { return f.cfg }

type builder[V any] interface {
	Append(V)
	AppendNull()
	NewArray() arrow.Array
	Release()
}

func same[T any](v T) (T, error) { return v, nil }

// build drains values into b. conv maps each present value to the builder's
// element type.
func build[T, V any](name string, field arrow.Field, b builder[V], conv func(T) (V, error), values flatten.Values[T]) (Column, error) {
	defer b.Release()
	for v, err := range values {
		if err != nil {
			return Column{}, fmt.Errorf("failed to build column %s: %w", name, err)
		}
		if !v.Valid {
			b.AppendNull()
			continue
		}
		out, err := conv(v.V)
		if err != nil {
			return Column{}, fmt.Errorf("failed to build column %s: %w", name, err)
		}
		b.Append(out)
	}
	field.Name = name
	field.Nullable = true
	return Column{Field: field, Array: b.NewArray()}, nil
}

// Bool builds a boolean column.
func (f *Factory) Bool(name string, values flatten.Values[bool]) (Column, error) {
	return build(name, arrow.Field{Type: arrow.FixedWidthTypes.Boolean}, array.NewBooleanBuilder(f.mem), same[bool], values)
}

// Int8 builds an int8 column.
func (f *Factory) Int8(name string, values flatten.Values[int8]) (Column, error) {
	return build(name, arrow.Field{Type: arrow.PrimitiveTypes.Int8}, array.NewInt8Builder(f.mem), same[int8], values)
}

// Int16 builds an int16 column.
func (f *Factory) Int16(name string, values flatten.Values[int16]) (Column, error) {
	return build(name, arrow.Field{Type: arrow.PrimitiveTypes.Int16}, array.NewInt16Builder(f.mem), same[int16], values)
}

// Int32 builds an int32 column.
func (f *Factory) Int32(name string, values flatten.Values[int32]) (Column, error) {
	return build(name, arrow.Field{Type: arrow.PrimitiveTypes.Int32}, array.NewInt32Builder(f.mem), same[int32], values)
}

// Int64 builds an int64 column.
func (f *Factory) Int64(name string, values flatten.Values[int64]) (Column, error) {
	return build(name, arrow.Field{Type: arrow.PrimitiveTypes.Int64}, array.NewInt64Builder(f.mem), same[int64], values)
}

// Uint8 builds a uint8 column.
func (f *Factory) Uint8(name string, values flatten.Values[uint8]) (Column, error) {
	return build(name, arrow.Field{Type: arrow.PrimitiveTypes.Uint8}, array.NewUint8Builder(f.mem), same[uint8], values)
}

// Uint16 builds a uint16 column.
func (f *Factory) Uint16(name string, values flatten.Values[uint16]) (Column, error) {
	return build(name, arrow.Field{Type: arrow.PrimitiveTypes.Uint16}, array.NewUint16Builder(f.mem), same[uint16], values)
}

// Uint32 builds a uint32 column.
func (f *Factory) Uint32(name string, values flatten.Values[uint32]) (Column, error) {
	return build(name, arrow.Field{Type: arrow.PrimitiveTypes.Uint32}, array.NewUint32Builder(f.mem), same[uint32], values)
}

// Uint64 builds a uint64 column.
func (f *Factory) Uint64(name string, values flatten.Values[uint64]) (Column, error) {
	return build(name, arrow.Field{Type: arrow.PrimitiveTypes.Uint64}, array.NewUint64Builder(f.mem), same[uint64], values)
}

// Float32 builds a float32 column.
func (f *Factory) Float32(name string, values flatten.Values[float32]) (Column, error) {
	return build(name, arrow.Field{Type: arrow.PrimitiveTypes.Float32}, array.NewFloat32Builder(f.mem), same[float32], values)
}

// Float64 builds a float64 column.
func (f *Factory) Float64(name string, values flatten.Values[float64]) (Column, error) {
	return build(name, arrow.Field{Type: arrow.PrimitiveTypes.Float64}, array.NewFloat64Builder(f.mem), same[float64], values)
}

// Decimal builds a decimal128 column with the configured precision and
// scale. Values with more fractional digits are rounded; values that do not
// fit the precision fail the column.
func (f *Factory) Decimal(name string, values flatten.Values[decimal.Decimal]) (Column, error) {
	if err := f.cfg.Validate(); err != nil {
		return Column{}, fmt.Errorf("failed to build column %s: %w", name, err)
	}
	typ := &arrow.Decimal128Type{Precision: f.cfg.DecimalPrecision, Scale: f.cfg.DecimalScale}
	return build(name, arrow.Field{Type: typ}, array.NewDecimal128Builder(f.mem, typ), f.decimal128, values)
}

// decimal128 rounds d to the configured scale and returns its unscaled value.
func (f *Factory) decimal128(d decimal.Decimal) (decimal128.Num, error) {
	scale := f.cfg.DecimalScale
	unscaled := d.Round(scale).Shift(scale).BigInt()
	if unscaled.BitLen() > 127 {
		return decimal128.Num{}, fmt.Errorf("decimal %s overflows decimal128", d)
	}
	n := decimal128.FromBigInt(unscaled)
	if !n.FitsInPrecision(f.cfg.DecimalPrecision) {
		return decimal128.Num{}, fmt.Errorf("decimal %s does not fit precision %d scale %d", d, f.cfg.DecimalPrecision, scale)
	}
	return n, nil
}

// Timestamp builds a timestamp column in the configured unit and zone.
// Sub-unit precision is truncated toward the earlier instant.
func (f *Factory) Timestamp(name string, values flatten.Values[time.Time]) (Column, error) {
	typ := &arrow.TimestampType{Unit: f.cfg.TimeUnit, TimeZone: f.cfg.TimeZone}
	unit := f.cfg.TimeUnit
	lo, hi, bounded := timeRange(unit)
	conv := func(t time.Time) (arrow.Timestamp, error) {
		if bounded && (t.Before(lo) || t.After(hi)) {
			return 0, fmt.Errorf("%w: %s in %s", ErrTimestampOverflow, t.Format(time.RFC3339), unit)
		}
		return arrow.TimestampFromTime(t, unit)
	}
	return build(name, arrow.Field{Type: typ}, array.NewTimestampBuilder(f.mem, typ), conv, values)
}

// Text builds a utf8 column.
func (f *Factory) Text(name string, values flatten.Values[string]) (Column, error) {
	return build(name, arrow.Field{Type: arrow.BinaryTypes.String}, array.NewStringBuilder(f.mem), same[string], values)
}

// Char builds a utf8 column of single characters, marked with the
// MetaKind field metadata so it reads back as a character column.
func (f *Factory) Char(name string, values flatten.Values[rune]) (Column, error) {
	field := arrow.Field{
		Type:     arrow.BinaryTypes.String,
		Metadata: arrow.NewMetadata([]string{MetaKind}, []string{KindChar}),
	}
	conv := func(r rune) (string, error) { return string(r), nil }
	return build(name, field, array.NewStringBuilder(f.mem), conv, values)
}
