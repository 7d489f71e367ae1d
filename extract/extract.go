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

// Package extract reads one field from every row of a row sequence,
// producing lazy sequences of nullable values in row order.
//
// Sequences produced here are re-enumerable whenever the row sequence is,
// and hold no state beyond the current row.
package extract

import (
	"database/sql"
	"fmt"
	"iter"
	"reflect"
	"slices"

	"github.com/magpierre/rowframe/datatable"
	"github.com/magpierre/rowframe/schema"
)

// MismatchError is returned when a field value cannot be converted to the
// element type of the sequence reading it.
type MismatchError struct {
	Field string
	Got   reflect.Type
	Want  reflect.Type
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: field %s holds %v, want %v", datatable.ErrTypeMismatch, e.Field, e.Got, e.Want)
}

func (e *MismatchError) Unwrap() error { return datatable.ErrTypeMismatch }

// Slice returns a row sequence over the elements of rows.
func Slice[T any](rows []T) iter.Seq[reflect.Value] {
	rv := reflect.ValueOf(rows)
	return func(yield func(reflect.Value) bool) {
		for i := range rv.Len() {
			if !yield(rv.Index(i)) {
				return
			}
		}
	}
}

// Buffer drains a possibly single-pass sequence of rows once and returns a
// row sequence that can be enumerated any number of times.
func Buffer[T any](rows iter.Seq[T]) iter.Seq[reflect.Value] {
	return Slice(slices.Collect(rows))
}

// Scalar reads f from each row as a T. Enumeration values are converted to
// their integer code before conversion to T.
func Scalar[T any](f schema.Field, rows iter.Seq[reflect.Value]) iter.Seq2[sql.Null[T], error] {
	enum := schema.IsEnum(f.Base)
	return read[T](f, rows, enum)
}

// Reference reads f from each row as a T, without numeric coercion.
func Reference[T any](f schema.Field, rows iter.Seq[reflect.Value]) iter.Seq2[sql.Null[T], error] {
	return read[T](f, rows, false)
}

// EnumLabel reads f from each row and yields the String label of its value.
func EnumLabel(f schema.Field, rows iter.Seq[reflect.Value]) iter.Seq2[sql.Null[string], error] {
	return func(yield func(sql.Null[string], error) bool) {
		for row := range rows {
			v, ok := f.Get(row)
			if !ok {
				if !yield(sql.Null[string]{}, nil) {
					return
				}
				continue
			}
			s, ok := v.Interface().(fmt.Stringer)
			if !ok {
				yield(sql.Null[string]{}, &MismatchError{Field: f.Name, Got: v.Type(), Want: reflect.TypeFor[fmt.Stringer]()})
				return
			}
			if !yield(sql.Null[string]{V: s.String(), Valid: true}, nil) {
				return
			}
		}
	}
}

// Project yields the value of f for each row, or the zero reflect.Value when
// the row or the field is absent. It is the row sequence of a compound
// field's own fields; accessors treat the zero Value as an absent row.
func Project(f schema.Field, rows iter.Seq[reflect.Value]) iter.Seq[reflect.Value] {
	return func(yield func(reflect.Value) bool) {
		for row := range rows {
			v, ok := f.Get(row)
			if !ok {
				v = reflect.Value{}
			}
			if !yield(v) {
				return
			}
		}
	}
}

func read[T any](f schema.Field, rows iter.Seq[reflect.Value], enumCode bool) iter.Seq2[sql.Null[T], error] {
	want := reflect.TypeFor[T]()
	return func(yield func(sql.Null[T], error) bool) {
		for row := range rows {
			v, ok := f.Get(row)
			if !ok {
				if !yield(sql.Null[T]{}, nil) {
					return
				}
				continue
			}
			if enumCode {
				v = code(v)
			}
			if !convertible(v.Type(), want, enumCode) {
				yield(sql.Null[T]{}, &MismatchError{Field: f.Name, Got: v.Type(), Want: want})
				return
			}
			out := sql.Null[T]{V: v.Convert(want).Interface().(T), Valid: true}
			if !yield(out, nil) {
				return
			}
		}
	}
}

// code returns the integer code of an enumeration value.
func code(v reflect.Value) reflect.Value {
	if v.CanInt() {
		return reflect.ValueOf(v.Int())
	}
	return reflect.ValueOf(v.Uint())
}

// convertible reports whether a value of type from may be stored as want.
// Conversions only cross kinds for int, uint and uintptr, which are stored
// in 64-bit columns, and for enumeration codes.
func convertible(from, want reflect.Type, enumCode bool) bool {
	if from == want {
		return true
	}
	fk, wk := from.Kind(), want.Kind()
	switch {
	case fk == wk:
		return from.ConvertibleTo(want)
	case fk == reflect.Int && wk == reflect.Int64:
		return true
	case (fk == reflect.Uint || fk == reflect.Uintptr) && wk == reflect.Uint64:
		return true
	case enumCode && isInteger(fk) && isInteger(wk):
		return true
	}
	return false
}

func isInteger(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Int64) || (k >= reflect.Uint && k <= reflect.Uintptr)
}
