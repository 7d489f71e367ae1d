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

package schema

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magpierre/rowframe/datatable"
)

var (
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
	decimalType  = reflect.TypeFor[decimal.Decimal]()
	stringerType = reflect.TypeFor[fmt.Stringer]()
	valuerType   = reflect.TypeFor[driver.Valuer]()
)

type builder struct {
	opts Options
}

// fields plans the fields of struct type t. ancestors holds the struct
// types on the path from the row type down to t, t included.
func (b *builder) fields(t reflect.Type, path string, ancestors []reflect.Type, top bool) ([]Field, error) {
	var out []Field
	if err := b.collect(t, nil, path, ancestors, top, &out); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(out))
	for _, f := range out {
		if seen[f.Name] {
			return nil, &FieldError{Path: joinPath(path, f.Name), Type: f.Declared, Err: datatable.ErrDuplicateField}
		}
		seen[f.Name] = true
	}
	return out, nil
}

func (b *builder) collect(t reflect.Type, index []int, path string, ancestors []reflect.Type, top bool, out *[]Field) error {
	for i := range t.NumField() {
		sf := t.Field(i)
		tag := parseTag(sf.Tag.Get(b.opts.TagName))
		if tag.skip {
			continue
		}
		idx := append(slices.Clone(index), i)

		if sf.Anonymous && tag.name == "" {
			et := nonPointerType(sf.Type)
			if et.Kind() == reflect.Struct && !isLeafStruct(et) {
				if slices.Contains(ancestors, et) {
					b.opts.Logger.Debug("skipping recursive embedded struct", "field", joinPath(path, sf.Name), "type", et.String())
					continue
				}
				if err := b.collect(et, idx, path, append(slices.Clone(ancestors), et), top, out); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		name := sf.Name
		if tag.name != "" {
			name = tag.name
		}
		fpath := joinPath(path, name)
		if !top && isCollection(sf.Type) {
			b.opts.Logger.Debug("skipping collection field", "field", fpath, "type", sf.Type.String())
			continue
		}

		f, ok, err := b.field(sf.Type, idx, name, fpath, tag, ancestors)
		if err != nil {
			return err
		}
		if ok {
			*out = append(*out, f)
		}
	}
	return nil
}

// field classifies one field. It reports false for fields that are left out
// of the plan because expanding them would revisit an ancestor type.
func (b *builder) field(declared reflect.Type, idx []int, name, fpath string, tag tagOptions, ancestors []reflect.Type) (Field, bool, error) {
	base, steps := resolveBase(declared)
	f := Field{
		Name:     name,
		Index:    idx,
		Declared: declared,
		Base:     base,
		Nullable: len(steps) > 0,
		Get:      accessor(idx, steps),
	}
	fail := func(err error) (Field, bool, error) {
		return Field{}, false, &FieldError{Path: fpath, Type: declared, Err: err}
	}

	switch {
	case base == timeType:
		f.Class, f.Kind = ClassScalar, datatable.TypeTimestamp
	case base == decimalType:
		f.Class, f.Kind = ClassScalar, datatable.TypeDecimal
	case IsEnum(base):
		if !tag.code {
			f.Class, f.Kind = ClassEnum, datatable.TypeEnum
			break
		}
		kind, _ := scalarKind(base)
		f.Class, f.Kind, f.Code = ClassScalar, kind, true
	case base.Kind() == reflect.Struct:
		if slices.Contains(ancestors, base) {
			b.opts.Logger.Debug("skipping recursive field", "field", fpath, "type", base.String())
			return Field{}, false, nil
		}
		sub, err := b.fields(base, fpath, append(slices.Clone(ancestors), base), false)
		if err != nil {
			return Field{}, false, err
		}
		f.Class, f.Kind, f.Fields = ClassCompound, datatable.TypeStruct, sub
	default:
		kind, ok := scalarKind(base)
		if !ok {
			return fail(datatable.ErrUnclassifiableType)
		}
		if tag.char {
			if base.Kind() != reflect.Int32 {
				return fail(fmt.Errorf("%w: char option requires a rune field", datatable.ErrUnclassifiableType))
			}
			kind = datatable.TypeChar
		}
		f.Class, f.Kind = ClassScalar, kind
	}
	return f, true, nil
}

// unwrapStep is one level of indirection between a declared field type
// and its base type.
type unwrapStep uint8

const (
	stepPointer unwrapStep = iota
	stepWrapper
)

// resolveBase strips pointers and nullable wrappers from t, returning the
// steps taken so the accessor can repeat them without inspecting types.
func resolveBase(t reflect.Type) (reflect.Type, []unwrapStep) {
	var steps []unwrapStep
	for {
		switch {
		case t.Kind() == reflect.Pointer:
			t = t.Elem()
			steps = append(steps, stepPointer)
		case isWrapper(t):
			t = t.Field(0).Type
			steps = append(steps, stepWrapper)
		default:
			return t, steps
		}
	}
}

// isWrapper reports whether t is a nullable wrapper in the style of
// sql.NullString, sql.Null[T] or decimal.NullDecimal: a driver.Valuer
// struct of a value field followed by a Valid flag.
func isWrapper(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t.NumField() != 2 {
		return false
	}
	v, valid := t.Field(0), t.Field(1)
	if !v.IsExported() || valid.Name != "Valid" || valid.Type.Kind() != reflect.Bool {
		return false
	}
	return t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType)
}

// isLeafStruct reports struct types that are classified as scalars.
func isLeafStruct(t reflect.Type) bool {
	return t == timeType || t == decimalType || isWrapper(t)
}

// IsEnum reports whether t is classified as an enumeration: an integer kind
// type with a String method. time.Duration is treated as a plain integer.
func IsEnum(t reflect.Type) bool {
	if t == durationType {
		return false
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return t.Implements(stringerType)
	}
	return false
}

func isCollection(t reflect.Type) bool {
	switch nonPointerType(t).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return true
	}
	return false
}

// scalarKind is the dispatch table from Go kinds to column types.
func scalarKind(t reflect.Type) (datatable.DataType, bool) {
	switch t.Kind() {
	case reflect.Bool:
		return datatable.TypeBool, true
	case reflect.Int8:
		return datatable.TypeInt8, true
	case reflect.Int16:
		return datatable.TypeInt16, true
	case reflect.Int32:
		return datatable.TypeInt32, true
	case reflect.Int64, reflect.Int:
		return datatable.TypeInt64, true
	case reflect.Uint8:
		return datatable.TypeUint8, true
	case reflect.Uint16:
		return datatable.TypeUint16, true
	case reflect.Uint32:
		return datatable.TypeUint32, true
	case reflect.Uint64, reflect.Uint, reflect.Uintptr:
		return datatable.TypeUint64, true
	case reflect.Float32:
		return datatable.TypeFloat32, true
	case reflect.Float64:
		return datatable.TypeFloat64, true
	case reflect.String:
		return datatable.TypeString, true
	}
	return datatable.TypeInvalid, false
}

// accessor compiles the read of the field at index into an Accessor.
func accessor(index []int, steps []unwrapStep) Accessor {
	return func(row reflect.Value) (reflect.Value, bool) {
		v, ok := deref(row)
		if !ok {
			return reflect.Value{}, false
		}
		for i, x := range index {
			if i > 0 {
				if v, ok = deref(v); !ok {
					return reflect.Value{}, false
				}
			}
			v = v.Field(x)
		}
		for _, s := range steps {
			switch s {
			case stepPointer:
				if v.IsNil() {
					return reflect.Value{}, false
				}
				v = v.Elem()
			case stepWrapper:
				if !v.Field(1).Bool() {
					return reflect.Value{}, false
				}
				v = v.Field(0)
			}
		}
		return v, true
	}
}

func deref(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

func nonPointerType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

