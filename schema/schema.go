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

// Package schema builds the field plan of a row type: for every exported
// field, its base type, nullability, classification and a compiled accessor.
// A plan is built once per struct type and reused for every row.
package schema

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/magpierre/rowframe/datatable"
)

// DefaultTagName is the struct tag key read for field options.
const DefaultTagName = "rowframe"

// Class is the classification of a field's base type.
type Class int

const (
	// ClassScalar fields produce one column of a scalar DataType.
	ClassScalar Class = iota
	// ClassEnum fields produce one string column holding value labels.
	ClassEnum
	// ClassCompound fields produce the columns of their own fields.
	ClassCompound
)

// String returns the string representation of a Class.
func (c Class) String() string {
	switch c {
	case ClassScalar:
		return "scalar"
	case ClassEnum:
		return "enum"
	case ClassCompound:
		return "compound"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Accessor reads one field from a row. It reports false when the row is
// absent, a pointer on the way to the field is nil, or the field itself
// holds no value. The returned value is never a pointer or nullable wrapper.
type Accessor func(row reflect.Value) (reflect.Value, bool)

// Field describes one field of a row type.
type Field struct {
	// Name is the column name segment, the Go field name unless renamed by tag.
	Name string

	// Index is the reflect index path of the field, longer than one for
	// fields promoted from embedded structs.
	Index []int

	// Declared is the field's type as written in the struct.
	Declared reflect.Type

	// Base is Declared with pointers and nullable wrappers removed.
	Base reflect.Type

	// Nullable is set when Declared is a pointer or nullable wrapper.
	Nullable bool

	// Class is the classification of Base.
	Class Class

	// Kind is the column type for scalar fields, TypeEnum for enumerations
	// and TypeStruct for compound fields.
	Kind datatable.DataType

	// Code is set on enumeration typed fields tagged with the "code" option.
	// They are classified as scalars of their integer kind.
	Code bool

	// Get reads the field from a row of the owning type.
	Get Accessor

	// Fields are the sub-fields of a compound field, without collections.
	Fields []Field
}

// RowType is the field plan of a struct type.
type RowType struct {
	Type   reflect.Type
	Fields []Field
}

// Leaves returns the number of scalar and enumeration fields reachable
// from rt, which is the number of columns it flattens to.
func (rt *RowType) Leaves() int {
	return countLeaves(rt.Fields)
}

func countLeaves(fields []Field) int {
	n := 0
	for _, f := range fields {
		if f.Class == ClassCompound {
			n += countLeaves(f.Fields)
			continue
		}
		n++
	}
	return n
}

// Options configures how row types are read.
type Options struct {
	// TagName is the struct tag key holding field options.
	TagName string

	// Logger receives debug records about skipped fields.
	Logger *slog.Logger
}

// DefaultOptions returns the default Options.
func DefaultOptions() Options {
	return Options{TagName: DefaultTagName, Logger: slog.Default()}
}

type cacheKey struct {
	typ reflect.Type
	tag string
}

var cache sync.Map // cacheKey -> *RowType

// Of returns the cached RowType of T, building it on first use.
func Of[T any](opts Options) (*RowType, error) {
	return ForType(reflect.TypeFor[T](), opts)
}

// ForType returns the cached RowType of t, building it on first use.
// Pointer types are reduced to their element type.
func ForType(t reflect.Type, opts Options) (*RowType, error) {
	opts = opts.withDefaults()
	t = nonPointerType(t)
	key := cacheKey{typ: t, tag: opts.TagName}
	if rt, ok := cache.Load(key); ok {
		return rt.(*RowType), nil
	}
	rt, err := Build(t, opts)
	if err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(key, rt)
	return actual.(*RowType), nil
}

// Build builds the RowType of t without consulting the cache.
func Build(t reflect.Type, opts Options) (*RowType, error) {
	opts = opts.withDefaults()
	t = nonPointerType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", datatable.ErrNotStruct, t)
	}
	b := &builder{opts: opts}
	fields, err := b.fields(t, "", []reflect.Type{t}, true)
	if err != nil {
		return nil, err
	}
	return &RowType{Type: t, Fields: fields}, nil
}

func (o Options) withDefaults() Options {
	if o.TagName == "" {
		o.TagName = DefaultTagName
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// FieldError reports a field that could not be planned.
type FieldError struct {
	// Path is the dotted path of the field from the row type.
	Path string
	// Type is the declared type of the field.
	Type reflect.Type
	// Err is the sentinel describing the failure.
	Err error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s (%v): %v", e.Path, e.Type, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// tagOptions is the parsed form of a `rowframe:"name,opt,opt"` tag.
type tagOptions struct {
	name string
	skip bool
	char bool
	code bool
}

func parseTag(tag string) tagOptions {
	if tag == "-" {
		return tagOptions{skip: true}
	}
	name, rest, _ := strings.Cut(tag, ",")
	opts := tagOptions{name: name}
	for rest != "" {
		var opt string
		opt, rest, _ = strings.Cut(rest, ",")
		switch strings.TrimSpace(opt) {
		case "char":
			opts.char = true
		case "code":
			opts.code = true
		}
	}
	return opts
}
