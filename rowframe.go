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

// Package rowframe converts slices of structs into columnar tables with one
// column per scalar field, nested struct fields flattened into
// separator-joined column names.
//
//	type Address struct {
//		City string
//		Tags []string // collections are skipped
//	}
//
//	type Person struct {
//		Id      int32
//		Name    *string
//		Status  Status // fmt.Stringer enumerations become label columns
//		Address *Address
//	}
//
//	frame, err := rowframe.ToFrame(people)
//	// columns: Id, Name, Status, Address_City
package rowframe

import (
	"fmt"
	"iter"
	"log/slog"
	"reflect"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/magpierre/rowframe/arrowtable"
	"github.com/magpierre/rowframe/datatable"
	"github.com/magpierre/rowframe/extract"
	"github.com/magpierre/rowframe/flatten"
	"github.com/magpierre/rowframe/schema"
)

// Options configures a conversion.
type Options struct {
	// Separator joins the field names of nested columns.
	Separator string

	// TagName is the struct tag key holding field options.
	TagName string

	// Logger receives debug records for every visited field.
	Logger *slog.Logger

	// Arrow configures decimal and timestamp types of arrow columns.
	Arrow arrowtable.Config

	// Allocator backs arrow columns. Nil selects a Go allocator.
	Allocator memory.Allocator
}

// DefaultOptions returns the default Options.
func DefaultOptions() Options {
	return Options{
		Separator: flatten.DefaultSeparator,
		TagName:   schema.DefaultTagName,
		Logger:    slog.Default(),
		Arrow:     arrowtable.DefaultConfig(),
	}
}

// Option modifies Options.
type Option func(*Options)

// WithSeparator sets the separator between nested field names.
func WithSeparator(sep string) Option {
	return func(o *Options) { o.Separator = sep }
}

// WithTagName sets the struct tag key read for field options.
func WithTagName(name string) Option {
	return func(o *Options) { o.TagName = name }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithDecimal sets the precision and scale of arrow decimal columns.
func WithDecimal(precision, scale int32) Option {
	return func(o *Options) {
		o.Arrow.DecimalPrecision = precision
		o.Arrow.DecimalScale = scale
	}
}

// WithAllocator sets the allocator of arrow columns.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *Options) { o.Allocator = mem }
}

func newOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Columns returns the column specifications of T for rows, in the order
// their columns are appended to a table.
func Columns[T any](rows []T, opts ...Option) ([]flatten.ColumnSpec, error) {
	return columns(reflect.TypeFor[T](), extract.Slice(rows), newOptions(opts))
}

func columns(t reflect.Type, rows iter.Seq[reflect.Value], o Options) ([]flatten.ColumnSpec, error) {
	rt, err := schema.ForType(t, schema.Options{TagName: o.TagName, Logger: o.Logger})
	if err != nil {
		return nil, fmt.Errorf("failed to read row type %v: %w", t, err)
	}
	specs := flatten.Flatten(rt, rows, flatten.Options{Separator: o.Separator, Logger: o.Logger})
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if seen[s.Name] {
			return nil, fmt.Errorf("failed to flatten row type %v: %w: %s", t, datatable.ErrDuplicateColumn, s.Name)
		}
		seen[s.Name] = true
	}
	return specs, nil
}

// ToTable appends the columns of rows to table, building each with factory.
// The row type is fully planned before the first column is built, so an
// unsupported field type or two fields flattening to the same column name
// fail before table is modified.
func ToTable[T, C any](rows []T, factory flatten.Factory[C], table flatten.Table[C], opts ...Option) error {
	o := newOptions(opts)
	specs, err := columns(reflect.TypeFor[T](), extract.Slice(rows), o)
	if err != nil {
		return err
	}
	if err := flatten.Append(specs, factory, table); err != nil {
		return err
	}
	o.Logger.Debug("converted rows", "type", reflect.TypeFor[T]().String(), "rows", len(rows), "columns", len(specs))
	return nil
}

// ToTableSeq is ToTable for a row sequence that may only be enumerated once.
// The rows are buffered before conversion.
func ToTableSeq[T, C any](rows iter.Seq[T], factory flatten.Factory[C], table flatten.Table[C], opts ...Option) error {
	o := newOptions(opts)
	buffered := extract.Buffer(rows)
	specs, err := columns(reflect.TypeFor[T](), buffered, o)
	if err != nil {
		return err
	}
	if err := flatten.Append(specs, factory, table); err != nil {
		return err
	}
	o.Logger.Debug("converted rows", "type", reflect.TypeFor[T]().String(), "rows", count(buffered), "columns", len(specs))
	return nil
}

func count[V any](seq iter.Seq[V]) int {
	n := 0
	for range seq {
		n++
	}
	return n
}

// ToFrame converts rows into a new in-memory datatable.Frame.
func ToFrame[T any](rows []T, opts ...Option) (*datatable.Frame, error) {
	frame := datatable.NewFrame(reflect.TypeFor[T]().Name())
	if err := ToTable[T, *datatable.Column](rows, frame, frame, opts...); err != nil {
		return nil, err
	}
	return frame, nil
}

// ToArrow converts rows into a new arrow backed table. The caller must
// release it.
func ToArrow[T any](rows []T, opts ...Option) (*arrowtable.Table, error) {
	o := newOptions(opts)
	factory := arrowtable.NewFactory(o.Allocator, o.Arrow)
	if err := factory.Config().Validate(); err != nil {
		return nil, err
	}
	table := arrowtable.NewTable(reflect.TypeFor[T]().Name())
	if err := ToTable[T, arrowtable.Column](rows, factory, arrowTable{table}, opts...); err != nil {
		table.Release()
		return nil, err
	}
	return table, nil
}

// arrowTable releases columns the table refuses.
type arrowTable struct {
	*arrowtable.Table
}

func (t arrowTable) Append(col arrowtable.Column) error {
	if err := t.Table.Append(col); err != nil {
		col.Release()
		return err
	}
	return nil
}
