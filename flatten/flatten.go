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

// Package flatten turns the field plan of a row type into an ordered list of
// column specifications, one per scalar or enumeration leaf, and builds them
// into a host table through a column factory.
package flatten

import (
	"iter"
	"log/slog"
	"reflect"

	"github.com/magpierre/rowframe/datatable"
	"github.com/magpierre/rowframe/extract"
	"github.com/magpierre/rowframe/schema"
)

// DefaultSeparator joins the field names of a nested column.
const DefaultSeparator = "_"

// Options configures flattening.
type Options struct {
	// Separator is placed between the field names of a qualified column name.
	Separator string

	// Logger receives one debug record per visited field.
	Logger *slog.Logger
}

// DefaultOptions returns the default Options.
func DefaultOptions() Options {
	return Options{Separator: DefaultSeparator, Logger: slog.Default()}
}

// ColumnSpec describes one column of the flattened table: its qualified
// name, its column type and the leaf field read for its values.
type ColumnSpec struct {
	// Name is the qualified column name.
	Name string

	// Kind is the column type. Enumeration fields have TypeString.
	Kind datatable.DataType

	// Field is the leaf field providing the values.
	Field schema.Field

	rows iter.Seq[reflect.Value]
}

// Flatten returns the column specifications of rt in declaration order,
// depth first. rows must be enumerable once per returned spec.
func Flatten(rt *schema.RowType, rows iter.Seq[reflect.Value], opts Options) []ColumnSpec {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var specs []ColumnSpec
	walk(rt.Fields, rows, "", opts, &specs)
	return specs
}

func walk(fields []schema.Field, rows iter.Seq[reflect.Value], prefix string, opts Options, out *[]ColumnSpec) {
	for _, f := range fields {
		name := prefix + f.Name
		opts.Logger.Debug("flatten field", "field", name, "type", f.Base.String(), "class", f.Class.String())

		switch f.Class {
		case schema.ClassCompound:
			walk(f.Fields, extract.Project(f, rows), name+opts.Separator, opts, out)
		case schema.ClassEnum:
			*out = append(*out, ColumnSpec{Name: name, Kind: datatable.TypeString, Field: f, rows: rows})
		default:
			*out = append(*out, ColumnSpec{Name: name, Kind: f.Kind, Field: f, rows: rows})
		}
	}
}

// Names returns the qualified names of specs.
func Names(specs []ColumnSpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}
