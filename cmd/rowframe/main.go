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

// Command rowframe flattens a JSON file of orders into a table and writes
// it as Parquet, CSV or JSON.
//
//	rowframe -in orders.json -out orders.parquet
//	rowframe -config run.yaml -v
//	rowframe -list
//	rowframe -out orders.csv -show
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/magpierre/rowframe"
	"github.com/magpierre/rowframe/datatable"
	"github.com/magpierre/rowframe/export"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "rowframe:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("rowframe", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath = fs.String("config", "", "YAML or TOML configuration file")
		input      = fs.String("in", "", "JSON file of orders (default: built-in sample)")
		output     = fs.String("out", "", "output file")
		format     = fs.String("format", "", "output format: parquet, csv or json (default: from -out extension)")
		separator  = fs.String("sep", "", "separator of nested column names")
		precision  = fs.Int("precision", 0, "decimal precision")
		scale      = fs.Int("scale", 0, "decimal scale")
		verbose    = fs.Bool("v", false, "log every visited field")
		list       = fs.Bool("list", false, "print the columns and exit")
		show       = fs.Bool("show", false, "print the written file")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfig(*configPath); err != nil {
			return err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			cfg.Input = *input
		case "out":
			cfg.Output = *output
		case "format":
			cfg.Format = *format
		case "sep":
			cfg.Separator = *separator
		case "precision":
			cfg.Precision = int32(*precision)
		case "scale":
			cfg.Scale = int32(*scale)
		case "v":
			cfg.Verbose = *verbose
		}
	})

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	opts := append(cfg.Options(), rowframe.WithLogger(logger))

	orders := SampleOrders()
	if cfg.Input != "" {
		var err error
		if orders, err = LoadOrders(cfg.Input); err != nil {
			return err
		}
	}

	if *list {
		specs, err := rowframe.Columns(orders, opts...)
		if err != nil {
			return err
		}
		for _, s := range specs {
			fmt.Fprintf(stdout, "%s\t%s\n", s.Name, s.Kind)
		}
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := convert(orders, cfg, logger, opts); err != nil {
		return err
	}
	if *show {
		table, err := export.ReadFile(cfg.Output, nil)
		if err != nil {
			return err
		}
		defer table.Release()
		return printTable(stdout, table)
	}
	return nil
}

func convert(orders []Order, cfg Config, logger *slog.Logger, opts []rowframe.Option) error {
	format, err := cfg.ExportFormat()
	if err != nil {
		return err
	}

	table, err := rowframe.ToArrow(orders, opts...)
	if err != nil {
		return err
	}
	defer table.Release()

	tbl := table.NewArrowTable()
	defer tbl.Release()

	if err := export.ToFile(tbl, cfg.Output, format); err != nil {
		return err
	}
	logger.Info("exported orders", "rows", table.RowCount(), "columns", table.ColumnCount(),
		"format", format, "path", cfg.Output)
	return nil
}

// printTable writes the header and rows of ds as aligned columns.
func printTable(w io.Writer, ds datatable.DataSource) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(datatable.ColumnNames(ds), "\t"))

	for row := range ds.RowCount() {
		values, err := ds.Row(row)
		if err != nil {
			return err
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = v.Formatted
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
