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

// Package export writes arrow tables produced by rowframe to Parquet, CSV
// and JSON.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/goccy/go-json"

	"github.com/magpierre/rowframe/arrowtable"
	"github.com/magpierre/rowframe/datatable"
)

// Format represents the supported export formats
type Format int

const (
	FormatParquet Format = iota
	FormatCSV
	FormatJSON
)

// String returns the name of the format.
func (f Format) String() string {
	switch f {
	case FormatParquet:
		return "parquet"
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// ParseFormat returns the Format with the given name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "parquet":
		return FormatParquet, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("%w: %q", datatable.ErrUnsupportedFormat, name)
}

// FormatOf returns the Format matching the extension of filePath.
func FormatOf(filePath string) (Format, error) {
	return ParseFormat(filepath.Ext(filePath))
}

// ToFile writes table to filePath in the given format.
func ToFile(table arrow.Table, filePath string, format Format) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create %s file: %w", format, err)
	}

	switch format {
	case FormatParquet:
		err = WriteParquet(table, file)
	case FormatCSV:
		err = WriteCSV(table, file)
	case FormatJSON:
		err = WriteJSON(table, file)
	default:
		err = fmt.Errorf("%w: %v", datatable.ErrUnsupportedFormat, format)
	}
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close %s file: %w", format, cerr)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", datatable.ErrExportFailed, err)
	}
	return nil
}

// WriteParquet writes the table as snappy compressed Parquet, storing the
// arrow schema so column metadata survives a round trip.
func WriteParquet(table arrow.Table, w io.Writer) error {
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(table.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	if err := writer.WriteTable(table, max(table.NumRows(), 1)); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write table to parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// WriteCSV writes a header row of column names followed by one record per
// row. Null values are written as empty fields.
func WriteCSV(table arrow.Table, w io.Writer) error {
	writer := csv.NewWriter(w)

	schema := table.Schema()
	headers := make([]string, schema.NumFields())
	for i, field := range schema.Fields() {
		headers[i] = field.Name
	}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	err := eachRow(table, func(rec arrow.Record, row int) error {
		record := make([]string, rec.NumCols())
		for colIdx, col := range rec.Columns() {
			record[colIdx] = arrowtable.FormatValue(col, row)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}

// WriteJSON writes the table as an indented JSON array of objects keyed by
// column name. Null values are written as JSON null.
func WriteJSON(table arrow.Table, w io.Writer) error {
	schema := table.Schema()
	records := make([]map[string]any, 0, table.NumRows())

	err := eachRow(table, func(rec arrow.Record, row int) error {
		record := make(map[string]any, rec.NumCols())
		for colIdx, col := range rec.Columns() {
			record[schema.Field(colIdx).Name] = arrowtable.RawValue(col, row)
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// eachRow calls fn for every row of every record batch of table.
func eachRow(table arrow.Table, fn func(rec arrow.Record, row int) error) error {
	tr := array.NewTableReader(table, max(table.NumRows(), 1))
	defer tr.Release()

	for tr.Next() {
		rec := tr.Record()
		for rowIdx := range int(rec.NumRows()) {
			if err := fn(rec, rowIdx); err != nil {
				return err
			}
		}
	}

	if tr.Err() != nil {
		return fmt.Errorf("error reading table: %w", tr.Err())
	}
	return nil
}
