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

package export

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	arrowcsv "github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/magpierre/rowframe/arrowtable"
	"github.com/magpierre/rowframe/datatable"
)

// ReadFile loads a Parquet or CSV file written by ToFile back into a
// table. The caller must release it.
func ReadFile(filePath string, mem memory.Allocator) (*arrowtable.Table, error) {
	format, err := FormatOf(filePath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file: %w", format, err)
	}
	defer f.Close()

	switch format {
	case FormatParquet:
		return ReadParquet(f, mem)
	case FormatCSV:
		return ReadCSV(f, mem)
	default:
		return nil, fmt.Errorf("%w: cannot read %s", datatable.ErrUnsupportedFormat, format)
	}
}

// ReadParquet reads a Parquet file into a table.
func ReadParquet(r parquet.ReaderAtSeeker, mem memory.Allocator) (*arrowtable.Table, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	pf, err := file.NewParquetReader(r, file.WithReadProps(parquet.NewReaderProperties(mem)))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pf.Close()

	arrowReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	defer table.Release()

	return arrowtable.FromArrow(table, mem)
}

// ReadCSV reads a CSV file with a header row into a table. Column types
// are inferred and empty fields read as null.
func ReadCSV(r io.Reader, mem memory.Allocator) (*arrowtable.Table, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}

	reader := arrowcsv.NewInferringReader(bytes.NewReader(content),
		arrowcsv.WithHeader(true),
		arrowcsv.WithComma(DetectSeparator(content)),
		arrowcsv.WithAllocator(mem),
		arrowcsv.WithNullReader(true, ""),
	)
	defer reader.Release()

	var records []arrow.Record
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		records = append(records, rec)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CSV file: %w", err)
	}
	if len(records) == 0 {
		return arrowtable.NewTable(), nil
	}

	table := array.NewTableFromRecords(records[0].Schema(), records)
	defer table.Release()
	return arrowtable.FromArrow(table, mem)
}

// DetectSeparator returns the most frequent of the common CSV separators
// in the first line of content, or a comma if none occurs.
func DetectSeparator(content []byte) rune {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	if !scanner.Scan() {
		return ','
	}
	firstLine := scanner.Text()

	detected, maxCount := ',', 0
	for _, sep := range []rune{',', ';', '\t', '|'} {
		if count := strings.Count(firstLine, string(sep)); count > maxCount {
			detected, maxCount = sep, count
		}
	}
	return detected
}
