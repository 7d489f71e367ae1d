package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/rowframe/arrowtable"
	"github.com/magpierre/rowframe/export"
)

const ordersJSON = `[
  {"id": "o-1", "placed": "2025-01-02T03:04:05Z", "status": "Delivered", "total": "10.50",
   "customer": {"name": "Linus", "address": {"city": "Helsinki"}, "tags": ["x"]},
   "lines": [{"sku": "A", "quantity": 1, "price": "10.50"}]},
  {"placed": "2025-01-03T00:00:00Z", "status": "Pending", "total": 0, "discount": 0.25}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOrders(t *testing.T) {
	orders, err := LoadOrders(writeFile(t, "orders.json", ordersJSON))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, "o-1", orders[0].ID)
	assert.Equal(t, Delivered, orders[0].Status)
	assert.Equal(t, "10.5", orders[0].Total.String())
	assert.Equal(t, int32(1), orders[0].LineCount)
	assert.NotEmpty(t, orders[1].ID)
	assert.Nil(t, orders[1].Customer)
	require.NotNil(t, orders[1].Discount)

	_, err = LoadOrders(writeFile(t, "bad.json", `[{"status": "Lost"}]`))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	yml := writeFile(t, "run.yaml", "output: out.csv\nseparator: .\ndecimal_scale: 2\nverbose: true\n")
	cfg, err := LoadConfig(yml)
	require.NoError(t, err)
	assert.Equal(t, "out.csv", cfg.Output)
	assert.Equal(t, ".", cfg.Separator)
	assert.Equal(t, int32(2), cfg.Scale)
	assert.Equal(t, int32(38), cfg.Precision)
	assert.True(t, cfg.Verbose)

	tml := writeFile(t, "run.toml", "output = \"out.parquet\"\ndecimal_precision = 12\n")
	cfg, err = LoadConfig(tml)
	require.NoError(t, err)
	assert.Equal(t, "out.parquet", cfg.Output)
	assert.Equal(t, int32(12), cfg.Precision)
	assert.Equal(t, "_", cfg.Separator)

	_, err = LoadConfig(writeFile(t, "run.ini", ""))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.Output = "out.xlsx"
	assert.Error(t, cfg.Validate())

	cfg.Format = "csv"
	require.NoError(t, cfg.Validate())
	f, err := cfg.ExportFormat()
	require.NoError(t, err)
	assert.Equal(t, export.FormatCSV, f)

	cfg.Scale = 40
	assert.Error(t, cfg.Validate())

	cfg.Scale, cfg.Precision = 2, 40
	assert.ErrorIs(t, cfg.Validate(), arrowtable.ErrInvalidDecimalType)
}

func TestRunList(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-list"}, &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "Status\tString\n")
	assert.Contains(t, out, "Total\tDecimal\n")
	assert.Contains(t, out, "Customer_Address_City\tString\n")
	assert.NotContains(t, out, "Lines")
	assert.NotContains(t, out, "Tags")
}

func TestRunCSV(t *testing.T) {
	in := writeFile(t, "orders.json", ordersJSON)
	out := filepath.Join(t.TempDir(), "orders.csv")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-in", in, "-out", out, "-sep", "."}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "exported orders")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := strings.Join(records[0], ",")
	assert.Contains(t, header, "Customer.Address.City")
	city := -1
	for i, name := range records[0] {
		if name == "Customer.Address.City" {
			city = i
		}
	}
	assert.Equal(t, "Helsinki", records[1][city])
	assert.Equal(t, "", records[2][city])
}

func TestRunSampleParquetVerbose(t *testing.T) {
	out := filepath.Join(t.TempDir(), "orders.parquet")
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-out", out, "-v"}, &stdout, &stderr))

	assert.Contains(t, stderr.String(), "level=DEBUG")
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Error(t, run([]string{}, &stdout, &stderr), "missing output")
	assert.Error(t, run([]string{"-bogus"}, &stdout, &stderr))
	assert.Error(t, run([]string{"-config", "/does/not/exist.yaml"}, &stdout, &stderr))

	out := filepath.Join(t.TempDir(), "x.csv")
	err := run([]string{"-precision", "40", "-out", out}, &stdout, &stderr)
	assert.ErrorIs(t, err, arrowtable.ErrInvalidDecimalType)
	assert.NoFileExists(t, out)
}

func TestRunMissingPlacedTime(t *testing.T) {
	in := writeFile(t, "orders.json", `[{"id": "o-9", "status": "Pending", "total": "1"}]`)
	out := filepath.Join(t.TempDir(), "orders.parquet")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-in", in, "-out", out, "-show"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "0001-01-01")
}

func TestOrderStatus(t *testing.T) {
	assert.Equal(t, "Cancelled", Cancelled.String())
	assert.Equal(t, "OrderStatus(9)", OrderStatus(9).String())
}

func TestRunShow(t *testing.T) {
	out := filepath.Join(t.TempDir(), "orders.parquet")
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-out", out, "-show"}, &stdout, &stderr))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Customer_Address_City")
	assert.Contains(t, lines[1], "Berlin")
	assert.Contains(t, lines[1], "Shipped")
	assert.Contains(t, lines[3], "Cancelled")
}
