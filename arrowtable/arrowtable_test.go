package arrowtable

import (
	"database/sql"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/rowframe/datatable"
	"github.com/magpierre/rowframe/flatten"
)

var _ flatten.Factory[Column] = (*Factory)(nil)
var _ flatten.Table[Column] = (*Table)(nil)
var _ datatable.DataSource = (*Table)(nil)

func seq[T any](vals ...sql.Null[T]) iter.Seq2[sql.Null[T], error] {
	return func(yield func(sql.Null[T], error) bool) {
		for _, v := range vals {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func some[T any](v T) sql.Null[T] { return sql.Null[T]{V: v, Valid: true} }

func TestFactoryPrimitives(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	f := NewFactory(mem, DefaultConfig())

	ids, err := f.Int32("Id", seq(some[int32](1), sql.Null[int32]{}, some[int32](3)))
	require.NoError(t, err)
	defer ids.Release()

	assert.Equal(t, "Id", ids.Field.Name)
	assert.True(t, ids.Field.Nullable)
	assert.Equal(t, arrow.INT32, ids.Array.DataType().ID())
	require.Equal(t, 3, ids.Array.Len())
	assert.Equal(t, 1, ids.Array.NullN())
	assert.True(t, ids.Array.IsNull(1))
	assert.Equal(t, int32(3), ids.Array.(*array.Int32).Value(2))

	flags, err := f.Bool("Ok", seq(some(true), some(false)))
	require.NoError(t, err)
	defer flags.Release()
	assert.False(t, flags.Array.(*array.Boolean).Value(1))

	u, err := f.Uint64("U", seq(some[uint64](1<<63)))
	require.NoError(t, err)
	defer u.Release()
	assert.Equal(t, uint64(1<<63), u.Array.(*array.Uint64).Value(0))
}

func TestFactoryAllKinds(t *testing.T) {
	f := NewFactory(nil, DefaultConfig())
	ts := time.Date(2024, 5, 6, 7, 8, 9, 10_000, time.UTC)

	build := []func() (Column, error){
		func() (Column, error) { return f.Int8("a", seq(some[int8](-1))) },
		func() (Column, error) { return f.Int16("b", seq(some[int16](-2))) },
		func() (Column, error) { return f.Int64("c", seq(some[int64](-3))) },
		func() (Column, error) { return f.Uint8("d", seq(some[uint8](4))) },
		func() (Column, error) { return f.Uint16("e", seq(some[uint16](5))) },
		func() (Column, error) { return f.Uint32("f", seq(some[uint32](6))) },
		func() (Column, error) { return f.Float32("g", seq(some[float32](1.5))) },
		func() (Column, error) { return f.Float64("h", seq(some(2.5))) },
		func() (Column, error) { return f.Text("i", seq(some("txt"))) },
		func() (Column, error) { return f.Char("j", seq(some('ß'))) },
		func() (Column, error) { return f.Timestamp("k", seq(some(ts))) },
		func() (Column, error) { return f.Decimal("l", seq(some(decimal.RequireFromString("12.34")))) },
	}
	want := []any{int8(-1), int16(-2), int64(-3), uint8(4), uint16(5), uint32(6), float32(1.5), 2.5, "txt", 'ß', ts, "12.34"}
	types := []datatable.DataType{
		datatable.TypeInt8, datatable.TypeInt16, datatable.TypeInt64, datatable.TypeUint8, datatable.TypeUint16,
		datatable.TypeUint32, datatable.TypeFloat32, datatable.TypeFloat64, datatable.TypeString, datatable.TypeChar,
		datatable.TypeTimestamp, datatable.TypeDecimal,
	}

	table := NewTable("all")
	defer table.Release()
	for _, b := range build {
		col, err := b()
		require.NoError(t, err)
		require.NoError(t, table.Append(col))
	}

	row, err := table.Row(0)
	require.NoError(t, err)
	for i, v := range row {
		typ, err := table.ColumnType(i)
		require.NoError(t, err)
		assert.Equal(t, types[i], typ, "column %d", i)

		switch w := want[i].(type) {
		case time.Time:
			assert.True(t, w.Equal(v.Raw.(time.Time)))
		case string:
			if typ == datatable.TypeDecimal {
				assert.Equal(t, w, v.Raw.(decimal.Decimal).String())
				continue
			}
			assert.Equal(t, w, v.Raw)
		default:
			assert.Equal(t, w, v.Raw, "column %d", i)
		}
	}
	assert.Equal(t, "ß", row[9].Formatted)
	assert.Equal(t, "all", table.Metadata()["name"])
}

func TestFactoryDecimalScaleAndPrecision(t *testing.T) {
	f := NewFactory(nil, Config{DecimalPrecision: 5, DecimalScale: 2, TimeUnit: arrow.Microsecond})

	col, err := f.Decimal("d", seq(some(decimal.RequireFromString("1.2")), sql.Null[decimal.Decimal]{}))
	require.NoError(t, err)
	defer col.Release()
	typ := col.Field.Type.(*arrow.Decimal128Type)
	assert.Equal(t, int32(5), typ.Precision)
	assert.Equal(t, int32(2), typ.Scale)
	assert.Equal(t, "1.2", RawValue(col.Array, 0).(decimal.Decimal).String())
	assert.Nil(t, RawValue(col.Array, 1))

	_, err = f.Decimal("d", seq(some(decimal.RequireFromString("12345.6"))))
	assert.Error(t, err)
}

func TestFactoryTimestampUnit(t *testing.T) {
	f := NewFactory(nil, Config{TimeUnit: arrow.Millisecond, TimeZone: "UTC"})
	ts := time.Date(2020, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

	col, err := f.Timestamp("t", seq(some(ts)))
	require.NoError(t, err)
	defer col.Release()
	assert.Equal(t, arrow.Timestamp(ts.UnixMilli()), col.Array.(*array.Timestamp).Value(0))
	assert.Equal(t, "2020-01-02 03:04:05.006", FormatValue(col.Array, 0))
}

func TestFactoryStopsOnError(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	boom := errors.New("boom")
	values := func(yield func(sql.Null[string], error) bool) {
		if yield(some("a"), nil) {
			yield(sql.Null[string]{}, boom)
		}
	}
	_, err := NewFactory(mem, DefaultConfig()).Text("s", values)
	assert.ErrorIs(t, err, boom)
}

func TestTableAppendChecks(t *testing.T) {
	f := NewFactory(nil, DefaultConfig())
	table := NewTable()
	defer table.Release()

	a, err := f.Int64("a", seq(some[int64](1), some[int64](2)))
	require.NoError(t, err)
	require.NoError(t, table.Append(a))

	b, err := f.Int64("b", seq(some[int64](1)))
	require.NoError(t, err)
	defer b.Release()
	assert.ErrorIs(t, table.Append(b), datatable.ErrRowCountMismatch)

	dup, err := f.Int64("a", seq(some[int64](1), some[int64](2)))
	require.NoError(t, err)
	defer dup.Release()
	assert.ErrorIs(t, table.Append(dup), datatable.ErrDuplicateColumn)

	_, err = table.Cell(5, 0)
	assert.ErrorIs(t, err, datatable.ErrInvalidRow)
	_, err = table.Cell(0, 5)
	assert.ErrorIs(t, err, datatable.ErrInvalidColumn)
	_, err = table.ColumnName(-1)
	assert.ErrorIs(t, err, datatable.ErrInvalidColumn)
}

func TestTableRecordAndArrowTable(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	f := NewFactory(mem, DefaultConfig())

	table := NewTable()
	defer table.Release()
	ids, err := f.Int32("Id", seq(some[int32](1), some[int32](2)))
	require.NoError(t, err)
	require.NoError(t, table.Append(ids))
	names, err := f.Text("Name", seq(some("A"), sql.Null[string]{}))
	require.NoError(t, err)
	require.NoError(t, table.Append(names))

	rec := table.NewRecord()
	defer rec.Release()
	assert.Equal(t, int64(2), rec.NumRows())
	assert.Equal(t, int64(2), rec.NumCols())
	assert.Equal(t, "Name", rec.Schema().Field(1).Name)

	at := table.NewArrowTable()
	defer at.Release()
	assert.Equal(t, int64(2), at.NumRows())

	copied, err := FromArrow(at, mem)
	require.NoError(t, err)
	defer copied.Release()
	assert.Equal(t, []string{"Id", "Name"}, datatable.ColumnNames(copied))
	cell, err := copied.Cell(1, 1)
	require.NoError(t, err)
	assert.True(t, cell.IsNull)
}

func TestDataTypeOf(t *testing.T) {
	char := arrow.Field{
		Type:     arrow.BinaryTypes.String,
		Metadata: arrow.NewMetadata([]string{MetaKind}, []string{KindChar}),
	}
	assert.Equal(t, datatable.TypeChar, DataTypeOf(char))
	assert.Equal(t, datatable.TypeString, DataTypeOf(arrow.Field{Type: arrow.BinaryTypes.String}))
	assert.Equal(t, datatable.TypeTimestamp, DataTypeOf(arrow.Field{Type: arrow.FixedWidthTypes.Date32}))
	assert.Equal(t, datatable.TypeInvalid, DataTypeOf(arrow.Field{Type: arrow.ListOf(arrow.PrimitiveTypes.Int32)}))
}

func TestFormatValue(t *testing.T) {
	f := NewFactory(nil, DefaultConfig())
	col, err := f.Float64("x", seq(some(1.5), sql.Null[float64]{}))
	require.NoError(t, err)
	defer col.Release()
	assert.Equal(t, "1.500000", FormatValue(col.Array, 0))
	assert.Equal(t, "", FormatValue(col.Array, 1))
}

func TestFactoryTimestampRange(t *testing.T) {
	old := time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFactory(nil, DefaultConfig())

	col, err := f.Timestamp("t", seq(some(time.Time{}), some(old)))
	require.NoError(t, err)
	defer col.Release()
	assert.True(t, time.Time{}.Equal(RawValue(col.Array, 0).(time.Time)))
	assert.True(t, old.Equal(RawValue(col.Array, 1).(time.Time)))

	nano := NewFactory(nil, Config{TimeUnit: arrow.Nanosecond, TimeZone: "UTC"})
	_, err = nano.Timestamp("t", seq(some(old)))
	assert.ErrorIs(t, err, ErrTimestampOverflow)
	_, err = nano.Timestamp("t", seq(some(time.Time{})))
	assert.ErrorIs(t, err, ErrTimestampOverflow)
}

func TestFactoryTimestampFloorsBeforeEpoch(t *testing.T) {
	f := NewFactory(nil, Config{TimeUnit: arrow.Millisecond, TimeZone: "UTC"})
	ts := time.Date(1969, 12, 31, 23, 59, 59, 999_999_999, time.UTC)

	col, err := f.Timestamp("t", seq(some(ts)))
	require.NoError(t, err)
	defer col.Release()
	assert.Equal(t, arrow.Timestamp(-1), col.Array.(*array.Timestamp).Value(0))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		precision, scale int32
		valid            bool
	}{
		{38, 9, true},
		{1, 0, true},
		{5, 5, true},
		{0, 0, false},
		{39, 2, false},
		{40, 2, false},
		{10, -1, false},
		{10, 11, false},
	}
	for _, tt := range tests {
		err := Config{DecimalPrecision: tt.precision, DecimalScale: tt.scale}.Validate()
		if tt.valid {
			assert.NoError(t, err, "%d,%d", tt.precision, tt.scale)
		} else {
			assert.ErrorIs(t, err, ErrInvalidDecimalType, "%d,%d", tt.precision, tt.scale)
		}
	}
}

func TestFactoryDecimalInvalidType(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	f := NewFactory(mem, Config{DecimalPrecision: 40, DecimalScale: 2})
	_, err := f.Decimal("d", seq(some(decimal.NewFromInt(1))))
	assert.ErrorIs(t, err, ErrInvalidDecimalType)

	assert.Equal(t, int32(DefaultDecimalPrecision), NewFactory(nil, Config{}).Config().DecimalPrecision)
}

func TestRawValueNestedReleasesSlice(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	b := array.NewListBuilder(mem, arrow.PrimitiveTypes.Int32)
	defer b.Release()
	vb := b.ValueBuilder().(*array.Int32Builder)
	b.Append(true)
	vb.AppendValues([]int32{1, 2}, nil)
	b.Append(true)
	vb.Append(3)
	list := b.NewArray()
	defer list.Release()

	assert.Equal(t, []any{float64(3)}, RawValue(list, 1))
}
