package datatable

import (
	"database/sql"
	"errors"
	"iter"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func TestFrameAppendAndRead(t *testing.T) {
	f := NewFrame("people")

	ids, err := f.Int32("Id", seq(some[int32](1), some[int32](2)))
	require.NoError(t, err)
	names, err := f.Text("Name", seq(some("A"), sql.Null[string]{}))
	require.NoError(t, err)

	require.NoError(t, f.Append(ids))
	require.NoError(t, f.Append(names))

	assert.Equal(t, 2, f.RowCount())
	assert.Equal(t, 2, f.ColumnCount())
	assert.Equal(t, []string{"Id", "Name"}, ColumnNames(f))
	assert.Equal(t, "people", f.Metadata()["name"])

	typ, err := f.ColumnType(1)
	require.NoError(t, err)
	assert.Equal(t, TypeString, typ)

	cell, err := f.Cell(1, 1)
	require.NoError(t, err)
	assert.True(t, cell.IsNull)

	row, err := f.Row(0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), row[0].Raw)
	assert.Equal(t, "A", row[1].Formatted)

	idx, err := ColumnIndex(f, "Name")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	_, err = ColumnIndex(f, "Missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestFrameBounds(t *testing.T) {
	f := NewFrame()
	_, err := f.Cell(0, 0)
	assert.ErrorIs(t, err, ErrInvalidColumn)
	_, err = f.Row(0)
	assert.ErrorIs(t, err, ErrInvalidRow)
	_, err = f.ColumnName(3)
	assert.ErrorIs(t, err, ErrInvalidColumn)
}

func TestFrameRejectsMismatchedColumns(t *testing.T) {
	f := NewFrame()
	a, err := f.Bool("A", seq(some(true)))
	require.NoError(t, err)
	require.NoError(t, f.Append(a))

	b, err := f.Bool("B", seq(some(true), some(false)))
	require.NoError(t, err)
	assert.ErrorIs(t, f.Append(b), ErrRowCountMismatch)

	dup, err := f.Bool("A", seq(some(false)))
	require.NoError(t, err)
	assert.ErrorIs(t, f.Append(dup), ErrDuplicateColumn)
	assert.Equal(t, 1, f.ColumnCount())
}

func TestFrameStopsOnSequenceError(t *testing.T) {
	boom := errors.New("boom")
	values := func(yield func(sql.Null[int64], error) bool) {
		if !yield(some[int64](1), nil) {
			return
		}
		yield(sql.Null[int64]{}, boom)
	}
	_, err := NewFrame().Int64("X", values)
	assert.ErrorIs(t, err, boom)
}

func TestValueFormatting(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		val  Value
		want string
	}{
		{"timestamp", NewValue(ts, TypeTimestamp), "2024-03-01T12:00:00Z"},
		{"decimal", NewValue(decimal.RequireFromString("12.50"), TypeDecimal), "12.5"},
		{"char", NewValue('x', TypeChar), "x"},
		{"int32", NewValue(int32('x'), TypeInt32), "120"},
		{"null", NewValue(nil, TypeString), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.val.Formatted)
		})
	}
	assert.True(t, NewValue(nil, TypeBool).IsNull)
}

func TestDataTypeString(t *testing.T) {
	assert.Equal(t, "Timestamp", TypeTimestamp.String())
	assert.Equal(t, "Unknown(99)", DataType(99).String())
	assert.True(t, TypeChar.IsScalar())
	assert.False(t, TypeEnum.IsScalar())
	assert.False(t, TypeStruct.IsScalar())
	assert.True(t, slices.ContainsFunc([]DataType{TypeInt8, TypeUint64}, DataType.IsInteger))
	assert.False(t, TypeFloat32.IsInteger())
}
