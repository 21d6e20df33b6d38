package generic_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pd-rating/generic"
)

func rows(keys ...string) []generic.FloorRow[string] {
	out := make([]generic.FloorRow[string], len(keys))
	for i, k := range keys {
		out[i] = generic.FloorRow[string]{Key: generic.MustParseDecimal(k), Value: "row-" + k}
	}
	return out
}

func TestFloorTable_LargestKeyAtOrBelowTarget(t *testing.T) {
	// Rows deliberately unsorted; construction sorts them.
	table, err := generic.NewFloorTable("test", generic.RaiseOnMiss, rows("20", "0", "10", "15"))
	require.NoError(t, err)

	cases := []struct {
		target string
		want   string
	}{
		{"0", "row-0"},
		{"9.99", "row-0"},
		{"10", "row-10"},
		{"16.8", "row-15"},
		{"20", "row-20"},
		{"120", "row-20"},
	}
	for _, tc := range cases {
		row, err := table.Lookup(generic.MustParseDecimal(tc.target))
		require.NoError(t, err, tc.target)
		assert.Equal(t, tc.want, row.Value, "target %s", tc.target)
	}
}

func TestFloorTable_BelowAllKeys_RaiseOnMiss(t *testing.T) {
	table, err := generic.NewFloorTable("occupational", generic.RaiseOnMiss, rows("5", "10"))
	require.NoError(t, err)

	_, err = table.Lookup(decimal.NewFromInt(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrAdjustmentNotFound))

	var adjErr *generic.AdjustmentNotFoundError
	require.ErrorAs(t, err, &adjErr)
	assert.Equal(t, "occupational", adjErr.Table)
	assert.Equal(t, "2", adjErr.Key)
}

func TestFloorTable_BelowAllKeys_FallbackToNearest(t *testing.T) {
	table, err := generic.NewFloorTable("age", generic.FallbackToNearest, rows("5", "10"))
	require.NoError(t, err)

	row, err := table.Lookup(decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.Equal(t, "row-5", row.Value)
	assert.True(t, row.Key.Equal(decimal.NewFromInt(5)))
}

func TestFloorTable_EmptyAlwaysRaises(t *testing.T) {
	for _, policy := range []generic.MissPolicy{generic.RaiseOnMiss, generic.FallbackToNearest} {
		table, err := generic.NewFloorTable[string]("empty", policy, nil)
		require.NoError(t, err)

		_, err = table.Lookup(decimal.NewFromInt(1))
		assert.ErrorIs(t, err, generic.ErrAdjustmentNotFound, policy.String())
	}
}

func TestFloorTable_DuplicateKeyIsSchemaError(t *testing.T) {
	_, err := generic.NewFloorTable("dup", generic.RaiseOnMiss, rows("1", "2", "1.0"))
	assert.ErrorIs(t, err, generic.ErrTableSchema)
}

func TestClampAndRound(t *testing.T) {
	lo, hi := decimal.Zero, decimal.NewFromInt(3)
	assert.True(t, generic.Clamp(generic.Pct(5), lo, hi).Equal(hi))
	assert.True(t, generic.Clamp(generic.Pct(-1), lo, hi).Equal(lo))
	assert.True(t, generic.Clamp(generic.Pct(2.5), lo, hi).Equal(generic.Pct(2.5)))

	assert.Equal(t, "87.5", generic.Round2(generic.MustParseDecimal("87.500000")).String())
	assert.Equal(t, "33.34", generic.Round2(generic.MustParseDecimal("33.335")).String())
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, generic.IsNotFound(&generic.OccupationNotFoundError{Occupation: "astronaut"}))
	assert.True(t, generic.IsLookupFailure(&generic.VariantNotFoundError{Group: 380, ImpairmentCode: "00.00.00.00"}))
	assert.False(t, generic.IsLookupFailure(&generic.OccupationNotFoundError{}))
	assert.True(t, generic.IsClientError(&generic.InputError{Field: "age", Value: -1, Reason: "must not be negative"}))
	assert.False(t, generic.IsClientError(&generic.SchemaError{Table: "age_adjustment"}))
}

func TestParseMissPolicy(t *testing.T) {
	for _, p := range []generic.MissPolicy{generic.RaiseOnMiss, generic.FallbackToNearest} {
		got, err := generic.ParseMissPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := generic.ParseMissPolicy(" Raise_On_Miss ")
	require.NoError(t, err)
	assert.Equal(t, generic.RaiseOnMiss, got)

	_, err = generic.ParseMissPolicy("nearest")
	assert.True(t, generic.IsClientError(err))
}
