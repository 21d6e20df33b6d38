package rating_test

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pd-rating/generic"
	"github.com/warp/pd-rating/lookup"
	"github.com/warp/pd-rating/rating"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newEngine(t *testing.T, tables *lookup.Tables, s rating.Schedule, opts ...rating.Option) *rating.Engine {
	t.Helper()
	opts = append([]rating.Option{rating.WithIDFunc(func() string { return "test-id" })}, opts...)
	e, err := rating.NewEngine(tables, s, opts...)
	require.NoError(t, err)
	return e
}

func lenientSchedule() rating.Schedule {
	s := rating.DefaultSchedule()
	s.FailurePolicy = rating.Lenient
	return s
}

// strictDataset has one carpenter group and adjustment tables that start
// at 10%, so anything rated below that misses under RaiseOnMiss.
func strictDataset() lookup.Dataset {
	ageRow := func(key, value string) lookup.AgeRow {
		r := lookup.AgeRow{WPI: d(key), Values: map[lookup.AgeBracket]decimal.Decimal{}}
		for _, b := range lookup.AgeBrackets {
			r.Values[b] = d(value)
		}
		return r
	}
	ds := lookup.Dataset{
		Occupations: []lookup.Occupation{{Group: 380, Title: "Carpenter"}},
		Variants: lookup.VariantPartition{
			Name:   lookup.PartitionLow,
			Groups: []int{214},
			Rows: []lookup.VariantRow{
				{BodyPart: "SPINE", ImpairmentCode: "15.03.02.05", Groups: map[int]lookup.Variant{214: "F"}},
			},
		},
		Variants2: lookup.VariantPartition{
			Name:   lookup.PartitionHigh,
			Groups: []int{380},
			Rows: []lookup.VariantRow{
				{BodyPart: "SPINE", ImpairmentCode: "15.03.02.05", Groups: map[int]lookup.Variant{380: "H"}},
			},
		},
		Occupational: []lookup.OccupationalRow{
			{Rating: d("10"), Values: map[lookup.Variant]decimal.Decimal{"H": d("12"), "G": d("10")}},
			{Rating: d("20"), Values: map[lookup.Variant]decimal.Decimal{"H": d("24"), "G": d("20")}},
		},
		Age: []lookup.AgeRow{ageRow("10", "11"), ageRow("20", "22")},
	}
	return ds
}

func strictTables(t *testing.T) *lookup.Tables {
	t.Helper()
	tables, err := lookup.BuildWithPolicies(strictDataset(), lookup.MissPolicies{
		Occupational: generic.RaiseOnMiss,
		Age:          generic.RaiseOnMiss,
	})
	require.NoError(t, err)
	return tables
}

func req(occupation string, age int, imps ...rating.Impairment) rating.Request {
	return rating.Request{
		Claimant:    rating.Claimant{Occupation: occupation, Age: age},
		Impairments: imps,
	}
}

// =============================================================================
// END TO END
// =============================================================================

func TestCompute_SingleImpairment(t *testing.T) {
	e := newEngine(t, seedTables(t), rating.DefaultSchedule())

	// GIVEN: encoded occupation, the trailing letter is ignored
	res, err := e.Compute(context.Background(), req("380H", 45, imp("lumbar spine", 10, 2, 0)))
	require.NoError(t, err)

	// THEN: N=1 combine is the impairment's age-adjusted WPI
	assert.Equal(t, "test-id", res.ID)
	assert.Equal(t, 380, res.Group)
	assert.Equal(t, 45, res.Age)
	assert.Equal(t, rating.Strict, res.Policy)
	require.Len(t, res.Records, 1)
	assertDecimal(t, "19", res.Records[0].AgeAdjustedWPI)

	na := res.NoApportionment
	assertDecimal(t, "19", na.Percent)
	assertDecimal(t, "95", na.Weeks)
	assertDecimal(t, "290", na.WeeklyRate)
	assertDecimal(t, "27550", na.Payout)
	assert.Nil(t, na.LifePension)
	assert.Nil(t, res.WithApportionment)

	assert.Equal(t, []string{"15.03.02.05 - 10 - [1.4]17 - 380H - 19%"}, res.Breakdown())
}

func TestCompute_ResolvesOccupationText(t *testing.T) {
	e := newEngine(t, seedTables(t), rating.DefaultSchedule())

	for _, occ := range []string{"Carpenter", "carpenter helper"} {
		res, err := e.Compute(context.Background(), req(occ, 45, imp("lumbar spine", 10, 2, 0)))
		require.NoError(t, err, occ)
		assert.Equal(t, 380, res.Group, occ)
		assertDecimal(t, "19", res.NoApportionment.Percent, occ)
	}
}

func TestCompute_WithApportionment(t *testing.T) {
	e := newEngine(t, seedTables(t), rating.DefaultSchedule())

	// GIVEN: lumbar 10+2 (-> 19) and knee 20+1 at 25% apportionment (-> 36, 27)
	res, err := e.Compute(context.Background(), req("380H", 45,
		imp("lumbar spine", 10, 2, 0),
		imp("left knee", 20, 1, 25),
	))
	require.NoError(t, err)

	knee := res.Records[1]
	assert.Equal(t, "17.05.00.00 - 20 - [1.4]29 - 380I - 36%", knee.Breakdown())
	assertDecimal(t, "27", knee.ApportionedWPI)

	// THEN: no apportionment combines 19 C 36
	na := res.NoApportionment
	assertDecimal(t, "48.16", na.Percent)
	assertDecimal(t, "337.12", na.Weeks)
	assertDecimal(t, "97764.8", na.Payout)

	// AND: with apportionment combines 19 C 27
	require.NotNil(t, res.WithApportionment)
	wa := res.WithApportionment
	assertDecimal(t, "40.87", wa.Percent)
	assertDecimal(t, "286.09", wa.Weeks)
	assertDecimal(t, "82966.1", wa.Payout)

	assertDecimal(t, "3", res.TotalPainAddon())
}

func TestCompute_InputOrderPreserved(t *testing.T) {
	e := newEngine(t, seedTables(t), rating.DefaultSchedule(), rating.WithWorkers(8))

	imps := []rating.Impairment{
		imp("lumbar spine", 10, 2, 0),
		imp("left knee", 20, 1, 0),
		imp("right shoulder", 8, 0, 0),
		imp("jaw", 5, 0, 0),
		imp("left wrist", 12, 0, 0),
	}
	res, err := e.Compute(context.Background(), req("380H", 45, imps...))
	require.NoError(t, err)

	require.Len(t, res.Records, len(imps))
	for i, rec := range res.Records {
		assert.Equal(t, imps[i].BodyPart, rec.BodyPart)
	}

	// Same input, one worker: identical result.
	serial := newEngine(t, seedTables(t), rating.DefaultSchedule(), rating.WithWorkers(1))
	res2, err := serial.Compute(context.Background(), req("380H", 45, imps...))
	require.NoError(t, err)
	assert.True(t, res.NoApportionment.Percent.Equal(res2.NoApportionment.Percent))
	assert.Equal(t, res.Breakdown(), res2.Breakdown())
}

func TestCompute_AgeFromDates(t *testing.T) {
	e := newEngine(t, seedTables(t), rating.DefaultSchedule())

	r := req("380H", 0, imp("lumbar spine", 10, 2, 0))
	r.Claimant.DateOfBirth = "1980-06-15"
	r.Claimant.DateOfInjury = "2025-06-15"
	res, err := e.Compute(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 45, res.Age)

	r.Claimant.DateOfInjury = "2025-06-14"
	res, err = e.Compute(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 44, res.Age)

	r.Claimant.DateOfInjury = "06/14/2025"
	_, err = e.Compute(context.Background(), r)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	r.Claimant.DateOfInjury = "1979-01-01"
	_, err = e.Compute(context.Background(), r)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

// =============================================================================
// ERRORS AND FAILURE POLICY
// =============================================================================

func TestCompute_InputErrors(t *testing.T) {
	e := newEngine(t, seedTables(t), rating.DefaultSchedule())
	ctx := context.Background()

	_, err := e.Compute(ctx, req("380H", 45))
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	_, err = e.Compute(ctx, req("380H", 45, imp("lumbar spine", 120, 0, 0)))
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	_, err = e.Compute(ctx, req("380H", -2, imp("lumbar spine", 10, 0, 0)))
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestCompute_OccupationNotFoundUnderEitherPolicy(t *testing.T) {
	for _, s := range []rating.Schedule{rating.DefaultSchedule(), lenientSchedule()} {
		e := newEngine(t, seedTables(t), s)
		_, err := e.Compute(context.Background(), req("astronaut", 45, imp("lumbar spine", 10, 0, 0)))
		assert.ErrorIs(t, err, generic.ErrOccupationNotFound, s.FailurePolicy)
	}
}

func TestCompute_StrictAbortsBatch(t *testing.T) {
	e := newEngine(t, seedTables(t), rating.DefaultSchedule())

	_, err := e.Compute(context.Background(), req("380H", 45,
		imp("lumbar spine", 10, 2, 0),
		imp("tinnitus", 5, 0, 0),
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrVariantNotFound)
	assert.True(t, generic.IsNotFound(err))
	assert.Contains(t, err.Error(), "impairment 2 (tinnitus)")
}

func TestCompute_LenientSubstitutesDefaultVariant(t *testing.T) {
	var logs bytes.Buffer
	e := newEngine(t, seedTables(t), lenientSchedule(), rating.WithLogger(log.New(&logs, "", 0)))

	res, err := e.Compute(context.Background(), req("380H", 45,
		imp("lumbar spine", 10, 2, 0),
		imp("tinnitus", 5, 0, 0),
	))
	require.NoError(t, err)
	assert.Equal(t, rating.Lenient, res.Policy)

	sub := res.Records[1]
	assert.Equal(t, lookup.Variant("G"), sub.Variant)
	assert.Contains(t, sub.Breakdown(), "[default variant G")

	// 19 C 7
	assertDecimal(t, "24.67", res.NoApportionment.Percent)
	assertDecimal(t, "123.35", res.NoApportionment.Weeks)
	assert.Contains(t, logs.String(), "default variant G")
}

func TestCompute_StrictAdjustmentMiss(t *testing.T) {
	e := newEngine(t, strictTables(t), rating.DefaultSchedule())

	_, err := e.Compute(context.Background(), req("380H", 45,
		imp("lumbar spine", 2, 0, 0), // 2.8 is below every occupational key
		imp("lumbar spine", 10, 0, 0),
	))
	assert.ErrorIs(t, err, generic.ErrAdjustmentNotFound)
}

func TestCompute_LenientSkipsAdjustmentMiss(t *testing.T) {
	var logs bytes.Buffer
	e := newEngine(t, strictTables(t), lenientSchedule(), rating.WithLogger(log.New(&logs, "", 0)))

	res, err := e.Compute(context.Background(), req("Carpenter", 45,
		imp("lumbar spine", 2, 0, 0),
		imp("lumbar spine", 10, 0, 0), // 14 -> row 10 H=12 -> age row 10 = 11
	))
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.NotEmpty(t, res.Records[0].Skipped)
	assert.Contains(t, res.Records[0].Breakdown(), "skipped")
	assert.Empty(t, res.Records[1].Skipped)

	assert.Len(t, res.Rated(), 1)
	assertDecimal(t, "11", res.NoApportionment.Percent)
	assertDecimal(t, "55", res.NoApportionment.Weeks)
	assert.Contains(t, logs.String(), "skipped 15.03.02.05")
}

func TestCompute_LenientNothingSurvives(t *testing.T) {
	e := newEngine(t, strictTables(t), lenientSchedule(), rating.WithLogger(log.New(&bytes.Buffer{}, "", 0)))

	_, err := e.Compute(context.Background(), req("380H", 45,
		imp("lumbar spine", 1, 0, 0),
		imp("lumbar spine", 2, 0, 0),
	))
	assert.ErrorIs(t, err, generic.ErrAdjustmentNotFound)
}

func TestCompute_CancelledContext(t *testing.T) {
	e := newEngine(t, seedTables(t), rating.DefaultSchedule())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Compute(ctx, req("380H", 45, imp("lumbar spine", 10, 0, 0)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEngine_Validates(t *testing.T) {
	_, err := rating.NewEngine(nil, rating.DefaultSchedule())
	assert.Error(t, err)

	s := rating.DefaultSchedule()
	s.Multiplier = d("-1")
	_, err = rating.NewEngine(seedTables(t), s)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestLoad_FromSource(t *testing.T) {
	e, err := rating.Load(context.Background(), lookup.SeedSource(), rating.DefaultSchedule())
	require.NoError(t, err)
	assert.Equal(t, 51, e.Tables().Stats().Occupations)
}

func TestLoad_UsesScheduleMissPolicies(t *testing.T) {
	ctx := context.Background()
	src := lookup.Static{Dataset: strictDataset()}
	claim := req("Carpenter", 45,
		imp("lumbar spine", 2, 0, 0),  // 2.8 is below the first occupational row
		imp("lumbar spine", 10, 0, 0), // 14 -> 12 -> 11
	)

	// GIVEN: the default schedule falls back in both tables
	e, err := rating.Load(ctx, src, lenientSchedule(), rating.WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	require.NoError(t, err)
	assert.Equal(t, lookup.DefaultMissPolicies(), e.Tables().MissPolicies())

	res, err := e.Compute(ctx, claim)
	require.NoError(t, err)
	assert.Len(t, res.Rated(), 2)

	// WHEN: the schedule raises on occupational misses only
	s := lenientSchedule()
	s.MissPolicies = lookup.MissPolicies{Occupational: generic.RaiseOnMiss, Age: generic.FallbackToNearest}
	e, err = rating.Load(ctx, src, s, rating.WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	require.NoError(t, err)
	assert.Equal(t, s.MissPolicies, e.Tables().MissPolicies())

	// THEN: the low impairment is skipped and the other still rates
	res, err = e.Compute(ctx, claim)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Contains(t, res.Records[0].Skipped, lookup.TableOccupational)
	assertDecimal(t, "11", res.NoApportionment.Percent)
}
