package factory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pd-rating/factory"
	"github.com/warp/pd-rating/generic"
	"github.com/warp/pd-rating/lookup"
	"github.com/warp/pd-rating/rating"
)

func TestParseJSON_OverlaysDefaults(t *testing.T) {
	f := factory.NewScheduleFactory()

	s, err := f.ParseJSON([]byte(`{"name": "2026", "weekly_rate": 300.5, "failure_policy": "lenient", "default_variant": "f"}`))
	require.NoError(t, err)

	assert.Equal(t, "2026", s.Name)
	assert.True(t, s.WeeklyRate.Equal(generic.MustParseDecimal("300.5")))
	assert.Equal(t, rating.Lenient, s.FailurePolicy)
	assert.Equal(t, lookup.Variant("F"), s.DefaultVariant)

	// Untouched fields keep the defaults.
	def := rating.DefaultSchedule()
	assert.True(t, s.Multiplier.Equal(def.Multiplier))
	assert.Len(t, s.Tiers, len(def.Tiers))
	assert.True(t, s.LifePension.MaxEarnings.Equal(def.LifePension.MaxEarnings))
}

func TestParseYAML_Tiers(t *testing.T) {
	f := factory.NewScheduleFactory()

	s, err := f.ParseYAML([]byte(`
name: flat
tiers:
  - below: 50
    multiplier: 3
top_multiplier: 4
life_pension:
  threshold: 80
`))
	require.NoError(t, err)

	assert.True(t, s.Weeks(generic.MustParseDecimal("20")).Equal(generic.MustParseDecimal("60")))
	assert.True(t, s.Weeks(generic.MustParseDecimal("50")).Equal(generic.MustParseDecimal("200")))
	assert.Nil(t, s.LifePensionFor(generic.MustParseDecimal("75")))
	assert.NotNil(t, s.LifePensionFor(generic.MustParseDecimal("80")))
}

func TestBuild_Rejects(t *testing.T) {
	f := factory.NewScheduleFactory()

	_, err := f.ParseJSON([]byte(`{"failure_policy": "sometimes"}`))
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	_, err = f.ParseJSON([]byte(`{"default_variant": "Q"}`))
	assert.Error(t, err)

	_, err = f.ParseJSON([]byte(`{"tiers": [{"below": 20, "multiplier": 5}, {"below": 10, "multiplier": 4}]}`))
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	_, err = f.ParseJSON([]byte(`{"multiplier": 0}`))
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	_, err = f.ParseJSON([]byte(`{"miss_policies": {"age": "nearest"}}`))
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
	assert.ErrorContains(t, err, "miss_policies.age")

	_, err = f.ParseJSON([]byte(`{not json`))
	assert.Error(t, err)
}

func TestBuiltins_MatchDefault(t *testing.T) {
	f := factory.NewScheduleFactory()
	assert.Equal(t, []string{"default", "lenient"}, factory.Builtins())

	s, err := f.LoadBuiltin("default")
	require.NoError(t, err)
	def := rating.DefaultSchedule()
	assert.True(t, s.WeeklyRate.Equal(def.WeeklyRate))
	assert.True(t, s.Multiplier.Equal(def.Multiplier))
	require.Len(t, s.Tiers, len(def.Tiers))
	for i := range def.Tiers {
		assert.True(t, s.Tiers[i].Below.Equal(def.Tiers[i].Below), "tier %d", i)
	}
	assert.Equal(t, rating.Strict, s.FailurePolicy)
	assert.Equal(t, def.MissPolicies, s.MissPolicies)

	s, err = f.LoadBuiltin("lenient")
	require.NoError(t, err)
	assert.Equal(t, rating.Lenient, s.FailurePolicy)
	assert.Equal(t, lookup.DefaultMissPolicies(), s.MissPolicies)

	_, err = f.LoadBuiltin("nope")
	assert.Error(t, err)
}

func TestLoadFile_ByExtension(t *testing.T) {
	dir := t.TempDir()
	f := factory.NewScheduleFactory()

	jsonPath := filepath.Join(dir, "s.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"weekly_rate": 310}`), 0o644))
	s, err := f.LoadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, s.WeeklyRate.Equal(generic.MustParseDecimal("310")))

	yamlPath := filepath.Join(dir, "s.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("weekly_rate: 320\n"), 0o644))
	s, err = f.LoadFile(yamlPath)
	require.NoError(t, err)
	assert.True(t, s.WeeklyRate.Equal(generic.MustParseDecimal("320")))

	_, err = f.LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestToJSON_RoundTripsThroughBuild(t *testing.T) {
	f := factory.NewScheduleFactory()
	def := rating.DefaultSchedule()

	s, err := f.Build(factory.ToJSON(def))
	require.NoError(t, err)
	assert.True(t, s.LifePension.MaxEarnings.Equal(def.LifePension.MaxEarnings))
	assert.True(t, s.Tiers[1].Below.Equal(def.Tiers[1].Below))
	assert.Equal(t, def.MissPolicies, s.MissPolicies)
}

func TestParseYAML_MissPoliciesPerTable(t *testing.T) {
	f := factory.NewScheduleFactory()

	// GIVEN: only the occupational table raises on a miss
	s, err := f.ParseYAML([]byte(`
name: exact-occupational
miss_policies:
  occupational: raise_on_miss
`))
	require.NoError(t, err)

	// THEN: the age table keeps its default
	assert.Equal(t, lookup.MissPolicies{
		Occupational: generic.RaiseOnMiss,
		Age:          generic.FallbackToNearest,
	}, s.MissPolicies)

	sj := factory.ToJSON(s)
	require.NotNil(t, sj.MissPolicies)
	assert.Equal(t, "raise_on_miss", sj.MissPolicies.Occupational)
	assert.Equal(t, "fallback_to_nearest", sj.MissPolicies.Age)
}
