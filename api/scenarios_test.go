package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListScenarios(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/scenarios", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]ScenarioDTO](t, rec)
	require.Len(t, got, len(scenarios))
	for _, s := range got {
		assert.NotEmpty(t, s.ID)
		assert.NotEmpty(t, s.Request.Impairments, s.ID)
	}
}

func TestRunScenario_AllRateUnderStrictPolicy(t *testing.T) {
	srv := newTestServer(t)

	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/scenarios/"+s.ID+"/run", "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			dto := decode[RatingDTO](t, rec)
			assert.Greater(t, dto.NoApportionment.Percent, 0.0)
			assert.Len(t, dto.Impairments, len(s.Request.Impairments))
			assert.Contains(t, dto.Report, "Combined Rating")
			for _, imp := range dto.Impairments {
				assert.Empty(t, imp.Skipped)
				assert.Empty(t, imp.Substitutions)
			}
		})
	}
}

func TestRunScenario_Features(t *testing.T) {
	srv := newTestServer(t)
	run := func(id string) RatingDTO {
		rec := do(t, srv, http.MethodPost, "/api/scenarios/"+id+"/run", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[RatingDTO](t, rec)
	}

	single := run("single-impairment")
	assert.Equal(t, 19.0, single.NoApportionment.Percent)
	assert.Equal(t, 27550.0, single.NoApportionment.Payout)

	multi := run("multi-impairment")
	assert.Len(t, multi.NoApportionment.CombinationSteps, 1)

	apportioned := run("apportionment")
	assert.Equal(t, 49, apportioned.Age)
	require.NotNil(t, apportioned.WithApportionment)
	assert.Less(t, apportioned.WithApportionment.Percent, apportioned.NoApportionment.Percent)

	pension := run("life-pension")
	assert.GreaterOrEqual(t, pension.NoApportionment.Percent, 70.0)
	require.NotNil(t, pension.NoApportionment.LifePension)
	assert.Contains(t, pension.Report, "Life Pension Weekly Rate $85.00")

	fallback := run("extremity-fallback")
	assert.Equal(t, "ARM", fallback.Impairments[0].VariantRow)
	assert.Equal(t, "D", fallback.Impairments[0].Variant)
}

func TestRunScenario_TextFormat(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/scenarios/apportionment/run?format=text", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "NO APPORTIONMENT"))
	assert.Contains(t, body, "WITH APPORTIONMENT")
	assert.Contains(t, body, "Age on DOI 49")
}

func TestRunScenario_NotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/scenarios/nope/run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
