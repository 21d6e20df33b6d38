package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pd-rating/api"
)

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// =============================================================================
// RATE
// =============================================================================

func TestRate_Flags(t *testing.T) {
	// GIVEN: the seed carpenter with one lumbar impairment
	code, out, errOut := runCmd(t, "rate", "--occupation", "Carpenter", "--age", "45", "-i", "lumbar spine=10,2")

	// THEN: the rating sheet shows the combined rating
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "15.03.02.05 - 10 - [1.4]17 - 380H - 19%")
	assert.Contains(t, out, "Combined Rating 19%")
}

func TestRate_JSON(t *testing.T) {
	code, out, errOut := runCmd(t, "rate", "--occupation", "380H", "--age", "45", "-i", "lumbar spine=10,2", "--format", "json")
	require.Equal(t, 0, code, errOut)

	var dto api.RatingDTO
	require.NoError(t, json.Unmarshal([]byte(out), &dto))
	assert.Equal(t, 380, dto.Group)
	assert.Equal(t, 19.0, dto.NoApportionment.Percent)
	assert.Equal(t, 95.0, dto.NoApportionment.Weeks)
	assert.Nil(t, dto.WithApportionment)
}

func TestRate_RequestFile(t *testing.T) {
	// GIVEN: the request body the API accepts, written to a file
	req := api.RatingRequest{
		Occupation:  "Carpenter",
		Age:         api.Ptr(45),
		Impairments: []api.ImpairmentDTO{{BodyPart: "Lumbar spine", WPI: api.Ptr(10.0), PainAddon: 2}},
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	code, out, errOut := runCmd(t, "rate", path)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Combined Rating 19%")
}

func TestRate_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"bad format", []string{"rate", "--occupation", "Carpenter", "--age", "45", "-i", "lumbar=10", "--format", "xml"}, 2},
		{"bad impairment", []string{"rate", "--occupation", "Carpenter", "--age", "45", "-i", "lumbar"}, 2},
		{"missing file", []string{"rate", filepath.Join(os.TempDir(), "pdrate-missing.json")}, 2},
		{"unknown occupation", []string{"rate", "--occupation", "Astronaut", "--age", "45", "-i", "lumbar=10"}, 4},
		{"missing age", []string{"rate", "--occupation", "Carpenter", "-i", "lumbar=10"}, 2},
		{"missing wpi in file", []string{"rate", "testdata/no-wpi.json"}, 2},
		{"no impairments", []string{"rate", "--occupation", "Carpenter", "--age", "45"}, 4},
		{"bad source", []string{"rate", "--source", "ftp"}, 3},
		{"bad policy", []string{"rate", "--policy", "lax"}, 3},
		{"postgres without dsn", []string{"rate", "--source", "postgres", "--postgres", ""}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCmd(t, tt.args...)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, errOut)
		})
	}
}

func TestParseImpairment(t *testing.T) {
	tests := []struct {
		in      string
		want    api.ImpairmentDTO
		wantErr bool
	}{
		{in: "lumbar spine=10", want: api.ImpairmentDTO{BodyPart: "lumbar spine", WPI: api.Ptr(10.0)}},
		{in: "left knee = 20, 1, 25", want: api.ImpairmentDTO{BodyPart: "left knee", WPI: api.Ptr(20.0), PainAddon: 1, ApportionmentPercent: 25}},
		{in: "hip=7.5,0.5", want: api.ImpairmentDTO{BodyPart: "hip", WPI: api.Ptr(7.5), PainAddon: 0.5}},
		{in: "knee", wantErr: true},
		{in: "=10", wantErr: true},
		{in: "knee=ten", wantErr: true},
		{in: "knee=1,2,3,4", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseImpairment(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func TestOccupations(t *testing.T) {
	code, out, errOut := runCmd(t, "occupations", "driver", "--limit", "2")
	require.Equal(t, 0, code, errOut)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "OCCUPATION")
	assert.Contains(t, lines[1], "Bus Driver")
	assert.Contains(t, lines[2], "Taxi Driver")
}

func TestResolve(t *testing.T) {
	code, out, _ := runCmd(t, "resolve", "carpenter")
	require.Equal(t, 0, code)
	assert.Equal(t, "380\n", out)

	code, _, errOut := runCmd(t, "resolve", "astronaut")
	assert.Equal(t, 4, code)
	assert.Contains(t, errOut, "astronaut")
}

func TestVariant(t *testing.T) {
	code, out, errOut := runCmd(t, "variant", "380", "lumbar spine")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "380H 15.03.02.05 (SPINE row of variants_2)\n", out)

	// WHEN: an occupation is given instead of a group
	code, out, errOut = runCmd(t, "variant", "Accountant", "left shoulder")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "110D")
	assert.Contains(t, out, "extremity fallback")
}

func TestImportExport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "reference.db")
	export := filepath.Join(dir, "export")

	// GIVEN: the seed written out as CSV
	code, out, errOut := runCmd(t, "export", export)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "occupations.csv: 51 rows")
	for _, name := range []string{"occupations", "variants", "variants_2", "occupational_adjustments", "age_adjustment"} {
		assert.FileExists(t, filepath.Join(export, name+".csv"))
	}

	// WHEN: the export is imported into an empty database
	code, out, errOut = runCmd(t, "import", "--source", "sqlite", "--db", db, "--data", export)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "occupations: 51 rows")
	assert.Contains(t, out, "age_adjustment: 101 rows")

	// THEN: a second import leaves the tables alone
	code, out, _ = runCmd(t, "import", "--source", "sqlite", "--db", db)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "already populated")

	// AND: the database rates like the seed
	code, out, errOut = runCmd(t, "rate", "--source", "sqlite", "--db", db, "--seed=false",
		"--occupation", "Carpenter", "--age", "45", "-i", "lumbar spine=10,2")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Combined Rating 19%")

	// AND: replace rewrites every table
	code, out, _ = runCmd(t, "import", "--source", "sqlite", "--db", db, "--replace")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "variants_2:")
}

func TestImport_RequiresDatabase(t *testing.T) {
	code, _, errOut := runCmd(t, "import")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "sqlite or postgres")
}

func TestSchedules(t *testing.T) {
	code, out, _ := runCmd(t, "schedules")
	require.Equal(t, 0, code)
	assert.Equal(t, "* default\n  lenient\n", out)

	code, out, errOut := runCmd(t, "schedules", "--show", "--schedule", "lenient")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "name: lenient")
	assert.Contains(t, out, "failure_policy: lenient")
}
