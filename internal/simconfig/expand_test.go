package simconfig

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveSample(t *testing.T, config string) *Profile {
	t.Helper()
	doc, err := Parse(strings.NewReader(sampleIni))
	require.NoError(t, err)
	p, err := doc.Resolve(config)
	require.NoError(t, err)
	return p
}

func TestVariables(t *testing.T) {
	p := resolveSample(t, "HighTraffic")

	vars, err := p.Variables()
	require.NoError(t, err)
	require.Len(t, vars, 4)

	// Own keys come before inherited ones, so frameErrorRate is declared first.
	assert.Equal(t, "frameErrorRate", vars[0].Name)
	assert.Equal(t, []string{"0", "0.3", "0.5", "0.7"}, vars[0].Values)
	assert.Equal(t, "controller", vars[1].Name)
	assert.Equal(t, []string{`"CACC"`, `"PLOEG"`}, vars[1].Values)
	assert.Equal(t, "spacing", vars[2].Name)
	assert.Equal(t, "controller", vars[2].ParallelTo)
	assert.Equal(t, "mpr", vars[3].Name)
}

func TestExpandRunCount(t *testing.T) {
	p := resolveSample(t, "HighTraffic")

	runs, err := p.Expand(0)
	require.NoError(t, err)
	// 4 FER values x 2 controllers x 3 MPR values x repeat=2; the parallel
	// spacing variable adds no dimension.
	assert.Len(t, runs, 48)

	// Repetition is the innermost loop.
	assert.Equal(t, 0, runs[0].Repetition)
	assert.Equal(t, 1, runs[1].Repetition)
	assert.Equal(t, 0, runs[2].Repetition)

	// Run numbers are the linear index.
	for i, rp := range runs {
		assert.Equal(t, i, rp.RunNumber)
	}
}

func TestExpandRepeatOverride(t *testing.T) {
	p := resolveSample(t, "HighTraffic")

	runs, err := p.Expand(12)
	require.NoError(t, err)
	assert.Len(t, runs, 4*2*3*12)
	assert.Equal(t, 11, runs[11].Repetition)
	assert.Equal(t, 0, runs[12].Repetition)
}

func TestExpandParallelVariableTracksMaster(t *testing.T) {
	p := resolveSample(t, "HighTraffic")

	runs, err := p.Expand(1)
	require.NoError(t, err)
	for _, rp := range runs {
		switch rp.Assignment["controller"] {
		case `"CACC"`:
			assert.Equal(t, "5", rp.Assignment["spacing"])
		case `"PLOEG"`:
			assert.Equal(t, "2", rp.Assignment["spacing"])
		default:
			t.Fatalf("unexpected controller %q", rp.Assignment["controller"])
		}
	}
}

func TestExpandInterpolation(t *testing.T) {
	p := resolveSample(t, "HighTraffic")

	runs, err := p.Expand(1)
	require.NoError(t, err)

	rp := runs[0]
	assert.Equal(t, "0", rp.Assignment["frameErrorRate"])
	assert.Equal(t, `"CACC"`, rp.Assignment["controller"])
	assert.Equal(t, "0.1", rp.Assignment["mpr"])
	assert.Equal(t, `results/HighTraffic_"CACC"_mpr0.1_fer0_rep0.vec`, rp.VectorFile())
	assert.Equal(t, "0.1", rp.Values["**.mpr"])

	last := runs[len(runs)-1]
	assert.Equal(t, "0.7", last.Assignment["frameErrorRate"])
	assert.Equal(t, `"PLOEG"`, last.Assignment["controller"])
	assert.Equal(t, "1.0", last.Assignment["mpr"])
	assert.Equal(t, `results/HighTraffic_"PLOEG"_mpr1.0_fer0.7_rep0.vec`, last.VectorFile())
}

func TestExpandRange(t *testing.T) {
	doc, err := Parse(strings.NewReader("[General]\nx = ${n = 0..4 step 2}\n"))
	require.NoError(t, err)
	p, err := doc.Resolve(GeneralSection)
	require.NoError(t, err)

	vars, err := p.Variables()
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, []string{"0", "2", "4"}, vars[0].Values)
}

func TestExpandUnnamedVariable(t *testing.T) {
	doc, err := Parse(strings.NewReader("[General]\nx = ${1, 2, 3}\ny = ${0}m\n"))
	require.NoError(t, err)
	p, err := doc.Resolve(GeneralSection)
	require.NoError(t, err)

	runs, err := p.Expand(1)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "2", runs[1].Values["x"])
	// ${0} references the first unnamed variable.
	assert.Equal(t, "2m", runs[1].Values["y"])
}

func TestExpandErrors(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"undefined reference", "[General]\nx = ${nope}\n", "undefined variable"},
		{"parallel to unknown", "[General]\nx = ${a = 1, 2 ! ghost}\n", "unknown variable"},
		{"parallel size mismatch", "[General]\nx = ${a = 1, 2}\ny = ${b = 1, 2, 3 ! a}\n", "has 3 values"},
		{"redefinition", "[General]\nx = ${a = 1, 2}\ny = ${a = 3, 4}\n", "redefined"},
		{"unterminated", "[General]\nx = ${a = 1, 2\n", "unterminated"},
		{"zero step", "[General]\nx = ${a = 0..5 step 0}\n", "step"},
		{"bad repeat", "[General]\nrepeat = banana\nx = ${a = 1, 2}\n", "repeat"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Parse(strings.NewReader(tc.input))
			require.NoError(t, err)
			p, err := doc.Resolve(GeneralSection)
			require.NoError(t, err)
			_, err = p.Expand(0)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
