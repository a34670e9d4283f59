package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		wantOp  Op
		wantVer []float64
	}{
		{"default", OpDefault, nil},
		{"<6.0", OpLess, []float64{6.0}},
		{"<=6.0", OpLessEq, []float64{6.0}},
		{"=6.0", OpEqual, []float64{6.0}},
		{"==6.0", OpEqual, []float64{6.0}},
		{"<(2,1,3)", OpLess, []float64{2, 1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOp, r.Op)
			if tt.wantVer != nil {
				assert.Equal(t, tt.wantVer, r.Version)
			}
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse("~6.0")
	assert.Error(t, err)

	_, err = Parse("<abc")
	assert.Error(t, err)
}

func TestSatisfies(t *testing.T) {
	less, err := Parse("<6.0")
	require.NoError(t, err)
	def, err := Parse("default")
	require.NoError(t, err)

	assert.True(t, Satisfies(less, []float64{5, 9}))
	assert.False(t, Satisfies(less, []float64{6, 0}))
	assert.True(t, Satisfies(def, []float64{99}))
}

func TestLess_DefaultSortsLast(t *testing.T) {
	def, _ := Parse("default")
	six, _ := Parse("<6.0")

	assert.True(t, Less(six, def))
	assert.False(t, Less(def, six))
}

func TestSort(t *testing.T) {
	a, _ := Parse("<6.0")
	b, _ := Parse("default")
	c, _ := Parse("<2.0")

	sorted := Sort([]Relation{a, b, c})
	require.Len(t, sorted, 3)
	assert.Equal(t, []float64{2.0}, sorted[0].Version)
	assert.Equal(t, []float64{6.0}, sorted[1].Version)
	assert.Equal(t, OpDefault, sorted[2].Op)
}
