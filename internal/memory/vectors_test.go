package memory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVectors(t *testing.T) {
	in := [][]float32{{3, 4}, {0, 0}}
	out := NormalizeVectors(in)

	require.Len(t, out, 2)
	assert.InDelta(t, 0.6, out[0][0], 1e-6)
	assert.InDelta(t, 0.8, out[0][1], 1e-6)
	assert.Equal(t, []float32{0, 0}, out[1], "zero vectors pass through")
	assert.Equal(t, []float32{3, 4}, in[0], "input is not modified")
}

func TestScaleToRange(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		max  float64
		want []float64
	}{
		{name: "empty", in: nil, max: 1, want: []float64{}},
		{name: "degenerate", in: []float64{2, 2, 2}, max: 1, want: []float64{0, 0, 0}},
		{name: "unit", in: []float64{1, 3, 2}, max: 1, want: []float64{0, 1, 0.5}},
		{name: "wider range", in: []float64{-1, 1}, max: 10, want: []float64{0, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaleToRange(tt.in, tt.max)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}

func TestSquaredL2(t *testing.T) {
	assert.InDelta(t, 25.0, squaredL2([]float32{0, 0}, []float32{3, 4}), 1e-9)
	assert.False(t, math.IsNaN(squaredL2(nil, nil)))
}
