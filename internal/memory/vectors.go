package memory

import "math"

// NormalizeVectors returns L2-normalized copies of vs. Zero vectors are copied unchanged.
func NormalizeVectors(vs [][]float32) [][]float32 {
	out := make([][]float32, len(vs))
	for i, v := range vs {
		out[i] = normalize(v)
	}
	return out
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)

	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// ScaleToRange min-max rescales xs into [0, max]. When every value is equal the
// result is all zeros.
func ScaleToRange(xs []float64, max float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}

	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if hi <= lo {
		return out
	}
	for i, x := range xs {
		out[i] = max * (x - lo) / (hi - lo)
	}
	return out
}

func squaredL2(a, b []float32) float64 {
	var d float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		d += diff * diff
	}
	return d
}
