package newton

import "math"

// RootTable holds the d-th roots of unity, ordered by angle.
type RootTable struct {
	Real []float64
	Imag []float64
}

// BuildRootTable returns cos/sin of 2πk/degree for k in [0, degree).
// A non-positive degree yields an empty table.
func BuildRootTable(degree int) RootTable {
	if degree <= 0 {
		return RootTable{}
	}
	t := RootTable{
		Real: make([]float64, degree),
		Imag: make([]float64, degree),
	}
	for k := range degree {
		angle := 2 * math.Pi * float64(k) / float64(degree)
		t.Real[k] = math.Cos(angle)
		t.Imag[k] = math.Sin(angle)
	}
	return t
}

// Len is the number of roots in the table.
func (t RootTable) Len() int {
	return len(t.Real)
}
