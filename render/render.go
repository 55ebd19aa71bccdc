// Package render iterates the Newton fixed-point map for every pixel of an image row
// and classifies which root of z^d - 1 the pixel is attracted to.
package render

import (
	"math"

	newton "github.com/marben/newton_attractors"
)

const (
	originEpsilon   = 1e-6 // |z|² below this collapses onto the origin
	circleTolerance = 1e-3 // ||z|² - 1| below this is "near the unit circle"
	rootEpsilon     = 1e-6 // squared distance that counts as reaching a root
	divergenceLimit = 1e9
)

// Solver computes rows for one set of params. It holds no mutable state and is
// safe to share between goroutines.
type Solver struct {
	degree int
	res    int
	roots  newton.RootTable
	region newton.Region
}

func NewSolver(p newton.Params, roots newton.RootTable) Solver {
	return Solver{
		degree: p.Degree,
		res:    p.Resolution,
		roots:  roots,
		region: newton.Plane,
	}
}

// SolveRow implements newton.RowSolver.
func (s Solver) SolveRow(row int) newton.Row {
	out := newton.Row{
		Index:  row,
		Pixels: make([]newton.Pixel, s.res),
	}
	for col := range s.res {
		out.Pixels[col] = s.solvePixel(s.region.Point(col, row, s.res))
	}
	return out
}

var _ newton.RowSolver = Solver{}

func (s Solver) solvePixel(z complex128) newton.Pixel {
	for iter := range newton.MaxIterations {
		re, im := real(z), imag(z)
		norm := re*re + im*im
		if norm < originEpsilon {
			return newton.Pixel{Root: newton.Unclassified, Iterations: iter}
		}
		if math.Abs(norm-1) < circleTolerance {
			if root, ok := s.classify(re, im); ok {
				return newton.Pixel{Root: root, Iterations: iter}
			}
		}
		z = step(s.degree, z, norm)
	}
	return newton.Pixel{Root: newton.Unclassified, Iterations: newton.MaxIterations}
}

// classify checks a point near the unit circle against the divergence limit and
// every tabulated root.
func (s Solver) classify(re, im float64) (newton.RootIndex, bool) {
	if re > divergenceLimit || im > divergenceLimit {
		return newton.Diverged, true
	}
	for k := range s.roots.Len() {
		dre := re - s.roots.Real[k]
		dim := im - s.roots.Imag[k]
		if dre*dre+dim*dim < rootEpsilon {
			return newton.RootIndex(k), true
		}
	}
	return 0, false
}

// step applies the update rule for degree. norm is |z|² and is never zero here.
// Degrees without a rule leave z unchanged.
func step(degree int, z complex128, norm float64) complex128 {
	// 1/z computed component-wise
	inv := complex(real(z)/norm, -imag(z)/norm)

	switch degree {
	case 1:
		return 1
	case 2:
		return 0.5 * (inv + z)
	case 5:
		inv2 := inv * inv
		return 0.2*(inv2*inv2) + 0.8*z
	case 7:
		inv3 := inv * inv * inv
		return (1.0/7.0)*(inv3*inv3) + (6.0/7.0)*z
	}
	return z
}
