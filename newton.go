package newton

import (
	"errors"
	"fmt"
	"slices"
)

// MaxIterations caps the fixed-point iteration of a single pixel.
const MaxIterations = 500

// SupportedDegrees lists the polynomial degrees that have an update rule.
var SupportedDegrees = []int{1, 2, 5, 7}

var ErrInvalidParams = errors.New("invalid params")

// Params are the inputs of one render. Build once, pass by value.
type Params struct {
	Degree     int // degree d of z^d - 1
	Resolution int // image is Resolution x Resolution pixels
	Threads    int // number of worker goroutines
}

func (p Params) Validate() error {
	if !slices.Contains(SupportedDegrees, p.Degree) {
		return fmt.Errorf("%w: degree %d not in %v", ErrInvalidParams, p.Degree, SupportedDegrees)
	}
	if p.Resolution <= 0 {
		return fmt.Errorf("%w: resolution must be positive, got %d", ErrInvalidParams, p.Resolution)
	}
	if p.Threads <= 0 {
		return fmt.Errorf("%w: threads must be positive, got %d", ErrInvalidParams, p.Threads)
	}
	return nil
}

// Region of the complex plane covered by the image
type Region struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
}

// Plane is the square every render covers. Row 0 is the top edge (Im = Ymax).
var Plane = Region{
	Xmin: -2,
	Xmax: 2,
	Ymin: -2,
	Ymax: 2,
}

// Point maps pixel (col, row) of a res x res image to its starting value.
func (r Region) Point(col, row, res int) complex128 {
	re := r.Xmin + (r.Xmax-r.Xmin)*(float64(col)/float64(res))
	im := r.Ymax - (r.Ymax-r.Ymin)*float64(row)/float64(res)
	return complex(re, im)
}

// RootIndex identifies the root a pixel converged to.
// Negative values are sentinels, never table indexes.
type RootIndex int

const (
	// Unclassified pixels collapsed onto the origin or hit MaxIterations.
	Unclassified RootIndex = -1
	// Diverged pixels tripped the divergence threshold without matching a root.
	Diverged RootIndex = -2
)

// Valid reports whether i indexes a root of a degree-d table.
func (i RootIndex) Valid(degree int) bool {
	return i >= 0 && int(i) < degree
}

func (i RootIndex) String() string {
	switch i {
	case Unclassified:
		return "unclassified"
	case Diverged:
		return "diverged"
	}
	return fmt.Sprintf("root %d", int(i))
}

// Pixel is the outcome of iterating one starting value.
type Pixel struct {
	Root       RootIndex
	Iterations int
}

// Row is one computed image row, Pixels[col] for col in [0, resolution).
type Row struct {
	Index  int
	Pixels []Pixel
}
