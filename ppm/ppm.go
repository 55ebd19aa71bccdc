// Package ppm encodes computed rows into the two binary PPM (P6) images of a
// render: the attractor map, coloured by root, and the convergence map, shaded by
// iteration count.
package ppm

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	newton "github.com/marben/newton_attractors"
)

const (
	AttractorsMaxval  = 255
	ConvergenceMaxval = 75
)

var ErrWrite = errors.New("image write failed")

// Palette colours the attractor map. Entry 0 is for pixels that reached no root,
// entry k+1 for root k.
var Palette = [8]color.RGBA{
	{0, 0, 0, 255},
	{255, 0, 0, 255},
	{0, 255, 255, 255},
	{0, 255, 0, 255},
	{255, 145, 0, 255},
	{255, 0, 255, 255},
	{0, 125, 255, 255},
	{255, 255, 0, 255},
}

// AttractorColor maps a root index to its palette entry.
func AttractorColor(root newton.RootIndex) color.RGBA {
	i := int(root) + 1
	if root < 0 || i >= len(Palette) {
		return Palette[0]
	}
	return Palette[i]
}

// ConvergenceLevel is the grey level of a pixel that took iter iterations.
func ConvergenceLevel(iter int) uint8 {
	return uint8(max(0, min(iter, 255)))
}

func AttractorsName(degree int) string {
	return fmt.Sprintf("newton_attractors_x%d.ppm", degree)
}

func ConvergenceName(degree int) string {
	return fmt.Sprintf("newton_convergence_x%d.ppm", degree)
}

// WriteHeader writes a P6 header for a width x height image.
func WriteHeader(w io.Writer, width, height, maxval int) error {
	if _, err := fmt.Fprintf(w, "P6\n%d %d\n%d\n", width, height, maxval); err != nil {
		return fmt.Errorf("%w: header: %w", ErrWrite, err)
	}
	return nil
}

// EncodeAttractors writes the RGB triples of pixels into dst, which must hold
// 3*len(pixels) bytes.
func EncodeAttractors(dst []byte, pixels []newton.Pixel) {
	for i, px := range pixels {
		c := AttractorColor(px.Root)
		dst[3*i] = c.R
		dst[3*i+1] = c.G
		dst[3*i+2] = c.B
	}
}

// EncodeConvergence writes grey triples of pixels into dst, which must hold
// 3*len(pixels) bytes.
func EncodeConvergence(dst []byte, pixels []newton.Pixel) {
	for i, px := range pixels {
		v := ConvergenceLevel(px.Iterations)
		dst[3*i] = v
		dst[3*i+1] = v
		dst[3*i+2] = v
	}
}
