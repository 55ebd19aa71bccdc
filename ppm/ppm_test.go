package ppm

import (
	"bytes"
	"errors"
	"testing"

	newton "github.com/marben/newton_attractors"
)

func TestWriteHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHeader(&buf, 4, 3, ConvergenceMaxval); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "P6\n4 3\n75\n"; got != want {
		t.Fatalf("header %q, want %q", got, want)
	}
}

func TestWriteHeaderError(t *testing.T) {
	if err := WriteHeader(failingWriter{}, 1, 1, 255); !errors.Is(err, ErrWrite) {
		t.Fatalf("WriteHeader() = %v, want ErrWrite", err)
	}
}

func TestAttractorColor(t *testing.T) {
	tests := []struct {
		root newton.RootIndex
		want int
	}{
		{newton.Unclassified, 0},
		{newton.Diverged, 0},
		{0, 1},
		{2, 3},
		{6, 7},
		{7, 0},
	}
	for _, tt := range tests {
		if got := AttractorColor(tt.root); got != Palette[tt.want] {
			t.Errorf("AttractorColor(%v) = %v, want palette[%d]", tt.root, got, tt.want)
		}
	}
}

func TestPaletteDistinct(t *testing.T) {
	seen := map[[3]uint8]int{}
	for i, c := range Palette {
		key := [3]uint8{c.R, c.G, c.B}
		if j, dup := seen[key]; dup {
			t.Errorf("palette entries %d and %d share colour %v", j, i, key)
		}
		seen[key] = i
	}
}

func TestConvergenceLevel(t *testing.T) {
	tests := []struct {
		iter int
		want uint8
	}{
		{0, 0},
		{1, 1},
		{75, 75},
		{255, 255},
		{256, 255},
		{newton.MaxIterations, 255},
	}
	for _, tt := range tests {
		if got := ConvergenceLevel(tt.iter); got != tt.want {
			t.Errorf("ConvergenceLevel(%d) = %d, want %d", tt.iter, got, tt.want)
		}
	}
}

func TestEncodeRow(t *testing.T) {
	pixels := []newton.Pixel{
		{Root: 0, Iterations: 3},
		{Root: newton.Unclassified, Iterations: 500},
	}
	a := make([]byte, 6)
	EncodeAttractors(a, pixels)
	if want := []byte{255, 0, 0, 0, 0, 0}; !bytes.Equal(a, want) {
		t.Errorf("attractors %v, want %v", a, want)
	}
	c := make([]byte, 6)
	EncodeConvergence(c, pixels)
	if want := []byte{3, 3, 3, 255, 255, 255}; !bytes.Equal(c, want) {
		t.Errorf("convergence %v, want %v", c, want)
	}
}

func TestNames(t *testing.T) {
	if got := AttractorsName(5); got != "newton_attractors_x5.ppm" {
		t.Errorf("AttractorsName(5) = %q", got)
	}
	if got := ConvergenceName(7); got != "newton_convergence_x7.ppm" {
		t.Errorf("ConvergenceName(7) = %q", got)
	}
}
