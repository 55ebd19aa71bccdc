package ppm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	newton "github.com/marben/newton_attractors"
)

// Stream writes rows 0..resolution-1 strictly in order, waiting on src for each one.
// onRow, if set, is called after a row has been written to both sinks.
// A write error aborts the stream.
func Stream(ctx context.Context, resolution int, src newton.RowSource, attractors, convergence io.Writer, onRow func(newton.Row)) error {
	abuf := make([]byte, 3*resolution)
	cbuf := make([]byte, 3*resolution)

	for i := range resolution {
		row, err := src.Wait(ctx, i)
		if err != nil {
			return fmt.Errorf("wait for row %d: %w", i, err)
		}
		if len(row.Pixels) != resolution {
			return fmt.Errorf("row %d has %d pixels, want %d", i, len(row.Pixels), resolution)
		}

		EncodeAttractors(abuf, row.Pixels)
		if _, err := attractors.Write(abuf); err != nil {
			return fmt.Errorf("%w: attractors row %d: %w", ErrWrite, i, err)
		}
		EncodeConvergence(cbuf, row.Pixels)
		if _, err := convergence.Write(cbuf); err != nil {
			return fmt.Errorf("%w: convergence row %d: %w", ErrWrite, i, err)
		}

		if onRow != nil {
			onRow(row)
		}
	}
	return nil
}

// Images are the two output files of one render, headers already written.
type Images struct {
	AttractorsPath  string
	ConvergencePath string

	files   []*os.File
	buffers []*bufio.Writer
}

// Create opens both images for degree under dir and writes their headers.
func Create(dir string, degree, resolution int) (*Images, error) {
	img := &Images{
		AttractorsPath:  filepath.Join(dir, AttractorsName(degree)),
		ConvergencePath: filepath.Join(dir, ConvergenceName(degree)),
	}
	headers := []struct {
		path   string
		maxval int
	}{
		{img.AttractorsPath, AttractorsMaxval},
		{img.ConvergencePath, ConvergenceMaxval},
	}
	for _, h := range headers {
		f, err := os.Create(h.path)
		if err != nil {
			img.Close()
			return nil, fmt.Errorf("%w: %w", ErrWrite, err)
		}
		bw := bufio.NewWriter(f)
		img.files = append(img.files, f)
		img.buffers = append(img.buffers, bw)
		if err := WriteHeader(bw, resolution, resolution, h.maxval); err != nil {
			img.Close()
			return nil, err
		}
	}
	return img, nil
}

func (img *Images) Attractors() io.Writer {
	return img.buffers[0]
}

func (img *Images) Convergence() io.Writer {
	return img.buffers[1]
}

// Close flushes and closes both files. It is safe to call more than once.
func (img *Images) Close() error {
	var errs []error
	for i, f := range img.files {
		if err := img.buffers[i].Flush(); err != nil {
			errs = append(errs, fmt.Errorf("%w: flush %s: %w", ErrWrite, f.Name(), err))
		}
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%w: close %s: %w", ErrWrite, f.Name(), err))
		}
	}
	img.files, img.buffers = nil, nil
	return errors.Join(errs...)
}
