// Package pipeline runs a complete render: worker goroutines solve rows while a
// single writer streams them, in order, into the output images.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	newton "github.com/marben/newton_attractors"
	"github.com/marben/newton_attractors/ppm"
	"github.com/marben/newton_attractors/progress"
	"github.com/marben/newton_attractors/render"
	"github.com/marben/newton_attractors/rows"
	"github.com/marben/newton_attractors/schedule"
	"github.com/zeromicro/go-zero/core/logx"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	OutputDir string
	// Deadline aborts the render when positive.
	Deadline time.Duration
	Reporter *progress.Reporter
}

type Summary struct {
	Attractors     string
	Convergence    string
	Rows           int   // rows written to both images
	RootCounts     []int // pixels per root index
	Unclassified   int
	Diverged       int
	MeanIterations float64
	Elapsed        time.Duration
}

// RowFunc observes each row after it has been written. workers is the number of
// compute workers still running at that point.
type RowFunc func(row newton.Row, workers int)

// Render solves every row of p and streams them into the two sinks, without
// headers. The first error from any goroutine cancels the others.
func Render(ctx context.Context, p newton.Params, attractors, convergence io.Writer, onRow RowFunc) error {
	if err := p.Validate(); err != nil {
		return err
	}

	solver := render.NewSolver(p, newton.BuildRootTable(p.Degree))
	board := rows.NewBoard(p.Resolution)
	sched := schedule.New(p, solver, board)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(ctx)
	})
	g.Go(func() error {
		return ppm.Stream(ctx, p.Resolution, board, attractors, convergence, func(row newton.Row) {
			if onRow != nil {
				onRow(row, sched.Active())
			}
			board.Release(row.Index)
		})
	})
	if err := g.Wait(); err != nil {
		logx.Infof("render x%d stopped: %d rows solved, %d never published", p.Degree, sched.Solved(), board.Pending())
		return err
	}
	return nil
}

// Run renders p into newton_attractors_x<d>.ppm and newton_convergence_x<d>.ppm
// under opts.OutputDir.
func Run(ctx context.Context, p newton.Params, opts Options) (Summary, error) {
	if err := p.Validate(); err != nil {
		return Summary{}, err
	}
	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Deadline)
		defer cancel()
	}
	rep := opts.Reporter
	if rep == nil {
		rep = progress.NewReporter(nil, "", p)
	}
	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}

	start := time.Now()
	img, err := ppm.Create(dir, p.Degree, p.Resolution)
	if err != nil {
		return Summary{}, err
	}

	logx.WithContext(ctx).Infof("render x%d: %dx%d on %d workers", p.Degree, p.Resolution, p.Resolution, p.Threads)
	rep.Start(ctx)

	t := newTally(p.Degree)
	err = Render(ctx, p, img.Attractors(), img.Convergence(), func(row newton.Row, workers int) {
		t.add(row)
		rep.Row(ctx, row.Index, workers)
	})
	if closeErr := img.Close(); err == nil {
		err = closeErr
	}

	sum := t.summary()
	sum.Attractors = img.AttractorsPath
	sum.Convergence = img.ConvergencePath
	sum.Elapsed = time.Since(start)
	sum.Rows = rep.Written()

	if err != nil {
		rep.Fail(context.WithoutCancel(ctx), err)
		return sum, fmt.Errorf("render x%d: %w", p.Degree, err)
	}
	rep.Done(ctx)
	return sum, nil
}

type tally struct {
	roots        []int
	unclassified int
	diverged     int
	iterations   int
	pixels       int
}

func newTally(degree int) *tally {
	return &tally{roots: make([]int, degree)}
}

func (t *tally) add(row newton.Row) {
	for _, px := range row.Pixels {
		switch {
		case px.Root == newton.Diverged:
			t.diverged++
		case px.Root.Valid(len(t.roots)):
			t.roots[px.Root]++
		default:
			t.unclassified++
		}
		t.iterations += px.Iterations
		t.pixels++
	}
}

func (t *tally) summary() Summary {
	s := Summary{
		RootCounts:   t.roots,
		Unclassified: t.unclassified,
		Diverged:     t.diverged,
	}
	if t.pixels > 0 {
		s.MeanIterations = float64(t.iterations) / float64(t.pixels)
	}
	return s
}

// Aborted reports whether err ended a render early through cancellation or deadline.
func Aborted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
