// Package schedule spreads image rows over a fixed pool of worker goroutines.
//
// Rows are assigned by striding: worker t owns rows t, t+n, t+2n, ... for n workers.
// Workers never coordinate with each other; each publishes its rows as they finish.
package schedule

import (
	"context"
	"fmt"
	"sync"

	newton "github.com/marben/newton_attractors"
	"github.com/zeromicro/go-zero/core/logx"
	"golang.org/x/sync/errgroup"
)

// Rows returns the rows owned by worker out of workers in a strided partition of
// [0, resolution). Workers beyond the last row get an empty slice.
func Rows(worker, workers, resolution int) []int {
	if workers <= 0 || worker < 0 || worker >= resolution {
		return nil
	}
	rows := make([]int, 0, (resolution-worker+workers-1)/workers)
	for r := worker; r < resolution; r += workers {
		rows = append(rows, r)
	}
	return rows
}

type Scheduler struct {
	params newton.Params
	solver newton.RowSolver
	pub    newton.RowPublisher

	m       sync.Mutex
	workers int
	solved  int
}

func New(p newton.Params, solver newton.RowSolver, pub newton.RowPublisher) *Scheduler {
	return &Scheduler{
		params: p,
		solver: solver,
		pub:    pub,
	}
}

// Run starts params.Threads workers and waits for all of them. The first publish
// error or a cancelled ctx stops the remaining workers between rows.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := range s.params.Threads {
		g.Go(func() error {
			return s.work(ctx, w)
		})
	}
	return g.Wait()
}

func (s *Scheduler) work(ctx context.Context, worker int) error {
	s.incActiveWorkers()
	defer s.decActiveWorkers()

	rows := Rows(worker, s.params.Threads, s.params.Resolution)
	logx.Debugf("worker %d: %d rows", worker, len(rows))

	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := s.solver.SolveRow(r)
		if err := s.pub.Publish(row); err != nil {
			return fmt.Errorf("worker %d: publish row %d: %w", worker, r, err)
		}
		s.rowSolved()
	}
	return nil
}

// Active is the number of workers still running.
func (s *Scheduler) Active() int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.workers
}

// Solved is the number of rows published so far.
func (s *Scheduler) Solved() int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.solved
}

func (s *Scheduler) rowSolved() {
	s.m.Lock()
	s.solved++
	s.m.Unlock()
}

func (s *Scheduler) incActiveWorkers() {
	s.m.Lock()
	s.workers++
	s.m.Unlock()
}

func (s *Scheduler) decActiveWorkers() {
	s.m.Lock()
	s.workers--
	s.m.Unlock()
}
