// Package rows hands finished image rows from compute workers to the writer.
//
// A Board has one slot per row. A worker publishes a row exactly once; the writer
// waits for rows by index. Slot data and ready flags live under a single mutex so a
// reader can never see a ready flag next to stale pixels. Each slot also carries a
// wake signal that is closed on publish, so waiting readers sleep instead of polling.
package rows

import (
	"context"
	"errors"
	"fmt"
	"sync"

	newton "github.com/marben/newton_attractors"
	"github.com/zeromicro/go-zero/core/syncx"
)

var (
	ErrRowOutOfRange    = errors.New("row out of range")
	ErrAlreadyPublished = errors.New("row already published")
	ErrShortRow         = errors.New("row has wrong pixel count")
)

type slot struct {
	pixels []newton.Pixel
	ready  bool
	done   *syncx.DoneChan
}

type Board struct {
	res int

	m       sync.Mutex
	slots   []slot
	pending int
}

// NewBoard returns a board with resolution pending rows of resolution pixels each.
func NewBoard(resolution int) *Board {
	slots := make([]slot, resolution)
	for i := range slots {
		slots[i].done = syncx.NewDoneChan()
	}
	return &Board{
		res:     resolution,
		slots:   slots,
		pending: resolution,
	}
}

func (b *Board) checkIndex(i int) error {
	if i < 0 || i >= b.res {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrRowOutOfRange, i, b.res)
	}
	return nil
}

// Publish stores row and marks it ready. The caller must not touch row.Pixels
// afterwards.
func (b *Board) Publish(row newton.Row) error {
	if err := b.checkIndex(row.Index); err != nil {
		return err
	}
	if len(row.Pixels) != b.res {
		return fmt.Errorf("%w: row %d has %d pixels, want %d", ErrShortRow, row.Index, len(row.Pixels), b.res)
	}

	b.m.Lock()
	s := &b.slots[row.Index]
	if s.ready {
		b.m.Unlock()
		return fmt.Errorf("%w: %d", ErrAlreadyPublished, row.Index)
	}
	s.pixels = row.Pixels
	s.ready = true
	b.pending--
	done := s.done
	b.m.Unlock()

	done.Close()
	return nil
}

// Ready reports whether row i has been published.
func (b *Board) Ready(i int) bool {
	if b.checkIndex(i) != nil {
		return false
	}
	b.m.Lock()
	defer b.m.Unlock()
	return b.slots[i].ready
}

// Pending is the number of rows not yet published.
func (b *Board) Pending() int {
	b.m.Lock()
	defer b.m.Unlock()
	return b.pending
}

// Wait blocks until row i is published or ctx is done.
// The lock is never held while waiting.
func (b *Board) Wait(ctx context.Context, i int) (newton.Row, error) {
	if err := b.checkIndex(i); err != nil {
		return newton.Row{}, err
	}

	b.m.Lock()
	s := b.slots[i]
	b.m.Unlock()

	if !s.ready {
		select {
		case <-s.done.Done():
		case <-ctx.Done():
			return newton.Row{}, context.Cause(ctx)
		}
		b.m.Lock()
		s = b.slots[i]
		b.m.Unlock()
	}

	return newton.Row{Index: i, Pixels: s.pixels}, nil
}

var _ newton.RowSource = (*Board)(nil)
var _ newton.RowPublisher = (*Board)(nil)

// Release drops the pixels of a row the writer has flushed. The row stays ready.
func (b *Board) Release(i int) {
	if b.checkIndex(i) != nil {
		return
	}
	b.m.Lock()
	b.slots[i].pixels = nil
	b.m.Unlock()
}
