package newton

import "context"

// RowSolver computes the pixels of a single image row.
type RowSolver interface {
	SolveRow(row int) Row
}

// RowPublisher accepts finished rows from workers.
type RowPublisher interface {
	Publish(row Row) error
}

// RowSource hands finished rows to the writer. Wait blocks until the row is ready.
type RowSource interface {
	Wait(ctx context.Context, row int) (Row, error)
}
