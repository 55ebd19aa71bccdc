// newton renders the Newton attractors of z^d - 1 into two PPM images:
// newton_attractors_x<d>.ppm (root colours) and newton_convergence_x<d>.ppm
// (iteration counts).
//
//	newton -t8 -l1000 7
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	newton "github.com/marben/newton_attractors"
	"github.com/marben/newton_attractors/config"
	"github.com/marben/newton_attractors/history"
	"github.com/marben/newton_attractors/pipeline"
	"github.com/marben/newton_attractors/progress"
	"github.com/zeromicro/go-zero/core/logx"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const shutdownTimeout = 5 * time.Second

func main() {
	err := run(os.Args[1:])
	code := exitCode(err)
	switch code {
	case 2:
		fmt.Fprintf(os.Stderr, "newton: %v\n%s\n", err, config.Usage)
	case 1:
		if pipeline.Aborted(err) {
			logx.Infof("newton: aborted: %v", err)
		} else {
			logx.Errorf("newton: %v", err)
		}
	}
	logx.Close()
	os.Exit(code)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, config.ErrUsage), errors.Is(err, newton.ErrInvalidParams):
		return 2
	default:
		return 1
	}
}

func run(args []string) error {
	c, err := config.Parse(args)
	if err != nil {
		return err
	}
	logx.MustSetup(c.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Diagnostics {
		if err := agent.Listen(agent.Options{}); err != nil {
			return fmt.Errorf("gops agent: %w", err)
		}
		defer agent.Close()
	}

	pub, shutdown, err := publishers(c)
	if err != nil {
		return err
	}
	defer shutdown()

	p := c.Params()
	var store *history.MongoStore
	if c.History.Enabled() {
		// history is best effort; a missing database never blocks a render
		if store, err = history.Open(ctx, c.History); err != nil {
			logx.Errorf("history: %v", err)
			store = nil
		} else {
			defer store.Close(context.WithoutCancel(ctx))
			logPrevious(ctx, store, p.Degree)
		}
	}

	id := primitive.NewObjectID()
	rep := progress.NewReporter(pub, id.Hex(), p)

	sum, renderErr := pipeline.Run(ctx, p, pipeline.Options{
		OutputDir: c.OutputDir,
		Deadline:  c.Deadline,
		Reporter:  rep,
	})
	if renderErr == nil {
		logx.Infow("render finished",
			logx.Field("degree", p.Degree),
			logx.Field("resolution", p.Resolution),
			logx.Field("threads", p.Threads),
			logx.Field("elapsed", sum.Elapsed.String()),
			logx.Field("rows", sum.Rows),
			logx.Field("roots", sum.RootCounts),
			logx.Field("unclassified", sum.Unclassified),
			logx.Field("meanIterations", sum.MeanIterations),
		)
	}

	if store != nil {
		// the render context may already be cancelled; the record is still worth keeping
		if err := store.Save(context.WithoutCancel(ctx), record(id, p, sum, renderErr)); err != nil {
			logx.Errorf("history: %v", err)
		}
	}
	return renderErr
}

// publishers builds the progress fan-out from the config. shutdown stops the
// websocket server and flushes Kafka.
func publishers(c config.Config) (progress.Publisher, func(), error) {
	var fan progress.Fanout
	var srv *progress.Server

	if c.Progress.Listen != "" {
		hub := progress.NewHub()
		s, err := progress.Listen(c.Progress.Listen, hub)
		if err != nil {
			return nil, nil, fmt.Errorf("progress listen: %w", err)
		}
		srv = s
		fan = append(fan, hub)
	}
	if len(c.Progress.Kafka.Brokers) > 0 {
		fan = append(fan, progress.NewKafkaPublisher(c.Progress.Kafka))
	}

	shutdown := func() {
		if err := fan.Close(); err != nil {
			logx.Errorf("progress: close: %v", err)
		}
		if srv == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logx.Errorf("progress: shutdown: %v", err)
		}
	}
	return fan, shutdown, nil
}

func record(id primitive.ObjectID, p newton.Params, sum pipeline.Summary, err error) history.Record {
	rec := history.NewRecord(id, p)
	rec.RootCounts = sum.RootCounts
	rec.Unclassified = sum.Unclassified
	rec.Diverged = sum.Diverged
	rec.MeanIterations = sum.MeanIterations
	rec.ElapsedMs = sum.Elapsed.Milliseconds()
	rec.Attractors = sum.Attractors
	rec.Convergence = sum.Convergence
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

type runStore interface {
	Recent(ctx context.Context, degree int, limit int64) ([]history.Record, error)
}

// logPrevious logs the last recorded run of degree, if there is one.
func logPrevious(ctx context.Context, s runStore, degree int) {
	recs, err := s.Recent(ctx, degree, 1)
	if err != nil {
		logx.Errorf("history: %v", err)
		return
	}
	if len(recs) == 0 {
		logx.Infof("history: no previous x%d render", degree)
		return
	}
	prev := recs[0]
	logx.Infow("previous render",
		logx.Field("run", prev.ID.Hex()),
		logx.Field("resolution", prev.Resolution),
		logx.Field("threads", prev.Threads),
		logx.Field("elapsedMs", prev.ElapsedMs),
		logx.Field("at", prev.CreatedAt),
	)
}
