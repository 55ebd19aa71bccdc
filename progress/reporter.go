package progress

import (
	"context"
	"sync"
	"time"

	newton "github.com/marben/newton_attractors"
	"github.com/zeromicro/go-zero/core/logx"
)

// Reporter turns pipeline milestones into events for one run.
type Reporter struct {
	pub   Publisher
	run   string
	p     newton.Params
	start time.Time

	m       sync.Mutex
	written int
}

func NewReporter(pub Publisher, run string, p newton.Params) *Reporter {
	if pub == nil {
		pub = Nop{}
	}
	return &Reporter{pub: pub, run: run, p: p, start: time.Now()}
}

func (r *Reporter) event(typ string) Event {
	now := time.Now()
	return Event{
		Type:      typ,
		Run:       r.run,
		Degree:    r.p.Degree,
		Total:     r.p.Resolution,
		Written:   r.written,
		ElapsedMs: now.Sub(r.start).Milliseconds(),
		Time:      now,
	}
}

func (r *Reporter) publish(ctx context.Context, ev Event) {
	if err := r.pub.Publish(ctx, ev); err != nil {
		logx.WithContext(ctx).Errorf("progress: publish %s event: %v", ev.Type, err)
	}
}

func (r *Reporter) Start(ctx context.Context) {
	r.m.Lock()
	r.start = time.Now()
	ev := r.event(TypeStart)
	ev.Workers = r.p.Threads
	r.m.Unlock()
	r.publish(ctx, ev)
}

// Row records that row has been written to the images.
func (r *Reporter) Row(ctx context.Context, row, workers int) {
	r.m.Lock()
	r.written++
	ev := r.event(TypeRow)
	ev.Row = row
	ev.Workers = workers
	r.m.Unlock()
	r.publish(ctx, ev)
}

func (r *Reporter) Done(ctx context.Context) {
	r.m.Lock()
	ev := r.event(TypeDone)
	r.m.Unlock()
	r.publish(ctx, ev)
}

func (r *Reporter) Fail(ctx context.Context, err error) {
	r.m.Lock()
	ev := r.event(TypeError)
	ev.Error = err.Error()
	r.m.Unlock()
	r.publish(ctx, ev)
}

// Written is the number of rows reported so far.
func (r *Reporter) Written() int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.written
}
