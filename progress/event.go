// Package progress publishes the progress of a render to websocket subscribers and
// message brokers. Progress is best effort: a failing publisher is logged and never
// stops the render.
package progress

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
)

// Event types
const (
	TypeStart = "start"
	TypeRow   = "row"
	TypeDone  = "done"
	TypeError = "error"
)

type Event struct {
	Type      string    `json:"type"`
	Run       string    `json:"run"`
	Degree    int       `json:"degree"`
	Total     int       `json:"total"`
	Row       int       `json:"row"`
	Written   int       `json:"written"`
	Workers   int       `json:"workers"`
	ElapsedMs int64     `json:"elapsed_ms"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

// Final reports whether no further events follow ev for its run.
func (ev Event) Final() bool {
	return ev.Type == TypeDone || ev.Type == TypeError
}

func Encode(ev Event) ([]byte, error) {
	return sonic.Marshal(ev)
}

func Decode(data []byte) (Event, error) {
	var ev Event
	err := sonic.Unmarshal(data, &ev)
	return ev, err
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Fanout publishes every event to all of its publishers.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
