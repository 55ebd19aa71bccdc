// watch connects to a running newton render's progress feed and logs each event
// until the render finishes.
//
//	watch -aws://localhost:8080/ws
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/coder/websocket"
	"github.com/marben/newton_attractors/progress"
	"github.com/spf13/pflag"
	"github.com/zeromicro/go-zero/core/logx"
)

const (
	defaultAddr = "ws://localhost:8080/ws"
	usage       = "usage: watch [-a<ws url>]"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		logx.Errorf("watch: %v", err)
		logx.Close()
		os.Exit(1)
	}
}

func run(args []string) error {
	addr, err := parseArgs(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logx.Infof("connecting to %s", addr)
	c, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer c.CloseNow()

	ev, err := watch(ctx, c, logEvent)
	if err != nil {
		return err
	}
	c.Close(websocket.StatusNormalClosure, "")
	if ev.Type == progress.TypeError {
		return fmt.Errorf("render %s failed: %s", ev.Run, ev.Error)
	}
	return nil
}

func parseArgs(args []string) (string, error) {
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.StringP("addr", "a", defaultAddr, "progress websocket url")
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("%w\n%s", err, usage)
	}
	if fs.NArg() > 0 {
		return "", fmt.Errorf("unexpected arguments %q\n%s", fs.Args(), usage)
	}
	return *addr, nil
}

// watch reads events until a final one arrives and returns it.
func watch(ctx context.Context, c *websocket.Conn, onEvent func(progress.Event)) (progress.Event, error) {
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return progress.Event{}, errors.New("feed closed before the render finished")
			}
			return progress.Event{}, fmt.Errorf("read: %w", err)
		}
		ev, err := progress.Decode(data)
		if err != nil {
			return progress.Event{}, fmt.Errorf("decode event: %w", err)
		}
		onEvent(ev)
		if ev.Final() {
			return ev, nil
		}
	}
}

func logEvent(ev progress.Event) {
	switch ev.Type {
	case progress.TypeRow:
		logx.Infof("x%d row %d: %d/%d written, %d workers", ev.Degree, ev.Row, ev.Written, ev.Total, ev.Workers)
	case progress.TypeError:
		logx.Errorf("x%d failed after %dms: %s", ev.Degree, ev.ElapsedMs, ev.Error)
	default:
		logx.Infof("x%d %s: %d/%d rows, %dms", ev.Degree, ev.Type, ev.Written, ev.Total, ev.ElapsedMs)
	}
}
