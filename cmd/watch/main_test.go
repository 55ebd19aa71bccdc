package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/marben/newton_attractors/progress"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		args    []string
		want    string
		wantErr bool
	}{
		{args: nil, want: defaultAddr},
		{args: []string{"-aws://render:9000/ws"}, want: "ws://render:9000/ws"},
		{args: []string{"-a"}, wantErr: true},
		{args: []string{"ws://render:9000/ws"}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseArgs(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseArgs(%q) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseArgs(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := progress.NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(time.Millisecond)
	}

	for _, ev := range []progress.Event{
		{Type: progress.TypeStart, Run: "r1", Degree: 2, Total: 2},
		{Type: progress.TypeRow, Run: "r1", Degree: 2, Total: 2, Row: 0, Written: 1},
		{Type: progress.TypeRow, Run: "r1", Degree: 2, Total: 2, Row: 1, Written: 2},
		{Type: progress.TypeDone, Run: "r1", Degree: 2, Total: 2, Written: 2},
	} {
		if err := hub.Publish(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	var seen []string
	last, err := watch(ctx, c, func(ev progress.Event) { seen = append(seen, ev.Type) })
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if last.Type != progress.TypeDone || last.Written != 2 {
		t.Errorf("last event %+v", last)
	}
	if got := strings.Join(seen, ","); got != "start,row,row,done" {
		t.Errorf("events %s", got)
	}
}

func TestWatchFeedClosedEarly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := progress.NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(time.Millisecond)
	}
	hub.Close()

	if _, err := watch(ctx, c, func(progress.Event) {}); err == nil {
		t.Fatal("watch returned no error for a feed closed before done")
	}
}
