package progress

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
)

// Server exposes a Hub over http:
//
//	/ws      websocket stream of events
//	/status  latest event as JSON
type Server struct {
	hub *Hub
	l   net.Listener
	srv *http.Server
}

// Listen binds addr and serves hub in the background.
func Listen(addr string, hub *Hub) (*Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/status", statusHandler(hub))

	s := &Server{
		hub: hub,
		l:   l,
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	threading.GoSafe(func() {
		if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Errorf("progress: serve %s: %v", l.Addr(), err)
		}
	})
	logx.Infof("progress: listening on ws://%s/ws", l.Addr())
	return s, nil
}

func (s *Server) Addr() net.Addr {
	return s.l.Addr()
}

// Shutdown closes the hub, letting subscribers drain, then stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.srv.Shutdown(ctx)
}

func statusHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		last, ok := hub.Last()
		if !ok {
			http.Error(w, "no render in progress", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(last)
	}
}
