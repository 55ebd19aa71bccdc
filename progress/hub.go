package progress

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/zeromicro/go-zero/core/logx"
)

const (
	subscriberBuffer = 256
	writeTimeout     = 5 * time.Second
)

// Hub broadcasts events to websocket subscribers. Subscribers that fall more than
// subscriberBuffer events behind are disconnected.
type Hub struct {
	m       sync.Mutex
	subs    map[*subscriber]struct{}
	last    []byte
	closed  bool
	buffer  int
	origins []string
}

type subscriber struct {
	msgs      chan []byte
	closeSlow func()
}

func NewHub() *Hub {
	return &Hub{
		subs:    make(map[*subscriber]struct{}),
		buffer:  subscriberBuffer,
		origins: []string{"*"},
	}
}

// Publish implements Publisher. It never blocks on a subscriber.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	msg, err := Encode(ev)
	if err != nil {
		return err
	}

	h.m.Lock()
	defer h.m.Unlock()
	if h.closed {
		return nil
	}
	h.last = msg
	for s := range h.subs {
		select {
		case s.msgs <- msg:
		default:
			delete(h.subs, s)
			close(s.msgs)
			go s.closeSlow()
		}
	}
	return nil
}

// Close ends every subscription once its buffered events are sent.
func (h *Hub) Close() error {
	h.m.Lock()
	defer h.m.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.msgs)
	}
	return nil
}

// Last returns the most recently published event, if any.
func (h *Hub) Last() ([]byte, bool) {
	h.m.Lock()
	defer h.m.Unlock()
	return h.last, h.last != nil
}

func (h *Hub) Subscribers() int {
	h.m.Lock()
	defer h.m.Unlock()
	return len(h.subs)
}

// subscribe registers s. The latest event, if any, is queued first so late
// subscribers see the current state. It returns false once the hub is closed.
func (h *Hub) subscribe(s *subscriber) bool {
	h.m.Lock()
	defer h.m.Unlock()
	if h.last != nil {
		s.msgs <- h.last
	}
	if h.closed {
		close(s.msgs)
		return false
	}
	h.subs[s] = struct{}{}
	return true
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.m.Lock()
	defer h.m.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.msgs)
	}
}

// ServeHTTP upgrades the request to a websocket and streams events to it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		logx.Errorf("progress: websocket accept: %v", err)
		return
	}
	defer c.CloseNow()

	s := &subscriber{
		msgs: make(chan []byte, h.buffer),
		closeSlow: func() {
			c.Close(websocket.StatusPolicyViolation, "subscriber too slow")
		},
	}
	h.subscribe(s)
	defer h.unsubscribe(s)

	// we never expect messages from the client
	ctx := c.CloseRead(r.Context())

	for {
		select {
		case msg, ok := <-s.msgs:
			if !ok {
				c.Close(websocket.StatusNormalClosure, "render finished")
				return
			}
			if err := writeTimeoutMsg(ctx, c, msg); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeTimeoutMsg(ctx context.Context, c *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageText, msg)
}
