// Package sse streams note change notifications to browsers as Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Event types.
const (
	TypeNoteCreated       = "note.created"
	TypeNoteDeleted       = "note.deleted"
	TypeCollectionChanged = "collection.changed"
)

const (
	clientBuffer      = 64
	heartbeatInterval = 15 * time.Second
)

// Event is one SSE message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// frame renders e in text/event-stream form.
func (e Event) frame() ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("event: ")
	buf.WriteString(e.Type)
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// hub is the broker state. Only the loop goroutine touches it.
type hub struct {
	clients map[chan []byte]struct{}

	throttle   time.Duration
	lastChange time.Time
	pendingOp  string
	flush      *time.Timer
}

func (h *hub) send(e Event) {
	msg, err := e.frame()
	if err != nil {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- msg:
		default: // client is behind; drop
		}
	}
}

// changed broadcasts collection.changed at most once per throttle window.
// A change inside the window is held back and the latest op is sent when
// the window ends, so the final state of a burst is always announced.
func (h *hub) changed(op string, now time.Time) {
	if wait := h.throttle - now.Sub(h.lastChange); wait > 0 {
		h.pendingOp = op
		if h.flush == nil {
			h.flush = time.NewTimer(wait)
		}
		return
	}
	h.lastChange = now
	h.send(Event{Type: TypeCollectionChanged, Data: map[string]string{"op": op}})
}

func (h *hub) flushPending(now time.Time) {
	h.flush = nil
	op := h.pendingOp
	h.pendingOp = ""
	if op != "" {
		h.changed(op, now)
	}
}

func (h *hub) shutdown() {
	if h.flush != nil {
		h.flush.Stop()
	}
	for ch := range h.clients {
		close(ch)
	}
	h.clients = nil
}

// Broker fans events out to connected SSE clients. Callers hand it work as
// closures that run on the loop goroutine.
type Broker struct {
	cmds chan func(*hub)
	quit chan struct{}
	done chan struct{}
	once sync.Once

	heartbeat time.Duration
}

// NewBroker starts a broker. collection.changed is sent at most once per
// changeThrottle; a non-positive value means one second.
func NewBroker(changeThrottle time.Duration) *Broker {
	if changeThrottle <= 0 {
		changeThrottle = time.Second
	}
	b := &Broker{
		cmds:      make(chan func(*hub)),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		heartbeat: heartbeatInterval,
	}
	h := &hub{
		clients:  make(map[chan []byte]struct{}),
		throttle: changeThrottle,
	}
	go b.loop(h)
	return b
}

func (b *Broker) loop(h *hub) {
	defer close(b.done)
	for {
		var flush <-chan time.Time
		if h.flush != nil {
			flush = h.flush.C
		}
		select {
		case <-b.quit:
			h.shutdown()
			return
		case fn := <-b.cmds:
			fn(h)
		case now := <-flush:
			h.flushPending(now)
		}
	}
}

// exec runs fn on the loop. It reports false once the broker is closed.
func (b *Broker) exec(fn func(*hub)) bool {
	select {
	case <-b.quit:
		return false
	default:
	}
	select {
	case b.cmds <- fn:
		return true
	case <-b.done:
		return false
	}
}

// Close stops the loop and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	b.once.Do(func() { close(b.quit) })
	<-b.done
}

// Subscribe registers a client. On a closed broker the returned channel is
// already closed.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.exec(func(h *hub) { h.clients[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.exec(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	n := make(chan int, 1)
	if !b.exec(func(h *hub) { n <- len(h.clients) }) {
		return 0
	}
	return <-n
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.exec(func(h *hub) { h.send(event) })
}

// PublishNoteEvent publishes note.created or note.deleted for id.
// Unknown kinds are ignored.
func (b *Broker) PublishNoteEvent(kind string, id int64) {
	types := map[string]string{"created": TypeNoteCreated, "deleted": TypeNoteDeleted}
	typ, ok := types[kind]
	if !ok {
		return
	}
	b.Publish(Event{Type: typ, Data: map[string]int64{"id": id}})
}

// PublishCollectionChanged reports an outside change of the collection file.
func (b *Broker) PublishCollectionChanged(op string) {
	b.exec(func(h *hub) { h.changed(op, time.Now()) })
}

// ServeHTTP streams events to one client (GET /api/events). A comment line
// is sent every heartbeat so idle proxies keep the connection open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.heartbeat)
	defer ping.Stop()

	for {
		var msg []byte
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			msg = []byte(": ping\n\n")
		case m, open := <-ch:
			if !open {
				return
			}
			msg = m
		}
		if _, err := w.Write(msg); err != nil {
			return
		}
		flusher.Flush()
	}
}
