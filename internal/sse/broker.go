// Package sse implements a Server-Sent Events broker that pushes document
// store changes to connected consoles.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeDocumentSaved    = "document.saved"
	TypeDocumentDeleted  = "document.deleted"
	TypeDocumentsCleared = "documents.cleared"
	TypeImageAdded       = "image.added"
	TypeImageDeleted     = "image.deleted"
	TypeIndexUpdated     = "index.updated"
)

// Document change kinds accepted by PublishDocumentEvent. The watcher's
// created/updated kinds are reported as saves.
const (
	KindSaved   = "saved"
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// KeepaliveInterval is how often an idle stream receives a comment line.
const KeepaliveInterval = 25 * time.Second

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type documentEventReq struct {
	kind string
	name string
}

// Broker fans store events out to SSE clients. One goroutine owns the client
// set, the event sequence and the index throttle; public methods talk to it
// over channels.
type Broker struct {
	indexMin time.Duration

	subscribeCh     chan chan []byte
	unsubscribeCh   chan chan []byte
	publishCh       chan Event
	documentEventCh chan documentEventReq
	countReqCh      chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. index.updated is sent at most once per
// indexThrottle.
func NewBroker(indexThrottle time.Duration) *Broker {
	if indexThrottle <= 0 {
		indexThrottle = 2 * time.Second
	}

	b := &Broker{
		indexMin:        indexThrottle,
		subscribeCh:     make(chan chan []byte),
		unsubscribeCh:   make(chan chan []byte),
		publishCh:       make(chan Event, 256),
		documentEventCh: make(chan documentEventReq, 256),
		countReqCh:      make(chan chan int),
		stopCh:          make(chan struct{}),
		stopped:         make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastIndex time.Time
	var seq uint64

	// Slow clients miss events rather than stall the loop. The id line lets a
	// console notice the gap and reload its document list.
	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))
		for ch := range clients {
			select {
			case ch <- raw:
			default:
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.documentEventCh:
			data := map[string]string{"name": req.name}
			switch req.kind {
			case KindSaved, KindCreated, KindUpdated:
				broadcast(Event{Type: TypeDocumentSaved, Data: data})
			case KindDeleted:
				broadcast(Event{Type: TypeDocumentDeleted, Data: data})
			default:
				continue
			}

			now := time.Now()
			if now.Sub(lastIndex) >= b.indexMin {
				lastIndex = now
				broadcast(Event{Type: TypeIndexUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishDocumentEvent publishes a document change and a throttled
// index.updated event. Unknown kinds are dropped.
func (b *Broker) PublishDocumentEvent(kind, name string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.documentEventCh <- documentEventReq{kind: kind, name: name}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	keepalive := time.NewTicker(KeepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
