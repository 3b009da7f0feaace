// Package sse implements a Server-Sent Events broker that tells the admin UI
// when content files change on disk.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeContentCreated = "content.created"
	TypeContentUpdated = "content.updated"
	TypeContentDeleted = "content.deleted"
	TypeCatalogUpdated = "catalog.updated"
)

const (
	// retryMillis is the reconnect delay suggested to clients.
	retryMillis = 3000
	// historySize frames are kept for Last-Event-ID replay.
	historySize = 128
	// clientBuffer frames may queue per client before new ones are dropped.
	clientBuffer = 64
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type contentChange struct {
	kind string
	path string
}

type frame struct {
	id  uint64
	raw []byte
}

type subscription struct {
	ch    chan []byte
	after uint64
}

// Broker fans change notifications out to connected SSE clients.
//
// A single loop goroutine owns the client set, the sequence counter, the
// replay history and the catalog throttle. Public methods reach it through
// channels.
//
// content.* events go out immediately. catalog.updated is throttled: the
// first change in a quiet period emits it at once, later changes inside the
// window collapse into one trailing emission when the window ends.
type Broker struct {
	catalogEvery time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan contentChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits catalog.updated at most once per
// catalogThrottle.
func NewBroker(catalogThrottle time.Duration) *Broker {
	if catalogThrottle <= 0 {
		catalogThrottle = 2 * time.Second
	}

	b := &Broker{
		catalogEvery:  catalogThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan contentChange, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	history := make([]frame, 0, historySize)
	var seq uint64

	var (
		lastCatalog    time.Time
		catalogTimer   *time.Timer
		catalogPending <-chan time.Time
	)
	defer func() {
		if catalogTimer != nil {
			catalogTimer.Stop()
		}
	}()

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		f := frame{id: seq, raw: []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))}
		if len(history) == historySize {
			copy(history, history[1:])
			history = history[:historySize-1]
		}
		history = append(history, f)

		for ch := range clients {
			select {
			case ch <- f.raw:
			default:
				// Slow client: drop rather than stall the loop.
			}
		}
	}

	catalog := func(now time.Time) {
		lastCatalog = now
		catalogPending = nil
		broadcast(Event{Type: TypeCatalogUpdated, Data: map[string]string{}})
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = struct{}{}
			if sub.after == 0 {
				continue
			}
			for _, f := range history {
				if f.id <= sub.after {
					continue
				}
				select {
				case sub.ch <- f.raw:
				default:
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case c := <-b.changeCh:
			typ, ok := contentType(c.kind)
			if !ok {
				continue
			}
			broadcast(Event{Type: typ, Data: map[string]string{"path": c.path}})

			now := time.Now()
			switch wait := b.catalogEvery - now.Sub(lastCatalog); {
			case wait <= 0:
				catalog(now)
			case catalogPending == nil:
				if catalogTimer == nil {
					catalogTimer = time.NewTimer(wait)
				} else {
					catalogTimer.Reset(wait)
				}
				catalogPending = catalogTimer.C
			}

		case now := <-catalogPending:
			catalog(now)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

func contentType(kind string) (string, bool) {
	switch kind {
	case "created":
		return TypeContentCreated, true
	case "updated":
		return TypeContentUpdated, true
	case "deleted":
		return TypeContentDeleted, true
	}
	return "", false
}

// Close stops the event loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeAfter(0)
}

// SubscribeAfter adds a new client and first replays the retained frames
// whose id is greater than lastID. Zero replays nothing.
func (b *Broker) SubscribeAfter(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, after: lastID}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client.
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

// PublishContentEvent announces a change to the content file at path
// (kind is "created", "updated" or "deleted") followed by a throttled
// catalog.updated.
func (b *Broker) PublishContentEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- contentChange{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). A reconnecting
// client's Last-Event-ID header resumes the stream from the retained history.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.SubscribeAfter(lastID)
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
