// Package sse streams migration activity to connected status clients over
// Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Event is one message on the stream. Data is marshaled to JSON as the
// event payload.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// clientBuffer is the per-subscriber queue length. A subscriber that falls
// this far behind starts losing frames instead of stalling the broker.
const clientBuffer = 64

type op int

const (
	opAttach op = iota
	opDetach
	opEmit
	opNote
	opCount
)

// command is the single message type the broker loop consumes. Only the
// fields relevant to its op are set.
type command struct {
	op     op
	client chan []byte
	event  Event
	kind   string
	path   string
	reply  chan int
}

// noteEventTypes maps watcher change kinds onto stream event types.
var noteEventTypes = map[string]string{
	"migrated": "note.migrated",
	"removed":  "note.removed",
}

// Broker fans migration events out to SSE subscribers.
//
// All mutable state lives inside the run loop goroutine. Public methods
// hand it commands over a single unbuffered channel, so a successful send
// doubles as the synchronization point and no locks are needed.
type Broker struct {
	throttle time.Duration

	cmds chan command
	quit chan struct{}
	done chan struct{}

	closeOnce sync.Once
}

// NewBroker starts the broker loop. reportThrottle bounds how often a
// report.updated frame follows the per-note frames, so a burst of watch
// activity does not make every client refetch the report once per note.
func NewBroker(reportThrottle time.Duration) *Broker {
	if reportThrottle <= 0 {
		reportThrottle = 2 * time.Second
	}
	b := &Broker{
		throttle: reportThrottle,
		cmds:     make(chan command),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.done)

	subscribers := make(map[chan []byte]struct{})
	var lastReport time.Time

	for {
		select {
		case <-b.quit:
			for ch := range subscribers {
				close(ch)
			}
			return

		case c := <-b.cmds:
			switch c.op {
			case opAttach:
				subscribers[c.client] = struct{}{}

			case opDetach:
				if _, ok := subscribers[c.client]; ok {
					delete(subscribers, c.client)
					close(c.client)
				}

			case opEmit:
				fanOut(subscribers, c.event)

			case opNote:
				typ, ok := noteEventTypes[c.kind]
				if !ok {
					break
				}
				fanOut(subscribers, Event{Type: typ, Data: map[string]string{"path": c.path}})
				if now := time.Now(); now.Sub(lastReport) >= b.throttle {
					lastReport = now
					fanOut(subscribers, Event{Type: "report.updated", Data: map[string]string{}})
				}

			case opCount:
				c.reply <- len(subscribers)
			}
		}
	}
}

// fanOut delivers one encoded frame to every subscriber that has room.
func fanOut(subscribers map[chan []byte]struct{}, event Event) {
	frame, err := encodeFrame(event)
	if err != nil {
		return
	}
	for ch := range subscribers {
		select {
		case ch <- frame:
		default:
			// Slow subscriber; drop the frame rather than stall the loop.
		}
	}
}

// encodeFrame renders an Event in SSE wire format.
func encodeFrame(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\ndata: %s\n\n", event.Type, payload)
	return buf.Bytes(), nil
}

// dispatch hands a command to the loop. It reports false once the broker
// has shut down, in which case the command was not processed.
func (b *Broker) dispatch(c command) bool {
	select {
	case b.cmds <- c:
		return true
	case <-b.done:
		return false
	}
}

// Close stops the loop and closes every subscriber channel. It is
// idempotent and safe to call concurrently with the other methods.
func (b *Broker) Close() {
	b.closeOnce.Do(func() { close(b.quit) })
	<-b.done
}

// Subscribe registers a new subscriber. The returned channel carries
// encoded frames and is closed by Unsubscribe or Close; after Close it
// comes back already closed.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.dispatch(command{op: opAttach, client: ch}) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.dispatch(command{op: opDetach, client: ch})
}

// ClientCount reports the number of connected subscribers.
func (b *Broker) ClientCount() int {
	reply := make(chan int, 1)
	if !b.dispatch(command{op: opCount, reply: reply}) {
		return 0
	}
	return <-reply
}

// Publish broadcasts an arbitrary event to every subscriber.
func (b *Broker) Publish(event Event) {
	b.dispatch(command{op: opEmit, event: event})
}

// PublishMigration broadcasts one note change ("migrated" or "removed")
// plus a throttled report.updated frame.
func (b *Broker) PublishMigration(kind, path string) {
	b.dispatch(command{op: opNote, kind: kind, path: path})
}

// heartbeatEvery keeps idle connections alive through proxies that time
// out quiet streams.
const heartbeatEvery = 30 * time.Second

// ServeHTTP streams events to one client until it disconnects or the
// broker closes.
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
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case frame, open := <-ch:
			if !open {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
