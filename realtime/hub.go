// Package realtime carries row-level change notifications from the store to
// in-memory workspaces and streaming clients.
package realtime

import (
	"log/slog"
	"sync"
	"time"
)

const (
	OpInsert  = "insert"
	OpUpdate  = "update"
	OpReplace = "replace"
	OpDelete  = "delete"

	// OpResync tells a subscriber it missed changes and must treat all of
	// its state as stale. It carries no collection.
	OpResync = "resync"
)

type Change struct {
	Collection string    `json:"collection"`
	Operation  string    `json:"operation"`
	DocumentID string    `json:"document_id"`
	At         time.Time `json:"at"`
}

// Publisher is implemented by anything that can announce a change.
type Publisher interface {
	Publish(c Change)
}

type subscriber struct {
	ch        chan Change
	done      chan struct{}
	resyncing bool
	wg        sync.WaitGroup
}

// Hub fans changes out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the change and is owed an OpResync, which is
// delivered as soon as it drains its buffer.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{subs: make(map[int]*subscriber), logger: logger}
}

// Subscribe registers a subscriber. The returned cancel func closes the
// channel; calling it again is a no-op.
func (h *Hub) Subscribe(buffer int) (<-chan Change, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	sub := &subscriber{ch: make(chan Change, buffer), done: make(chan struct{})}
	h.subs[id] = sub
	return sub.ch, func() {
		h.mu.Lock()
		_, ok := h.subs[id]
		delete(h.subs, id)
		h.mu.Unlock()
		if !ok {
			return
		}
		close(sub.done)
		sub.wg.Wait()
		close(sub.ch)
	}
}

func (h *Hub) Publish(c Change) {
	if c.At.IsZero() {
		c.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		select {
		case sub.ch <- c:
		default:
			h.logger.Warn("dropping change for slow subscriber",
				"subscriber", id, "collection", c.Collection, "document_id", c.DocumentID)
			h.owe(sub)
		}
	}
}

// owe schedules one resync for sub. Called with h.mu held.
func (h *Hub) owe(sub *subscriber) {
	if sub.resyncing {
		return
	}
	sub.resyncing = true
	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		select {
		case sub.ch <- Change{Operation: OpResync, At: time.Now()}:
		case <-sub.done:
		}
		h.mu.Lock()
		sub.resyncing = false
		h.mu.Unlock()
	}()
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
