// Package events keeps a bounded history of committed ledger events and fans
// them out to live subscribers such as the websocket stream.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one published ledger event.
type Record struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Kind      string    `json:"kind"`
	Height    uint64    `json:"height"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// String returns the JSON form of the record.
func (r Record) String() string {
	data, _ := json.Marshal(r)
	return string(data)
}

// Handler processes records as they are published.
type Handler func(Record)

// Filter decides whether a handler sees a record.
type Filter func(Record) bool

// Feed is a thread-safe ring buffer of records.
type Feed struct {
	mu       sync.RWMutex
	records  []Record
	size     int
	head     int
	count    int
	seq      uint64
	handlers []handlerEntry
	nextID   int64
}

type handlerEntry struct {
	id      int64
	filter  Filter
	handler Handler
}

// NewFeed creates a feed retaining the last size records.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 1000
	}
	return &Feed{
		records: make([]Record, size),
		size:    size,
	}
}

// Publish appends a record and notifies subscribers.
func (f *Feed) Publish(kind string, height uint64, payload any) {
	f.mu.Lock()
	f.seq++
	rec := Record{
		ID:        uuid.NewString(),
		Seq:       f.seq,
		Kind:      kind,
		Height:    height,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	f.records[f.head] = rec
	f.head = (f.head + 1) % f.size
	if f.count < f.size {
		f.count++
	}

	handlers := make([]handlerEntry, len(f.handlers))
	copy(handlers, f.handlers)
	f.mu.Unlock()

	// Notify handlers outside the lock
	for _, h := range handlers {
		if h.filter == nil || h.filter(rec) {
			h.handler(rec)
		}
	}
}

// Subscribe registers a handler for all records and returns its cancel func.
func (f *Feed) Subscribe(handler Handler) func() {
	return f.SubscribeFiltered(nil, handler)
}

// SubscribeFiltered registers a handler that only sees records passing filter.
func (f *Feed) SubscribeFiltered(filter Filter, handler Handler) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.handlers = append(f.handlers, handlerEntry{id: id, filter: filter, handler: handler})
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, h := range f.handlers {
			if h.id == id {
				f.handlers = append(f.handlers[:i], f.handlers[i+1:]...)
				return
			}
		}
	}
}

// Recent returns up to n records, newest first.
func (f *Feed) Recent(n int) []Record {
	return f.recent(n, nil)
}

// RecentByKind returns up to n records of kind, newest first.
func (f *Feed) RecentByKind(kind string, n int) []Record {
	return f.recent(n, func(r Record) bool { return r.Kind == kind })
}

func (f *Feed) recent(n int, filter Filter) []Record {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if n <= 0 || f.count == 0 {
		return nil
	}

	var out []Record
	for i := 0; i < f.count && len(out) < n; i++ {
		rec := f.records[(f.head-1-i+f.size)%f.size]
		if filter == nil || filter(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Count returns the number of records held.
func (f *Feed) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}

// Subscribers returns the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.handlers)
}
