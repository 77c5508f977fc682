package events

import (
	"log/slog"
	"sync"

	"github.com/lysyi3m/huntfeed/app/feed"
)

type Type string

const (
	FeedRegistered Type = "feed:registered"
	FeedUpdated    Type = "feed:updated"
	FeedRemoved    Type = "feed:removed"
	ItemNew        Type = "item:new"
)

// Event is the immutable payload handed to observers. Only the fields
// relevant to the event type are set.
type Event struct {
	Type    Type
	FeedID  string
	FeedURL string
	Item    *feed.Item // ItemNew
	Count   int        // FeedUpdated: number of new items
	Source  string     // "poll" or "websub"
}

type Handler func(Event)

// Bus is a synchronous observer registry. Handlers run in registration
// order on the emitting goroutine; a panicking handler is logged and
// never breaks dispatch or the triggering operation.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Type][]Handler)}
}

func (b *Bus) On(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[e.Type]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(h, e)
	}
}

func (b *Bus) dispatch(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event handler panicked", "event", string(e.Type), "feed", e.FeedID, "panic", r)
		}
	}()
	h(e)
}
