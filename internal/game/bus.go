package game

import (
	"log"
	"sync"

	"tony-trivia-service/internal/domain"
)

// EventHandler receives domain events synchronously, in registration order.
type EventHandler func(domain.GameEvent)

// eventBus is the shared publish/subscribe fabric for one game's managers.
// Subscribe returns an unsubscribe func; a panicking handler is isolated and
// logged so the remaining handlers still run.
type eventBus struct {
	mu       sync.Mutex
	nextID   int
	order    []int
	handlers map[int]EventHandler
}

func newEventBus() *eventBus {
	return &eventBus{handlers: make(map[int]EventHandler)}
}

func (b *eventBus) subscribe(h EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.order = append(b.order, id)
	b.handlers[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

func (b *eventBus) publish(evt domain.GameEvent) {
	b.mu.Lock()
	handlers := make([]EventHandler, 0, len(b.order))
	for _, id := range b.order {
		if h, ok := b.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		safeNotify(h, evt)
	}
}

func (b *eventBus) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.order = nil
	b.handlers = make(map[int]EventHandler)
}

func safeNotify(h EventHandler, evt domain.GameEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("event handler panic for %s: %v", evt.Type, r)
		}
	}()
	h(evt)
}
