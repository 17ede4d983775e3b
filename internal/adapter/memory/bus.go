package memory

import (
	"sync"

	"locova/internal/domain/realtime"
)

// Bus fans change notifications out to in-process subscribers
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(realtime.Change)
}

// NewBus creates a new in-memory change bus
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]func(realtime.Change))}
}

// Publish delivers change synchronously to every subscriber of its table
func (b *Bus) Publish(change realtime.Change) error {
	b.mu.RLock()
	handlers := make([]func(realtime.Change), 0, len(b.subs[change.Table]))
	for _, h := range b.subs[change.Table] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(change)
	}
	return nil
}

// Subscribe registers onChange for table
func (b *Bus) Subscribe(table string, onChange func(realtime.Change)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[table] == nil {
		b.subs[table] = make(map[int]func(realtime.Change))
	}
	b.subs[table][id] = onChange

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[table], id)
	}, nil
}
