package events

import "sync"

// Bus is a simple pub/sub for broadcasting values to subscribers.
// Publish never blocks: a subscriber with a full buffer misses the value.
type Bus[T any] struct {
	mu      sync.Mutex
	clients map[chan T]struct{}
	size    int
}

// NewBus creates a bus whose subscriber channels hold size values.
func NewBus[T any](size int) *Bus[T] {
	if size <= 0 {
		size = 16
	}
	return &Bus[T]{
		clients: make(map[chan T]struct{}),
		size:    size,
	}
}

// Subscribe returns a channel that receives published values and a func
// that removes the subscription. The channel is closed on cancel.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, b.size)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish sends v to all subscribers.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- v:
		default:
			// Drop if buffer full
		}
	}
}

// Len returns the number of active subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}
