package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Bridge forwards events into a buffered channel for consumers that read
// asynchronously. When the buffer stays full it drops events rather than
// blocking the engine.
type Bridge struct {
	mu      sync.RWMutex
	ch      chan Event
	closed  bool
	wait    time.Duration
	dropped atomic.Uint64
}

// NewBridge creates a bridge with the given buffer size.
func NewBridge(size int) *Bridge {
	if size <= 0 {
		size = 100
	}
	return &Bridge{ch: make(chan Event, size), wait: 100 * time.Millisecond}
}

// Attach registers the bridge on every event of r.
func (b *Bridge) Attach(r *Registry) {
	r.OnAll(b.Handle)
}

// Handle is the Listener that feeds the channel.
func (b *Bridge) Handle(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	select {
	case b.ch <- e:
		return
	default:
	}

	timer := time.NewTimer(b.wait)
	defer timer.Stop()
	select {
	case b.ch <- e:
	case <-timer.C:
		b.dropped.Add(1)
	}
}

// Events returns the receive side of the bridge.
func (b *Bridge) Events() <-chan Event {
	return b.ch
}

// Dropped returns the number of events discarded because the buffer was full.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes the channel. Later events are ignored.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}
