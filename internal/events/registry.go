package events

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ShayCichocki/wkagent/internal/logging"
)

// Registry dispatches events to listeners registered by name. A nil
// *Registry is valid and drops everything.
type Registry struct {
	mu     sync.RWMutex
	byName map[Name][]Listener
	all    []Listener

	faults atomic.Uint64
	log    logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log logging.Logger) *Registry {
	if log == nil {
		log = logging.Nop()
	}
	return &Registry{byName: make(map[Name][]Listener), log: log}
}

// On registers fn for one event name.
func (r *Registry) On(name Name, fn Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = append(r.byName[name], fn)
}

// OnAll registers fn for every event.
func (r *Registry) OnAll(fn Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, fn)
}

// Emit stamps e and delivers it to matching listeners in registration
// order. A panicking listener is recovered and counted; the rest still run.
func (r *Registry) Emit(e Event) {
	if r == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	r.mu.RLock()
	named := r.byName[e.Name]
	listeners := make([]Listener, 0, len(named)+len(r.all))
	listeners = append(listeners, named...)
	listeners = append(listeners, r.all...)
	r.mu.RUnlock()

	for _, fn := range listeners {
		r.call(fn, e)
	}
}

func (r *Registry) call(fn Listener, e Event) {
	defer func() {
		if p := recover(); p != nil {
			n := r.faults.Add(1)
			r.log.Warn("event listener panicked", "event", e.Name, "panic", fmt.Sprint(p), "faults", n)
		}
	}()
	fn(e)
}

// Faults returns how many listener panics were recovered.
func (r *Registry) Faults() uint64 {
	if r == nil {
		return 0
	}
	return r.faults.Load()
}
