package tvremote

import (
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// HandlerFunc receives the inbound frame that matched a dispatch entry.
type HandlerFunc func(msg *Message)

// subscription is a one-shot dispatch entry. Each entry gets its own id,
// so registering the same filter twice yields two entries.
type subscription struct {
	id       string
	key      string
	value    string
	wildcard bool
	fn       HandlerFunc
}

func (s *subscription) matches(msg *Message) bool {
	if !msg.Has(s.key) {
		return false
	}
	if s.wildcard {
		return true
	}
	v, ok := msg.String(s.key)
	return ok && v == s.value
}

// callbackRegistry holds one-shot dispatch entries in registration order.
type callbackRegistry struct {
	mu      sync.Mutex
	entries []*subscription
	logger  *slog.Logger
}

func newCallbackRegistry(logger *slog.Logger) *callbackRegistry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &callbackRegistry{logger: logger}
}

// register appends an entry that fires for the first frame whose key equals value.
func (r *callbackRegistry) register(key, value string, fn HandlerFunc) *subscription {
	return r.add(&subscription{key: key, value: value, fn: fn})
}

// registerAny appends an entry that fires for the first frame carrying key.
func (r *callbackRegistry) registerAny(key string, fn HandlerFunc) *subscription {
	return r.add(&subscription{key: key, wildcard: true, fn: fn})
}

func (r *callbackRegistry) add(sub *subscription) *subscription {
	sub.id = uuid.NewString()

	r.mu.Lock()
	r.entries = append(r.entries, sub)
	r.mu.Unlock()

	r.logger.Debug("dispatch entry registered", slog.String("id", sub.id), slog.String("key", sub.key), slog.String("value", sub.value))
	return sub
}

// unregister removes the pending entry with sub's id. Removing an entry
// that already fired or was never registered is a no-op.
func (r *callbackRegistry) unregister(sub *subscription) {
	if sub == nil || sub.id == "" {
		return
	}

	r.mu.Lock()
	removed := false
	for i, e := range r.entries {
		if e.id == sub.id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			removed = true
			break
		}
	}
	r.mu.Unlock()

	if removed {
		r.logger.Debug("dispatch entry unregistered", slog.String("id", sub.id))
	}
}

// dispatch fires the first matching entry and removes it. The handler runs
// after the lock is released so it may register or unregister entries.
func (r *callbackRegistry) dispatch(msg *Message) bool {
	r.mu.Lock()
	var hit *subscription
	for i, e := range r.entries {
		if e.matches(msg) {
			hit = e
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if hit == nil {
		return false
	}
	r.logger.Debug("dispatch entry fired", slog.String("id", hit.id), slog.String("key", hit.key))
	hit.fn(msg)
	return true
}

// clear drops every pending entry.
func (r *callbackRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

func (r *callbackRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
