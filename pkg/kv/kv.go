// Package kv provides the persistent key-value store shared by every tab of
// the application, together with its change-notification channels. Values
// are opaque byte slices; writes are last-writer-wins at whole-value
// granularity.
package kv

import "sync"

// Origin says where a change notification came from.
type Origin int

const (
	// OriginExternal marks a write performed through another tab's handle.
	// It mirrors the browser storage event, which never fires in the
	// document that performed the write.
	OriginExternal Origin = iota
	// OriginLocal marks an explicit same-tab notification published after a
	// write in this tab, so in-page consumers can re-read without a reload.
	OriginLocal
)

func (o Origin) String() string {
	if o == OriginLocal {
		return "local"
	}
	return "external"
}

// Event is a single change notification.
type Event struct {
	Key    string
	Origin Origin
}

// Store is the per-tab view of the shared key-value store.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) ([]byte, bool, error)
	// Set writes the value and notifies every other tab of the same store.
	Set(key string, value []byte) error
	// Remove deletes the key and notifies every other tab.
	Remove(key string) error
	// Subscribe registers a callback for change events delivered to this
	// tab. The returned func cancels the subscription.
	Subscribe(fn func(Event)) (cancel func())
	// Publish emits an OriginLocal event for key to this tab's subscribers
	// only. It does not touch stored data.
	Publish(key string)
}

// backend is the durable half of a store; Tab layers notifications on top.
type backend interface {
	get(key string) ([]byte, bool, error)
	set(key string, value []byte) error
	remove(key string) error
}

// hub fans change events out to every attached tab.
type hub struct {
	mu   sync.Mutex
	tabs map[*Tab]struct{}
}

func (h *hub) attach(t *Tab) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tabs == nil {
		h.tabs = make(map[*Tab]struct{})
	}
	h.tabs[t] = struct{}{}
}

func (h *hub) detach(t *Tab) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.tabs, t)
}

// broadcast delivers ev to every tab except the writer. Callbacks run on
// the caller's goroutine; ordering is the write order.
func (h *hub) broadcast(from *Tab, ev Event) {
	h.mu.Lock()
	targets := make([]*Tab, 0, len(h.tabs))
	for t := range h.tabs {
		if t != from {
			targets = append(targets, t)
		}
	}
	h.mu.Unlock()
	for _, t := range targets {
		t.emit(ev)
	}
}

// Tab is one logical tab's handle onto a shared store. All tabs opened from
// the same DB (or Memory) observe each other's writes.
type Tab struct {
	be  backend
	hub *hub

	mu   sync.Mutex
	subs map[int]func(Event)
	next int
}

func newTab(be backend, h *hub) *Tab {
	t := &Tab{be: be, hub: h, subs: make(map[int]func(Event))}
	h.attach(t)
	return t
}

// Close detaches the tab from the shared store; it stops receiving events.
func (t *Tab) Close() {
	t.hub.detach(t)
}

func (t *Tab) Get(key string) ([]byte, bool, error) {
	readsTotal.Inc()
	return t.be.get(key)
}

func (t *Tab) Set(key string, value []byte) error {
	if err := t.be.set(key, value); err != nil {
		return err
	}
	writesTotal.WithLabelValues("set").Inc()
	t.hub.broadcast(t, Event{Key: key, Origin: OriginExternal})
	return nil
}

func (t *Tab) Remove(key string) error {
	if err := t.be.remove(key); err != nil {
		return err
	}
	writesTotal.WithLabelValues("remove").Inc()
	t.hub.broadcast(t, Event{Key: key, Origin: OriginExternal})
	return nil
}

func (t *Tab) Subscribe(fn func(Event)) (cancel func()) {
	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

func (t *Tab) Publish(key string) {
	t.emit(Event{Key: key, Origin: OriginLocal})
}

func (t *Tab) emit(ev Event) {
	t.mu.Lock()
	fns := make([]func(Event), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	eventsTotal.WithLabelValues(ev.Origin.String()).Inc()
	for _, fn := range fns {
		fn(ev)
	}
}
