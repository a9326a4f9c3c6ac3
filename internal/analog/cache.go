package analog

import (
	"reflect"
	"sync"
	"time"
)

// ValueChangeEvent describes a change of a pin's cached value.
type ValueChangeEvent struct {
	Pin  Pin
	Old  float64
	New  float64
	Time time.Time
}

// Listener receives value change events.
// Listeners are called synchronously on the goroutine that changed the value.
type Listener interface {
	HandleValueChange(ev ValueChangeEvent)
}

// ListenerFunc adapts a function to a Listener. Use a *ListenerFunc when the
// listener has to be removed again, since func values are not comparable.
type ListenerFunc func(ev ValueChangeEvent)

func (f ListenerFunc) HandleValueChange(ev ValueChangeEvent) { f(ev) }

// Cache holds the last known value of each pin and dispatches change events.
type Cache struct {
	mu        sync.Mutex
	values    map[Pin]float64
	listeners map[Pin][]Listener
	now       func() time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		values:    make(map[Pin]float64),
		listeners: make(map[Pin][]Listener),
		now:       time.Now,
	}
}

// Value returns the cached value for pin and whether one is present.
func (c *Cache) Value(pin Pin) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[pin]
	return v, ok
}

// Seed stores v for pin without dispatching an event.
func (c *Cache) Seed(pin Pin, v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[pin] = v
}

// Set stores v for pin. If the value differs from the cached one, or nothing
// was cached, the change is dispatched to the pin's listeners in registration
// order and returned with changed=true.
func (c *Cache) Set(pin Pin, v float64) (ev ValueChangeEvent, changed bool) {
	c.mu.Lock()
	old, ok := c.values[pin]
	if ok && old == v {
		c.mu.Unlock()
		return ValueChangeEvent{}, false
	}
	c.values[pin] = v
	ev = ValueChangeEvent{Pin: pin, Old: old, New: v, Time: c.now()}
	ls := make([]Listener, len(c.listeners[pin]))
	copy(ls, c.listeners[pin])
	c.mu.Unlock()

	for _, l := range ls {
		l.HandleValueChange(ev)
	}
	return ev, true
}

// AddListener registers l for each of pins.
func (c *Cache) AddListener(l Listener, pins ...Pin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range pins {
		c.listeners[p] = append(c.listeners[p], l)
	}
}

// RemoveListener unregisters l from each of pins.
func (c *Cache) RemoveListener(l Listener, pins ...Pin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range pins {
		ls := c.listeners[p]
		kept := ls[:0]
		for _, x := range ls {
			if !sameListener(x, l) {
				kept = append(kept, x)
			}
		}
		if len(kept) == 0 {
			delete(c.listeners, p)
			continue
		}
		c.listeners[p] = kept
	}
}

// ListenerCount returns the number of listeners registered for pin.
func (c *Cache) ListenerCount(pin Pin) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners[pin])
}

// Snapshot returns a copy of all cached values.
func (c *Cache) Snapshot() map[Pin]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[Pin]float64, len(c.values))
	for p, v := range c.values {
		out[p] = v
	}
	return out
}

// sameListener compares listeners without panicking on func-typed values.
func sameListener(a, b Listener) bool {
	if !reflect.TypeOf(a).Comparable() {
		return false
	}
	return a == b
}
