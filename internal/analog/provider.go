package analog

import "sync"

// ProviderBase carries the state every analog provider shares: its name, the
// fixed pin set, the value cache and the shutdown latch.
type ProviderBase struct {
	name  string
	pins  []Pin
	cache *Cache

	mu       sync.Mutex
	shutdown bool
}

// NewProviderBase creates a provider base over a fixed set of pins.
func NewProviderBase(name string, pins []Pin) *ProviderBase {
	cp := make([]Pin, len(pins))
	copy(cp, pins)
	return &ProviderBase{name: name, pins: cp, cache: NewCache()}
}

// Name returns the provider name.
func (b *ProviderBase) Name() string { return b.name }

// Pins returns a copy of the provider's pins in channel order.
func (b *ProviderBase) Pins() []Pin {
	cp := make([]Pin, len(b.pins))
	copy(cp, b.pins)
	return cp
}

// HasPin reports whether pin belongs to this provider.
func (b *ProviderBase) HasPin(pin Pin) bool {
	for _, p := range b.pins {
		if p == pin {
			return true
		}
	}
	return false
}

// Cache returns the provider's value cache.
func (b *ProviderBase) Cache() *Cache { return b.cache }

// IsShutdown reports whether Shutdown has been called.
func (b *ProviderBase) IsShutdown() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shutdown
}

// Shutdown runs hooks in order the first time it is called. Later calls are
// no-ops and return nil. Every hook runs even if an earlier one fails; the
// first error is returned.
func (b *ProviderBase) Shutdown(hooks ...func() error) error {
	b.mu.Lock()
	if b.shutdown {
		b.mu.Unlock()
		return nil
	}
	b.shutdown = true
	b.mu.Unlock()

	var first error
	for _, h := range hooks {
		if err := h(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
