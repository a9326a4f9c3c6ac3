// Package analog provides the analog pin abstraction shared by the Horter
// providers: immutable pin identities, a per-pin value cache that dispatches
// change events, and the provider lifecycle base.
package analog

import "fmt"

// Mode is the capability of an analog pin.
type Mode uint8

const (
	ModeAnalogInput Mode = iota + 1
	ModeAnalogOutput
)

func (m Mode) String() string {
	switch m {
	case ModeAnalogInput:
		return "analog_input"
	case ModeAnalogOutput:
		return "analog_output"
	default:
		return "unknown"
	}
}

// Pin identifies one physical analog line on a provider.
// Pins are comparable and may be used as map keys. The zero Pin matches no line.
type Pin struct {
	provider string
	address  int
	name     string
	mode     Mode
}

// NewPin creates a pin identity.
func NewPin(provider string, address int, name string, mode Mode) Pin {
	return Pin{provider: provider, address: address, name: name, mode: mode}
}

// Provider returns the name of the provider that owns the pin.
func (p Pin) Provider() string { return p.provider }

// Address returns the zero-based channel index of the pin on its provider.
func (p Pin) Address() int { return p.address }

// Name returns the human-readable pin name, e.g. "ANALOG INPUT 0".
func (p Pin) Name() string { return p.name }

// Mode returns the pin capability.
func (p Pin) Mode() Mode { return p.mode }

// IsZero reports whether p is the zero Pin.
func (p Pin) IsZero() bool { return p == Pin{} }

func (p Pin) String() string {
	if p.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s/%d(%s)", p.provider, p.address, p.name)
}
