package horter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/i2c"

	"github.com/horter-io/horter-go/internal/analog"
	"github.com/horter-io/horter-go/internal/i2cbus"
)

// DAC is the provider for the 4-channel DAC board.
// It is safe for concurrent use.
type DAC struct {
	base *analog.ProviderBase
	dev  *device
	log  *slog.Logger

	mu             sync.Mutex
	shutdownValues map[analog.Pin]float64
}

// NewDAC creates a DAC provider on a bus owned by the caller. No bus traffic
// happens until the first SetValue.
func NewDAC(bus i2c.Bus, addr uint16, opts ...Option) (*DAC, error) {
	return newDAC(bus, addr, BorrowsBus, buildOptions(opts))
}

// OpenDAC opens I2C bus busNumber and creates a DAC provider that owns it.
func OpenDAC(busNumber int, addr uint16, opts ...Option) (*DAC, error) {
	o := buildOptions(opts)
	bus, err := i2cbus.Open(o.backend, busNumber)
	if err != nil {
		return nil, fmt.Errorf("horter: open dac bus: %w", err)
	}
	d, err := newDAC(bus, addr, OwnsBus, o)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	return d, nil
}

func newDAC(bus i2c.Bus, addr uint16, owner Ownership, o *options) (*DAC, error) {
	dev, err := newDevice(bus, addr, owner, o)
	if err != nil {
		return nil, err
	}
	d := &DAC{
		base:           analog.NewProviderBase(DACName, dacPins),
		dev:            dev,
		log:            o.logger,
		shutdownValues: make(map[analog.Pin]float64),
	}
	d.log.Info("horter: dac ready",
		"addr", fmt.Sprintf("0x%02x", addr),
		"bus", dev.busName(),
		"bus_owner", owner.String())
	return d, nil
}

// Name returns the provider name.
func (d *DAC) Name() string { return d.base.Name() }

// Addr returns the board's I2C address.
func (d *DAC) Addr() uint16 { return d.dev.addr() }

// Pins returns the output pins in channel order.
func (d *DAC) Pins() []analog.Pin { return d.base.Pins() }

func (d *DAC) MinSupportedValue() float64 { return MinValue }
func (d *DAC) MaxSupportedValue() float64 { return MaxValue }

// SetValue clamps v to [MinValue, MaxValue] and writes its integer part to
// pin. On success the clamped value is cached, which notifies listeners when
// it changed. A pin that is not an output of this board is ignored.
func (d *DAC) SetValue(ctx context.Context, pin analog.Pin, v float64) error {
	if _, ok := dacSelector(pin); !ok {
		return nil
	}
	if d.base.IsShutdown() {
		return ErrShutdown
	}
	return d.write(ctx, pin, v)
}

func (d *DAC) write(ctx context.Context, pin analog.Pin, v float64) error {
	sel, ok := dacSelector(pin)
	if !ok {
		return nil
	}
	v = Clamp(v)
	frame := EncodeDAC(sel, int(v))
	if err := d.dev.write(ctx, frame[:]); err != nil {
		return &TransportError{Op: OpWrite, Pin: pin, Addr: d.dev.addr(), Err: err}
	}
	d.base.Cache().Set(pin, v)
	return nil
}

// Value returns the last value written to pin, or InvalidValue if none.
func (d *DAC) Value(pin analog.Pin) float64 {
	v, ok := d.base.Cache().Value(pin)
	if !ok {
		return InvalidValue
	}
	return v
}

// Values returns the last written value of every output that has been set.
func (d *DAC) Values() map[analog.Pin]float64 { return d.base.Cache().Snapshot() }

// AddListener registers l for change events on pins, or on every output when
// no pins are given.
func (d *DAC) AddListener(l analog.Listener, pins ...analog.Pin) {
	if len(pins) == 0 {
		pins = dacPins
	}
	d.base.Cache().AddListener(l, pins...)
}

// RemoveListener unregisters l from pins, or from every output when no pins are given.
func (d *DAC) RemoveListener(l analog.Listener, pins ...analog.Pin) {
	if len(pins) == 0 {
		pins = dacPins
	}
	d.base.Cache().RemoveListener(l, pins...)
}

// SetShutdownValue makes Shutdown drive pins, or every output when no pins
// are given, to v before the bus is released.
func (d *DAC) SetShutdownValue(v float64, pins ...analog.Pin) {
	if len(pins) == 0 {
		pins = dacPins
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range pins {
		if _, ok := dacSelector(p); ok {
			d.shutdownValues[p] = v
		}
	}
}

// ShutdownValue returns the value pin is driven to on Shutdown, if any.
func (d *DAC) ShutdownValue(pin analog.Pin) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.shutdownValues[pin]
	return v, ok
}

// Shutdown writes the configured shutdown values, then closes the bus if the
// provider opened it. Calling it again is a no-op.
func (d *DAC) Shutdown() error {
	err := d.base.Shutdown(
		d.applyShutdownValues,
		d.dev.close,
	)
	d.log.Debug("horter: dac shut down", "addr", fmt.Sprintf("0x%02x", d.dev.addr()), "err", err)
	return err
}

func (d *DAC) applyShutdownValues() error {
	for _, pin := range dacPins {
		v, ok := d.ShutdownValue(pin)
		if !ok {
			continue
		}
		if err := d.write(context.Background(), pin, v); err != nil {
			d.log.Warn("horter: dac shutdown value not applied", "pin", pin.Name(), "err", err)
		}
	}
	return nil
}
