package horter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/horter-io/horter-go/internal/analog"
	"github.com/horter-io/horter-go/internal/i2cbus"
)

// ADC is the provider for the 5-channel ADC board.
// It is safe for concurrent use.
type ADC struct {
	base *analog.ProviderBase
	dev  *device
	log  *slog.Logger
	mon  *monitor

	cycleMu sync.Mutex // one poll cycle at a time

	thrMu      sync.Mutex
	thresholds map[analog.Pin]float64
}

// NewADC creates an ADC provider on a bus owned by the caller. The bus is
// not closed on Shutdown.
//
// Construction resets the board's read pointer, seeds the value cache with
// one acquisition of every channel (no events are emitted for it) and starts
// the monitor unless WithMonitorDisabled is given.
func NewADC(ctx context.Context, bus i2c.Bus, addr uint16, opts ...Option) (*ADC, error) {
	return newADC(ctx, bus, addr, BorrowsBus, buildOptions(opts))
}

// OpenADC opens I2C bus busNumber and creates an ADC provider that owns it.
func OpenADC(ctx context.Context, busNumber int, addr uint16, opts ...Option) (*ADC, error) {
	o := buildOptions(opts)
	bus, err := i2cbus.Open(o.backend, busNumber)
	if err != nil {
		return nil, fmt.Errorf("horter: open adc bus: %w", err)
	}
	a, err := newADC(ctx, bus, addr, OwnsBus, o)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	return a, nil
}

func newADC(ctx context.Context, bus i2c.Bus, addr uint16, owner Ownership, o *options) (*ADC, error) {
	dev, err := newDevice(bus, addr, owner, o)
	if err != nil {
		return nil, err
	}
	a := &ADC{
		base:       analog.NewProviderBase(ADCName, adcPins),
		dev:        dev,
		log:        o.logger,
		thresholds: make(map[analog.Pin]float64),
	}

	if err := dev.write(ctx, []byte{adcPointer}); err != nil {
		return nil, &TransportError{Op: OpReset, Addr: addr, Err: err}
	}
	for _, pin := range adcPins {
		v, err := a.ImmediateValue(ctx, pin)
		if err != nil {
			return nil, err
		}
		a.base.Cache().Seed(pin, v)
	}

	a.mon = newMonitor(o.pollInterval, a.monitorCycle)
	if !o.monitorOff {
		a.mon.setEnabled(true)
	}
	a.log.Info("horter: adc ready",
		"addr", fmt.Sprintf("0x%02x", addr),
		"bus", dev.busName(),
		"bus_owner", owner.String(),
		"interval", a.mon.getInterval(),
		"monitor", !o.monitorOff)
	return a, nil
}

// Name returns the provider name.
func (a *ADC) Name() string { return a.base.Name() }

// Addr returns the board's I2C address.
func (a *ADC) Addr() uint16 { return a.dev.addr() }

// Pins returns the input pins in channel order.
func (a *ADC) Pins() []analog.Pin { return a.base.Pins() }

func (a *ADC) MinSupportedValue() float64 { return MinValue }
func (a *ADC) MaxSupportedValue() float64 { return MaxValue }

// readAll reads the whole frame in one transaction.
func (a *ADC) readAll(ctx context.Context) (ADCFrame, error) {
	var frame ADCFrame
	err := a.dev.read(ctx, adcPointer, frame[:])
	return frame, err
}

// ImmediateValue reads pin's current code from the board. It does not update
// the cache. A pin that is not an input of this board yields InvalidValue
// without touching the bus.
func (a *ADC) ImmediateValue(ctx context.Context, pin analog.Pin) (float64, error) {
	if _, ok := adcOffset(pin); !ok {
		return InvalidValue, nil
	}
	if a.base.IsShutdown() {
		return InvalidValue, ErrShutdown
	}
	frame, err := a.readAll(ctx)
	if err != nil {
		return InvalidValue, &TransportError{Op: OpRead, Pin: pin, Addr: a.dev.addr(), Err: err}
	}
	return float64(DecodeChannel(frame, pin)), nil
}

// Value returns pin's cached value, or InvalidValue if none is cached.
func (a *ADC) Value(pin analog.Pin) float64 {
	v, ok := a.base.Cache().Value(pin)
	if !ok {
		return InvalidValue
	}
	return v
}

// Values returns the cached value of every input.
func (a *ADC) Values() map[analog.Pin]float64 { return a.base.Cache().Snapshot() }

// AddListener registers l for change events on pins, or on every input when
// no pins are given.
func (a *ADC) AddListener(l analog.Listener, pins ...analog.Pin) {
	if len(pins) == 0 {
		pins = adcPins
	}
	a.base.Cache().AddListener(l, pins...)
}

// RemoveListener unregisters l from pins, or from every input when no pins are given.
func (a *ADC) RemoveListener(l analog.Listener, pins ...analog.Pin) {
	if len(pins) == 0 {
		pins = adcPins
	}
	a.base.Cache().RemoveListener(l, pins...)
}

// SetEventThreshold sets the minimum change that is cached and reported for
// pins, or for every input when no pins are given. Zero reports any change.
func (a *ADC) SetEventThreshold(threshold float64, pins ...analog.Pin) {
	if len(pins) == 0 {
		pins = adcPins
	}
	a.thrMu.Lock()
	defer a.thrMu.Unlock()
	for _, p := range pins {
		a.thresholds[p] = math.Abs(threshold)
	}
}

// EventThreshold returns pin's event threshold.
func (a *ADC) EventThreshold(pin analog.Pin) float64 {
	a.thrMu.Lock()
	defer a.thrMu.Unlock()
	return a.thresholds[pin]
}

// SetMonitorInterval changes the time between monitor cycles.
func (a *ADC) SetMonitorInterval(d time.Duration) {
	a.mon.setInterval(d)
	a.log.Debug("horter: adc monitor interval set", "interval", a.mon.getInterval())
}

// MonitorInterval returns the time between monitor cycles.
func (a *ADC) MonitorInterval() time.Duration { return a.mon.getInterval() }

// SetMonitorEnabled starts or stops the background monitor. Stopping lets a
// cycle that is already running finish. It has no effect after Shutdown.
func (a *ADC) SetMonitorEnabled(on bool) {
	if a.base.IsShutdown() {
		return
	}
	a.mon.setEnabled(on)
	a.log.Debug("horter: adc monitor", "enabled", on)
}

// MonitorEnabled reports whether the background monitor is running.
func (a *ADC) MonitorEnabled() bool { return a.mon.isEnabled() }

// PollOnce runs one monitor cycle on the calling goroutine. It is serialized
// with the background monitor. Read failures are joined into the returned error.
func (a *ADC) PollOnce(ctx context.Context) error {
	if a.base.IsShutdown() {
		return ErrShutdown
	}
	return a.poll(ctx)
}

func (a *ADC) monitorCycle(ctx context.Context) {
	_ = a.poll(ctx)
}

// poll refreshes every channel in channel order. Change events are dispatched
// in the same order. A failed channel keeps its stale value.
func (a *ADC) poll(ctx context.Context) error {
	a.cycleMu.Lock()
	defer a.cycleMu.Unlock()

	var errs []error
	for _, pin := range adcPins {
		v, err := a.ImmediateValue(ctx, pin)
		if err != nil {
			if errors.Is(err, ErrShutdown) {
				return err
			}
			a.log.Warn("horter: poll read failed", "pin", pin.Name(), "err", err)
			errs = append(errs, err)
			continue
		}
		if v == InvalidValue {
			continue
		}
		a.update(pin, v)
	}
	return errors.Join(errs...)
}

func (a *ADC) update(pin analog.Pin, v float64) {
	cache := a.base.Cache()
	if old, ok := cache.Value(pin); ok && math.Abs(v-old) <= a.EventThreshold(pin) {
		return
	}
	cache.Set(pin, v)
}

// Shutdown stops the monitor, waits for a running cycle and closes the bus
// if the provider opened it. Calling it again is a no-op. It must not be
// called from a listener, which runs on the monitor goroutine.
func (a *ADC) Shutdown() error {
	err := a.base.Shutdown(
		func() error {
			a.mon.stop()
			return nil
		},
		a.dev.close,
	)
	a.log.Debug("horter: adc shut down", "addr", fmt.Sprintf("0x%02x", a.dev.addr()), "err", err)
	return err
}
