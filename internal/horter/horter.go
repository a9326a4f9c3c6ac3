// Package horter drives the Horter & Kalb I2C analog expansion boards: the
// 5-channel 10-bit ADC board and the 4-channel 10-bit DAC board.
//
// The ADC provider reads all five channels in one transaction, keeps a value
// cache refreshed by a background monitor and reports changes to listeners.
// The DAC provider clamps, encodes and writes output values.
//
// All bus traffic of a provider goes through one device handle that
// serializes transactions, so foreground reads and writes never interleave
// with the monitor on the wire.
package horter

import (
	"errors"
	"fmt"
	"time"

	"github.com/horter-io/horter-go/internal/analog"
)

const (
	// DefaultADCAddress is the factory I2C address of the ADC board.
	DefaultADCAddress uint16 = 0x08
	// DefaultDACAddress is the factory I2C address of the DAC board.
	DefaultDACAddress uint16 = 0x58

	MinValue = 0
	MaxValue = 1023
	// InvalidValue is returned when a pin does not belong to the board.
	// It is never cached.
	InvalidValue = -1

	ADCChannels = 5
	DACChannels = 4

	ADCName = "horter-adc"
	DACName = "horter-dac"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	MinPollInterval     = 50 * time.Millisecond
	// MaxPollInterval bounds externally supplied intervals.
	MaxPollInterval     = time.Hour
)

// normalizeInterval maps non-positive intervals to the default and raises
// short ones to MinPollInterval.
func normalizeInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultPollInterval
	}
	if d < MinPollInterval {
		return MinPollInterval
	}
	return d
}

// ErrShutdown is returned by operations on a provider that has been shut down.
var ErrShutdown = errors.New("horter: provider is shut down")

// Transport operations reported by TransportError.
const (
	OpRead  = "read"
	OpWrite = "write"
	OpReset = "reset"
)

// TransportError reports a failed bus transaction of a foreground operation.
type TransportError struct {
	Op   string
	Pin  analog.Pin // zero for board-level operations
	Addr uint16
	Err  error
}

func (e *TransportError) Error() string {
	var what string
	switch e.Op {
	case OpRead:
		what = "unable to read ADC input value"
	case OpWrite:
		what = "unable to write DAC output value"
	case OpReset:
		what = "unable to reset ADC pointer"
	default:
		what = e.Op + " failed"
	}
	if e.Pin.IsZero() {
		return fmt.Sprintf("horter: %s at 0x%02x: %v", what, e.Addr, e.Err)
	}
	return fmt.Sprintf("horter: %s %q at 0x%02x: %v", what, e.Pin.Name(), e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
