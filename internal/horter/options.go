package horter

import (
	"log/slog"
	"time"

	"github.com/horter-io/horter-go/internal/i2cbus"
)

type options struct {
	pollInterval time.Duration
	monitorOff   bool
	opsPerSec    float64
	burst        int
	logger       *slog.Logger
	backend      i2cbus.Backend
}

// Option configures a provider.
type Option func(*options)

func buildOptions(opts []Option) *options {
	o := &options{
		pollInterval: DefaultPollInterval,
		backend:      i2cbus.BackendPeriph,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithPollInterval sets the time between ADC monitor cycles.
// Zero selects DefaultPollInterval; shorter than MinPollInterval is raised to it.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = normalizeInterval(d) }
}

// WithMonitorDisabled constructs the ADC provider with its monitor off.
func WithMonitorDisabled() Option {
	return func(o *options) { o.monitorOff = true }
}

// WithRateLimit caps bus transactions at opsPerSec with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(opsPerSec float64, burst int) Option {
	return func(o *options) {
		o.opsPerSec = opsPerSec
		o.burst = burst
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBackend selects how OpenADC and OpenDAC open the bus.
func WithBackend(b i2cbus.Backend) Option {
	return func(o *options) { o.backend = b }
}
