// Command horterctl reads and writes single channels of the Horter analog
// boards and watches the inputs for changes.
//
//	horterctl [--bus N] [--backend periph|ioctl|sim] [--adc 0x08] [--dac 0x58] read <ch>
//	horterctl [flags] write <ch> <value>
//	horterctl [flags] watch [--interval 100ms] [--for 10s]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/horter-io/horter-go/internal/analog"
	"github.com/horter-io/horter-go/internal/horter"
	"github.com/horter-io/horter-go/internal/i2cbus"
)

var errUsage = errors.New("usage: horterctl [flags] read <ch> | write <ch> <value> | watch [--interval d] [--for d]")

type globals struct {
	bus     int
	backend i2cbus.Backend
	adc     uint16
	dac     uint16
	debug   bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "horterctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("horterctl", flag.ContinueOnError)
	var (
		bus     = fs.Int("bus", 1, "I2C bus number")
		backend = fs.String("backend", string(i2cbus.BackendPeriph), "bus backend: periph, ioctl or sim")
		adc     = fs.Uint("adc", uint(horter.DefaultADCAddress), "ADC board address")
		dac     = fs.Uint("dac", uint(horter.DefaultDACAddress), "DAC board address")
		debug   = fs.Bool("debug", false, "enable debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	b, err := i2cbus.ParseBackend(*backend)
	if err != nil {
		return err
	}
	if *adc > 0x7F || *dac > 0x7F {
		return fmt.Errorf("address out of 7-bit range")
	}
	g := globals{bus: *bus, backend: b, adc: uint16(*adc), dac: uint16(*dac), debug: *debug}

	logLevel := slog.LevelWarn
	if g.debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}
	switch rest[0] {
	case "read":
		return cmdRead(ctx, g, logger, rest[1:], stdout)
	case "write":
		return cmdWrite(ctx, g, logger, rest[1:], stdout)
	case "watch":
		return cmdWatch(ctx, g, logger, rest[1:], stdout)
	}
	return fmt.Errorf("unknown command %q: %w", rest[0], errUsage)
}

type shutdowner interface {
	Shutdown() error
}

// shutdownInto shuts p down and joins any failure into *err.
func shutdownInto(err *error, p shutdowner) {
	if serr := p.Shutdown(); serr != nil {
		*err = errors.Join(*err, fmt.Errorf("shutdown: %w", serr))
	}
}

func channelArg(s string, lookup func(int) (analog.Pin, bool)) (analog.Pin, error) {
	ch, err := strconv.Atoi(s)
	if err != nil {
		return analog.Pin{}, fmt.Errorf("invalid channel %q", s)
	}
	pin, ok := lookup(ch)
	if !ok {
		return analog.Pin{}, fmt.Errorf("no channel %d", ch)
	}
	return pin, nil
}

func cmdRead(ctx context.Context, g globals, logger *slog.Logger, args []string, stdout io.Writer) (err error) {
	if len(args) != 1 {
		return errUsage
	}
	pin, err := channelArg(args[0], horter.ADCPin)
	if err != nil {
		return err
	}
	a, err := horter.OpenADC(ctx, g.bus, g.adc,
		horter.WithBackend(g.backend), horter.WithLogger(logger), horter.WithMonitorDisabled())
	if err != nil {
		return err
	}
	defer shutdownInto(&err, a)

	v, err := a.ImmediateValue(ctx, pin)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %g\n", pin.Name(), v)
	return nil
}

func cmdWrite(ctx context.Context, g globals, logger *slog.Logger, args []string, stdout io.Writer) (err error) {
	if len(args) != 2 {
		return errUsage
	}
	pin, err := channelArg(args[0], horter.DACPin)
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q", args[1])
	}
	d, err := horter.OpenDAC(g.bus, g.dac, horter.WithBackend(g.backend), horter.WithLogger(logger))
	if err != nil {
		return err
	}
	defer shutdownInto(&err, d)

	if err := d.SetValue(ctx, pin, v); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %g\n", pin.Name(), d.Value(pin))
	return nil
}

func cmdWatch(ctx context.Context, g globals, logger *slog.Logger, args []string, stdout io.Writer) (err error) {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	interval := fs.Duration("interval", horter.DefaultPollInterval, "poll interval")
	dur := fs.Duration("for", 0, "stop after this long (0 = until interrupted)")
	if err = fs.Parse(args); err != nil {
		return err
	}
	if *dur > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *dur)
		defer cancel()
	}

	a, err := horter.OpenADC(ctx, g.bus, g.adc,
		horter.WithBackend(g.backend), horter.WithLogger(logger), horter.WithPollInterval(*interval))
	if err != nil {
		return err
	}
	defer shutdownInto(&err, a)

	var mu sync.Mutex
	for _, p := range a.Pins() {
		fmt.Fprintf(stdout, "%s: %g\n", p.Name(), a.Value(p))
	}
	a.AddListener(analog.ListenerFunc(func(ev analog.ValueChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(stdout, "%s %s: %g -> %g\n",
			ev.Time.Format(time.TimeOnly), ev.Pin.Name(), ev.Old, ev.New)
	}))

	<-ctx.Done()
	return nil
}
