package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/horter-io/horter-go/internal/api"
	"github.com/horter-io/horter-go/internal/config"
	"github.com/horter-io/horter-go/internal/events"
	"github.com/horter-io/horter-go/internal/horter"
	"github.com/horter-io/horter-go/internal/i2cbus"
)

// daemon owns the shared bus and both providers on it.
type daemon struct {
	bus    i2c.BusCloser
	adc    *horter.ADC
	dac    *horter.DAC
	events *events.Bus
	srv    *http.Server
}

// openBus opens the bus described by cfg. With mock set it returns a
// simulated bus whose DAC outputs loop back into the ADC inputs.
func openBus(cfg config.Config, mock bool) (i2c.BusCloser, error) {
	if mock {
		sim := i2cbus.NewSimAt(cfg.ADCAddress, cfg.DACAddress)
		sim.SetLoopback(true)
		return sim, nil
	}
	backend, err := i2cbus.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	return i2cbus.Open(backend, cfg.Bus)
}

func newDaemon(ctx context.Context, cfg config.Config, bus i2c.BusCloser) (*daemon, error) {
	opts := []horter.Option{horter.WithPollInterval(cfg.PollInterval())}
	if cfg.MaxOpsPerSec > 0 {
		opts = append(opts, horter.WithRateLimit(cfg.MaxOpsPerSec, 1))
	}
	adcOpts := opts
	if !cfg.MonitorEnabled {
		adcOpts = append(adcOpts[:len(adcOpts):len(adcOpts)], horter.WithMonitorDisabled())
	}

	adc, err := horter.NewADC(ctx, bus, cfg.ADCAddress, adcOpts...)
	if err != nil {
		return nil, fmt.Errorf("adc: %w", err)
	}
	dac, err := horter.NewDAC(bus, cfg.DACAddress, opts...)
	if err != nil {
		_ = adc.Shutdown()
		return nil, fmt.Errorf("dac: %w", err)
	}

	d := &daemon{bus: bus, adc: adc, dac: dac, events: events.NewBus()}
	adc.AddListener(d.events)
	dac.AddListener(d.events)

	d.srv = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(adc, dac, d.events),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}
	return d, nil
}

// applyConfig applies the settings that may change while running.
func (d *daemon) applyConfig(cfg config.Config) {
	d.adc.SetMonitorInterval(cfg.PollInterval())
	d.adc.SetMonitorEnabled(cfg.MonitorEnabled)
	slog.Info("monitor settings applied",
		"interval", d.adc.MonitorInterval(),
		"enabled", d.adc.MonitorEnabled())
}

// serve runs the HTTP server until Shutdown is called.
func (d *daemon) serve() error {
	slog.Info("horterd listening", "addr", d.srv.Addr)
	if err := d.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// shutdown stops the HTTP server, then both providers, then releases the bus.
func (d *daemon) shutdown(ctx context.Context) error {
	var errs []error
	if err := d.srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	if err := d.adc.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("adc: %w", err))
	}
	if err := d.dac.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("dac: %w", err))
	}
	if err := d.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("bus: %w", err))
	}
	return errors.Join(errs...)
}

// listenPort extracts the port from a listen address, defaulting to 80.
func listenPort(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil || p == "" {
		return 80
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 80
	}
	return port
}
