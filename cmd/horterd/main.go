// Command horterd serves the Horter ADC and DAC boards over HTTP.
// Run with --mock to use a simulated bus (no I2C device required).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/horter-io/horter-go/internal/config"
	"github.com/horter-io/horter-go/internal/zeroconf"
)

func main() {
	var (
		mock    = flag.Bool("mock", false, "use a simulated I2C bus (no device required)")
		addr    = flag.String("addr", "", "HTTP listen address (overrides config)")
		cfgPath = flag.String("config", "", "config file (default: ~/.config/horterd/"+config.FileName+")")
		debug   = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	// Configure logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Resolve config path
	if *cfgPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgPath = filepath.Join(home, ".config", "horterd", config.FileName)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("cannot load config", "path", *cfgPath, "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bus, err := openBus(cfg, *mock)
	if err != nil {
		slog.Error("cannot open i2c bus", "bus", cfg.Bus, "backend", cfg.Backend, "err", err)
		os.Exit(1)
	}
	slog.Info("i2c bus open", "bus", bus.String(), "mock", *mock)

	d, err := newDaemon(ctx, cfg, bus)
	if err != nil {
		_ = bus.Close()
		slog.Error("board initialization failed", "err", err)
		os.Exit(1)
	}

	// Live reload of monitor settings
	go func() {
		if err := config.Watch(ctx, *cfgPath, d.applyConfig); err != nil {
			slog.Warn("config watch disabled", "err", err)
		}
	}()

	// Zeroconf mDNS registration
	if cfg.MDNS {
		name := cfg.MDNSName
		if name == "" {
			name, _ = os.Hostname()
		}
		zc := zeroconf.New(name, listenPort(cfg.HTTPAddr), cfg.ADCAddress, cfg.DACAddress)
		go func() {
			if err := zc.Start(ctx); err != nil {
				slog.Warn("zeroconf failed", "err", err)
			}
		}()
	}

	go func() {
		if err := d.serve(); err != nil {
			slog.Error("server error", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	if err := d.shutdown(shutCtx); err != nil {
		slog.Warn("shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}
