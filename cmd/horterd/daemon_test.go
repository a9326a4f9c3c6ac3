package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horter-io/horter-go/internal/config"
	"github.com/horter-io/horter-go/internal/horter"
	"github.com/horter-io/horter-go/internal/i2cbus"
)

func TestListenPort(t *testing.T) {
	tests := []struct {
		addr string
		want int
	}{
		{":8080", 8080},
		{"127.0.0.1:9000", 9000},
		{"localhost", 80},
		{":http", 80},
	}
	for _, tc := range tests {
		if got := listenPort(tc.addr); got != tc.want {
			t.Errorf("listenPort(%q) = %d, want %d", tc.addr, got, tc.want)
		}
	}
}

func TestDaemonMockLoopback(t *testing.T) {
	cfg := config.Default()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.PollIntervalMS = 50

	bus, err := openBus(cfg, true)
	require.NoError(t, err)
	d, err := newDaemon(context.Background(), cfg, bus)
	require.NoError(t, err)

	out, _ := horter.DACPin(1)
	in, _ := horter.ADCPin(1)
	require.NoError(t, d.dac.SetValue(context.Background(), out, 640))
	assert.Eventually(t, func() bool { return d.adc.Value(in) == 640 }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, d.shutdown(context.Background()))
	assert.Equal(t, 1, bus.(*i2cbus.Sim).CloseCount())
}

func TestDaemonApplyConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MonitorEnabled = false

	bus, err := openBus(cfg, true)
	require.NoError(t, err)
	d, err := newDaemon(context.Background(), cfg, bus)
	require.NoError(t, err)
	defer func() { _ = d.shutdown(context.Background()) }()
	assert.False(t, d.adc.MonitorEnabled())

	cfg.MonitorEnabled = true
	cfg.PollIntervalMS = 250
	d.applyConfig(cfg)
	assert.True(t, d.adc.MonitorEnabled())
	assert.Equal(t, 250*time.Millisecond, d.adc.MonitorInterval())
}

func TestDaemonBoardMissing(t *testing.T) {
	cfg := config.Default()
	cfg.ADCAddress = 0x10 // nothing answers there

	sim := i2cbus.NewSim()
	_, err := newDaemon(context.Background(), cfg, sim)
	assert.Error(t, err)
}
