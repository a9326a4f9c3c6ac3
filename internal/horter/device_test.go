package horter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horter-io/horter-go/internal/i2cbus"
)

func TestNormalizeInterval(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, DefaultPollInterval},
		{-time.Second, DefaultPollInterval},
		{time.Millisecond, MinPollInterval},
		{MinPollInterval, MinPollInterval},
		{time.Second, time.Second},
	}
	for _, tc := range tests {
		if got := normalizeInterval(tc.in); got != tc.want {
			t.Errorf("normalizeInterval(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDeviceOwnership(t *testing.T) {
	tests := []struct {
		owner      Ownership
		wantCloses int
	}{
		{BorrowsBus, 0},
		{OwnsBus, 1},
	}
	for _, tc := range tests {
		t.Run(tc.owner.String(), func(t *testing.T) {
			sim := i2cbus.NewSim()
			d, err := newDevice(sim, i2cbus.SimDACAddr, tc.owner, buildOptions(nil))
			require.NoError(t, err)
			require.NoError(t, d.write(context.Background(), []byte{0, 1, 0}))

			require.NoError(t, d.close())
			require.NoError(t, d.close())
			assert.Equal(t, tc.wantCloses, sim.CloseCount())
			assert.ErrorIs(t, d.write(context.Background(), []byte{0, 1, 0}), ErrShutdown)
		})
	}
}

func TestADCOwnedBusClosedOnce(t *testing.T) {
	sim := i2cbus.NewSim()
	a, err := newADC(context.Background(), sim, i2cbus.SimADCAddr, OwnsBus, buildOptions([]Option{WithPollInterval(MinPollInterval)}))
	require.NoError(t, err)

	require.NoError(t, a.Shutdown())
	require.NoError(t, a.Shutdown())
	assert.Equal(t, 1, sim.CloseCount())
}

func TestDeviceRateLimit(t *testing.T) {
	sim := i2cbus.NewSim()
	d, err := newDevice(sim, i2cbus.SimDACAddr, BorrowsBus, buildOptions([]Option{WithRateLimit(1, 1)}))
	require.NoError(t, err)
	require.NotNil(t, d.limiter)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, d.write(ctx, []byte{0, 0, 0}))
	// the second op must wait ~1s for a token, past the deadline
	assert.Error(t, d.write(ctx, []byte{0, 0, 0}))
	assert.Equal(t, 1, sim.TxCount())
}

func TestMonitorStopWaitsForCycle(t *testing.T) {
	var running, finished atomic.Int32
	started := make(chan struct{}, 1)
	m := newMonitor(MinPollInterval, func(ctx context.Context) {
		running.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(30 * time.Millisecond)
		assert.NoError(t, ctx.Err(), "cycle context must not be cancelled")
		finished.Add(1)
	})
	m.setEnabled(true)

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("cycle did not start")
	}
	m.stop()
	assert.Equal(t, running.Load(), finished.Load())
	assert.False(t, m.isEnabled())
}

func TestMonitorIntervalWake(t *testing.T) {
	cycles := make(chan struct{}, 8)
	m := newMonitor(time.Hour, func(context.Context) {
		select {
		case cycles <- struct{}{}:
		default:
		}
	})
	m.setEnabled(true)
	defer m.stop()

	m.setInterval(MinPollInterval)
	select {
	case <-cycles:
	case <-time.After(3 * time.Second):
		t.Fatal("interval change did not take effect")
	}
}

func TestMonitorNotRestartedAfterStop(t *testing.T) {
	var cycles atomic.Int32
	m := newMonitor(MinPollInterval, func(context.Context) { cycles.Add(1) })
	m.stop()
	m.setEnabled(true)
	assert.False(t, m.isEnabled())
	time.Sleep(3 * MinPollInterval)
	assert.Zero(t, cycles.Load())
}

func TestMonitorStopRacesWithEnable(t *testing.T) {
	for i := 0; i < 50; i++ {
		m := newMonitor(MinPollInterval, func(context.Context) {})
		m.setEnabled(true)

		start := make(chan struct{})
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < 20; j++ {
					m.setEnabled(j%2 == 0)
				}
			}()
		}

		stopped := make(chan struct{})
		close(start)
		go func() {
			m.stop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(3 * time.Second):
			t.Fatalf("iteration %d: stop did not return", i)
		}
		wg.Wait()
		assert.False(t, m.isEnabled(), "iteration %d", i)
	}
}
