// Package i2cbus opens the I2C buses the Horter providers run on.
// Three backends are available: the periph.io host registry, raw Linux
// /dev/i2c-N ioctls, and an in-memory simulation of both boards.
package i2cbus

import (
	"fmt"
	"strconv"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Backend selects how a bus is opened.
type Backend string

const (
	BackendPeriph Backend = "periph"
	BackendIoctl  Backend = "ioctl"
	BackendSim    Backend = "sim"
)

// ParseBackend validates a backend name. An empty name selects BackendPeriph.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "":
		return BackendPeriph, nil
	case BackendPeriph, BackendIoctl, BackendSim:
		return Backend(s), nil
	}
	return "", fmt.Errorf("i2cbus: unknown backend %q", s)
}

// Open opens bus number n with the given backend. The caller owns the
// returned bus and must close it.
func Open(backend Backend, n int) (i2c.BusCloser, error) {
	if n < 0 {
		return nil, fmt.Errorf("i2cbus: invalid bus number %d", n)
	}
	switch backend {
	case BackendPeriph, "":
		return openPeriph(n)
	case BackendIoctl:
		return openIoctl(n)
	case BackendSim:
		return NewSim(), nil
	}
	return nil, fmt.Errorf("i2cbus: unknown backend %q", backend)
}

var (
	hostOnce sync.Once
	hostErr  error
)

func openPeriph(n int) (i2c.BusCloser, error) {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	if hostErr != nil {
		return nil, fmt.Errorf("i2cbus: host init failed: %w", hostErr)
	}
	b, err := i2creg.Open(strconv.Itoa(n))
	if err != nil {
		return nil, fmt.Errorf("i2cbus: open bus %d: %w", n, err)
	}
	return b, nil
}
