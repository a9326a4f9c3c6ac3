package horter

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/time/rate"
	"periph.io/x/conn/v3/i2c"
)

// Ownership records whether a provider opened its bus and must release it.
type Ownership uint8

const (
	BorrowsBus Ownership = iota
	OwnsBus
)

func (o Ownership) String() string {
	if o == OwnsBus {
		return "owns"
	}
	return "borrows"
}

// device is a provider's exclusive handle on its board. Every transaction
// holds mu for its whole duration.
type device struct {
	mu      sync.Mutex
	dev     i2c.Dev
	owner   Ownership
	limiter *rate.Limiter
	closed  bool
}

func newDevice(bus i2c.Bus, addr uint16, owner Ownership, o *options) (*device, error) {
	if bus == nil {
		return nil, fmt.Errorf("horter: nil bus")
	}
	if addr > 0x7F {
		return nil, fmt.Errorf("horter: invalid 7-bit address 0x%02x", addr)
	}
	d := &device{
		dev:   i2c.Dev{Bus: bus, Addr: addr},
		owner: owner,
	}
	if o.opsPerSec > 0 {
		burst := o.burst
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(o.opsPerSec), burst)
	}
	return d, nil
}

func (d *device) addr() uint16 { return d.dev.Addr }

func (d *device) busName() string { return d.dev.Bus.String() }

// read writes the register pointer and reads len(buf) bytes in one transaction.
func (d *device) read(ctx context.Context, reg byte, buf []byte) error {
	return d.tx(ctx, []byte{reg}, buf)
}

// write sends buf in one transaction.
func (d *device) write(ctx context.Context, buf []byte) error {
	return d.tx(ctx, buf, nil)
}

func (d *device) tx(ctx context.Context, w, r []byte) error {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrShutdown
	}
	return d.dev.Tx(w, r)
}

// close ends use of the device. The bus is closed only when owned, and at most once.
func (d *device) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.owner != OwnsBus {
		return nil
	}
	c, ok := d.dev.Bus.(io.Closer)
	if !ok {
		return nil
	}
	if err := c.Close(); err != nil {
		return fmt.Errorf("horter: close bus %s: %w", d.dev.Bus, err)
	}
	return nil
}
