//go:build linux

package i2cbus

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	i2cRdwrIOCTL = 0x0707 // I2C_RDWR: combined write+read with repeated start
	i2cMsgRD     = 0x0001 // i2c_msg flag: read direction
)

// i2cMsg mirrors struct i2c_msg from linux/i2c.h
type i2cMsg struct {
	addr   uint16
	flags  uint16
	length uint16
	_pad   uint16 // struct alignment
	buf    uintptr
}

// i2cRdwr mirrors struct i2c_rdwr_ioctl_data from linux/i2c-dev.h
type i2cRdwr struct {
	msgs  uintptr
	nmsgs uint32
}

var _ i2c.BusCloser = (*IoctlBus)(nil)

// IoctlBus is an I2C bus backed by /dev/i2c-N. Every Tx is issued as a single
// I2C_RDWR ioctl, so a register write followed by a read uses a repeated start.
type IoctlBus struct {
	mu   sync.Mutex
	path string
	fd   int
}

func openIoctl(n int) (i2c.BusCloser, error) {
	path := fmt.Sprintf("/dev/i2c-%d", n)
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2cbus: open %s: %w", path, err)
	}
	return &IoctlBus{path: path, fd: fd}, nil
}

func (b *IoctlBus) String() string { return b.path }

// Tx writes w then reads into r at addr in one transaction.
func (b *IoctlBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return fmt.Errorf("i2cbus: %s: bus closed", b.path)
	}

	var msgs [2]i2cMsg
	n := 0
	if len(w) > 0 {
		msgs[n] = i2cMsg{addr: addr, length: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))}
		n++
	}
	if len(r) > 0 {
		msgs[n] = i2cMsg{addr: addr, flags: i2cMsgRD, length: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))}
		n++
	}
	if n == 0 {
		return nil
	}
	rdwr := i2cRdwr{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(n)}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(b.fd), i2cRdwrIOCTL, uintptr(unsafe.Pointer(&rdwr)))
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	runtime.KeepAlive(&msgs)
	if errno != 0 {
		return fmt.Errorf("i2cbus: I2C_RDWR 0x%02x w=%d r=%d: %w", addr, len(w), len(r), errno)
	}
	return nil
}

// SetSpeed is not supported; the bus clock is fixed by the kernel driver.
func (b *IoctlBus) SetSpeed(f physic.Frequency) error {
	return fmt.Errorf("i2cbus: %s: cannot set speed to %s", b.path, f)
}

// Close releases the file descriptor. Closing twice is a no-op.
func (b *IoctlBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	if err != nil {
		return fmt.Errorf("i2cbus: close %s: %w", b.path, err)
	}
	return nil
}
