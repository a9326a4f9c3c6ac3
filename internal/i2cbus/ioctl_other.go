//go:build !linux

package i2cbus

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

func openIoctl(n int) (i2c.BusCloser, error) {
	return nil, fmt.Errorf("i2cbus: ioctl backend requires linux (bus %d)", n)
}
