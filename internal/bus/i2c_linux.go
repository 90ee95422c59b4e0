//go:build linux

package bus

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// i2cSlave is the i2c-dev ioctl selecting the target address.
const i2cSlave = 0x0703

// I2C is a Transmitter on a Linux i2c-dev node.
// It is not safe for concurrent use.
type I2C struct {
	device string
	fd     int
	addr   int // currently selected address, -1 if none
}

// OpenI2C opens an i2c-dev node such as /dev/i2c-1.
func OpenI2C(device string) (*I2C, error) {
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	return &I2C{device: device, fd: fd, addr: -1}, nil
}

// Transmit writes data to addr.
func (b *I2C) Transmit(addr uint8, data []byte) error {
	if addr > 0x7f {
		return fmt.Errorf("i2c: address %#02x is not a 7-bit address", addr)
	}

	if int(addr) != b.addr {
		if err := unix.IoctlSetInt(b.fd, i2cSlave, int(addr)); err != nil {
			return fmt.Errorf("i2c: select address %#02x: %w", addr, err)
		}
		b.addr = int(addr)
	}

	n, err := unix.Write(b.fd, data)
	if err != nil {
		return fmt.Errorf("i2c: write to %#02x: %w", addr, err)
	}
	if n != len(data) {
		return fmt.Errorf("i2c: short write to %#02x: %d of %d bytes", addr, n, len(data))
	}
	return nil
}

// Close releases the device node.
func (b *I2C) Close() error {
	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	if err != nil {
		return fmt.Errorf("close %s: %w", b.device, err)
	}
	return nil
}
