//go:build !linux

package bus

import "errors"

var errNotSupported = errors.New("i2c: not supported on this platform (requires Linux)")

// I2C is not available on non-Linux platforms.
type I2C struct{}

// OpenI2C returns an error on non-Linux platforms.
func OpenI2C(device string) (*I2C, error) {
	return nil, errNotSupported
}

// Transmit is not implemented on non-Linux platforms.
func (b *I2C) Transmit(addr uint8, data []byte) error {
	return errNotSupported
}

// Close is not implemented on non-Linux platforms.
func (b *I2C) Close() error {
	return nil
}
