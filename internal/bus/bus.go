// Package bus sends payloads to peripherals on the two-wire (I2C) bus.
// The real implementation uses the Linux i2c-dev interface.
package bus

// DefaultDevice is the i2c-dev node used when none is configured.
const DefaultDevice = "/dev/i2c-1"

// Transmitter sends fixed-length payloads to bus peripherals.
type Transmitter interface {
	// Transmit writes data to the peripheral at the 7-bit address addr as a
	// single write transaction. It may block until the bus is free; any
	// timeout is the driver's.
	Transmit(addr uint8, data []byte) error

	// Close releases the bus.
	Close() error
}
