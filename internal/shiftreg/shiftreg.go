// Package shiftreg drives the serial-in/parallel-out shift register that
// feeds the indicator and relay bank.
package shiftreg

import "fmt"

// Driver shifts one byte out to the register.
type Driver interface {
	ShiftOut(b byte) error
	Close() error
}

// Pins is the three-wire interface of a 74HC595-style register.
type Pins interface {
	SetData(v int) error
	SetClock(v int) error
	SetLatch(v int) error
	Close() error
}

// Register shifts bytes out most significant bit first and latches them
// onto the outputs after the eighth clock.
type Register struct {
	pins Pins
}

// New creates a register driven by pins.
func New(pins Pins) *Register {
	return &Register{pins: pins}
}

// ShiftOut writes b to the register outputs.
func (r *Register) ShiftOut(b byte) error {
	if err := r.pins.SetLatch(0); err != nil {
		return fmt.Errorf("shiftreg: latch low: %w", err)
	}
	for i := 7; i >= 0; i-- {
		if err := r.pins.SetData(int(b>>uint(i)) & 1); err != nil {
			return fmt.Errorf("shiftreg: data bit %d: %w", i, err)
		}
		if err := r.pins.SetClock(1); err != nil {
			return fmt.Errorf("shiftreg: clock bit %d: %w", i, err)
		}
		if err := r.pins.SetClock(0); err != nil {
			return fmt.Errorf("shiftreg: clock bit %d: %w", i, err)
		}
	}
	if err := r.pins.SetLatch(1); err != nil {
		return fmt.Errorf("shiftreg: latch high: %w", err)
	}
	return nil
}

// Close releases the pins.
func (r *Register) Close() error {
	return r.pins.Close()
}
