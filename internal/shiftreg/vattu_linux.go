//go:build linux

package shiftreg

import (
	"fmt"

	"github.com/hjkoskel/govattu"
)

// VattuPins drives the register through memory-mapped Raspberry Pi GPIO.
// It toggles pins much faster than the character device.
type VattuPins struct {
	hw    govattu.Vattu
	data  uint8
	clock uint8
	latch uint8
}

// NewVattuPins maps the GPIO block and sets the three pins as outputs, low.
func NewVattuPins(data, clock, latch uint8) (*VattuPins, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	p := &VattuPins{hw: hw, data: data, clock: clock, latch: latch}
	for _, pin := range []uint8{data, clock, latch} {
		hw.PinMode(pin, govattu.ALToutput)
		hw.PinClear(pin)
	}
	return p, nil
}

func (p *VattuPins) set(pin uint8, v int) error {
	if v != 0 {
		p.hw.PinSet(pin)
	} else {
		p.hw.PinClear(pin)
	}
	return nil
}

func (p *VattuPins) SetData(v int) error  { return p.set(p.data, v) }
func (p *VattuPins) SetClock(v int) error { return p.set(p.clock, v) }
func (p *VattuPins) SetLatch(v int) error { return p.set(p.latch, v) }

// Close drives the pins low and unmaps the GPIO block.
func (p *VattuPins) Close() error {
	for _, pin := range []uint8{p.data, p.clock, p.latch} {
		p.hw.PinClear(pin)
	}
	return p.hw.Close()
}
