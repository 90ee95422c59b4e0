//go:build !linux

package shiftreg

import "errors"

var errNotSupported = errors.New("shiftreg: not supported on this platform (requires Linux)")

// LinePins is not available on non-Linux platforms.
type LinePins struct{}

// NewLinePins returns an error on non-Linux platforms.
func NewLinePins(chip string, data, clock, latch int) (*LinePins, error) {
	return nil, errNotSupported
}

func (p *LinePins) SetData(v int) error  { return errNotSupported }
func (p *LinePins) SetClock(v int) error { return errNotSupported }
func (p *LinePins) SetLatch(v int) error { return errNotSupported }
func (p *LinePins) Close() error         { return nil }

// VattuPins is not available on non-Linux platforms.
type VattuPins struct{}

// NewVattuPins returns an error on non-Linux platforms.
func NewVattuPins(data, clock, latch uint8) (*VattuPins, error) {
	return nil, errNotSupported
}

func (p *VattuPins) SetData(v int) error  { return errNotSupported }
func (p *VattuPins) SetClock(v int) error { return errNotSupported }
func (p *VattuPins) SetLatch(v int) error { return errNotSupported }
func (p *VattuPins) Close() error         { return nil }
