//go:build linux

package shiftreg

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// LinePins drives the register through GPIO character device lines.
type LinePins struct {
	data  *gpiocdev.Line
	clock *gpiocdev.Line
	latch *gpiocdev.Line
}

// NewLinePins requests the data, clock and latch lines as outputs, low.
func NewLinePins(chip string, data, clock, latch int) (*LinePins, error) {
	p := &LinePins{}
	var err error

	p.data, err = gpiocdev.RequestLine(chip, data, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("preamp-panel"))
	if err != nil {
		return nil, fmt.Errorf("request data pin %d: %w", data, err)
	}

	p.clock, err = gpiocdev.RequestLine(chip, clock, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("preamp-panel"))
	if err != nil {
		p.data.Close()
		return nil, fmt.Errorf("request clock pin %d: %w", clock, err)
	}

	p.latch, err = gpiocdev.RequestLine(chip, latch, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("preamp-panel"))
	if err != nil {
		p.data.Close()
		p.clock.Close()
		return nil, fmt.Errorf("request latch pin %d: %w", latch, err)
	}

	return p, nil
}

func (p *LinePins) SetData(v int) error  { return p.data.SetValue(v) }
func (p *LinePins) SetClock(v int) error { return p.clock.SetValue(v) }
func (p *LinePins) SetLatch(v int) error { return p.latch.SetValue(v) }

// Close releases the lines.
func (p *LinePins) Close() error {
	var errs []error
	for name, l := range map[string]*gpiocdev.Line{"data": p.data, "clock": p.clock, "latch": p.latch} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
