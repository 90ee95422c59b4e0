//go:build linux

package gpio

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "preamp-panel"

// RealReader reads switch inputs from actual hardware using Linux GPIO character device.
type RealReader struct {
	lines  *gpiocdev.Lines
	values []int
}

// NewRealReader requests the given pins as active-low inputs with pull-ups.
func NewRealReader(chip string, pins []int) (*RealReader, error) {
	if len(pins) == 0 || len(pins) > 16 {
		return nil, fmt.Errorf("gpio: need 1-16 switch pins, got %d", len(pins))
	}

	lines, err := gpiocdev.RequestLines(chip, pins,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.AsActiveLow,
		gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("request switch pins %v: %w", pins, err)
	}

	return &RealReader{
		lines:  lines,
		values: make([]int, len(pins)),
	}, nil
}

// Read returns the logical level of every switch input.
func (r *RealReader) Read() (Levels, error) {
	if err := r.lines.Values(r.values); err != nil {
		return 0, fmt.Errorf("read switch pins: %w", err)
	}

	var l Levels
	for i, v := range r.values {
		if v != 0 {
			l |= 1 << uint(i)
		}
	}
	return l, nil
}

// Close releases GPIO resources.
func (r *RealReader) Close() error {
	if r.lines == nil {
		return nil
	}
	if err := r.lines.Close(); err != nil {
		return fmt.Errorf("close switch pins: %w", err)
	}
	return nil
}

// EncoderWatcher delivers rotary encoder samples from edge events.
// gpiocdev calls the event handler from a single goroutine per request, so
// the handler never runs concurrently with itself.
type EncoderWatcher struct {
	lines   atomic.Pointer[gpiocdev.Lines]
	handler EdgeHandler
	values  [2]int
	edges   atomic.Uint64
}

// NewEncoderWatcher requests both encoder lines with both-edge detection.
// A non-zero debounce enables the kernel's line debounce filter.
func NewEncoderWatcher(chip string, pinA, pinB int, debounce time.Duration, handler EdgeHandler) (*EncoderWatcher, error) {
	w := &EncoderWatcher{handler: handler}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithPullUp,
		gpiocdev.AsActiveLow,
		gpiocdev.WithBothEdges,
		gpiocdev.WithConsumer(consumer),
		gpiocdev.WithEventHandler(w.handleEvent),
	}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}

	lines, err := gpiocdev.RequestLines(chip, []int{pinA, pinB}, opts...)
	if err != nil {
		return nil, fmt.Errorf("request encoder pins %d,%d: %w", pinA, pinB, err)
	}
	w.lines.Store(lines)
	return w, nil
}

func (w *EncoderWatcher) handleEvent(evt gpiocdev.LineEvent) {
	lines := w.lines.Load()
	if lines == nil {
		return
	}

	if err := lines.Values(w.values[:]); err != nil {
		log.Printf("encoder: read lines on edge at offset %d: %v", evt.Offset, err)
		return
	}
	w.edges.Add(1)
	w.handler(uint8(w.values[1]&1)<<1 | uint8(w.values[0]&1))
}

// Edges returns the number of edges delivered to the handler.
func (w *EncoderWatcher) Edges() uint64 {
	return w.edges.Load()
}

// Close stops edge delivery and releases the lines.
func (w *EncoderWatcher) Close() error {
	lines := w.lines.Swap(nil)
	if lines == nil {
		return nil
	}
	if err := lines.Close(); err != nil {
		return fmt.Errorf("close encoder pins: %w", err)
	}
	return nil
}
