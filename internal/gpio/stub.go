//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var errNotSupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealReader is not available on non-Linux platforms.
type RealReader struct{}

// NewRealReader returns an error on non-Linux platforms.
func NewRealReader(chip string, pins []int) (*RealReader, error) {
	return nil, errNotSupported
}

// Read is not implemented on non-Linux platforms.
func (r *RealReader) Read() (Levels, error) {
	return 0, errNotSupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealReader) Close() error {
	return nil
}

// EncoderWatcher is not available on non-Linux platforms.
type EncoderWatcher struct{}

// NewEncoderWatcher returns an error on non-Linux platforms.
func NewEncoderWatcher(chip string, pinA, pinB int, debounce time.Duration, handler EdgeHandler) (*EncoderWatcher, error) {
	return nil, errNotSupported
}

// Edges always returns 0 on non-Linux platforms.
func (w *EncoderWatcher) Edges() uint64 { return 0 }

// Close is not implemented on non-Linux platforms.
func (w *EncoderWatcher) Close() error { return nil }
