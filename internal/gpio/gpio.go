// Package gpio provides switch and encoder input with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Levels holds one bit per switch input: bit i is set while input i is
// active (contact closed).
type Levels uint16

// Active reports whether input i is active.
func (l Levels) Active(i int) bool {
	return l&(1<<uint(i)) != 0
}

// Reader reads switch input levels.
type Reader interface {
	// Read returns the logical levels of all switch inputs.
	// The inputs are wired active-low: raw 0 = logical active.
	Read() (Levels, error)

	// Close releases GPIO resources.
	Close() error
}

// EdgeHandler receives an encoder sample on every edge of either encoder
// line. Bit 1 is line B, bit 0 is line A, both active-low.
type EdgeHandler func(sample uint8)

// DefaultChip is the GPIO character device used when none is configured.
const DefaultChip = "gpiochip0"

// Default pin definitions (BCM numbering).
const (
	DefaultPinEncoderA = 23
	DefaultPinEncoderB = 24
)

// DefaultSwitchPins lists the switch inputs in switch word order:
// input 1-3, output 1-3, mono, dim.
var DefaultSwitchPins = []int{17, 27, 22, 5, 6, 13, 19, 26}
