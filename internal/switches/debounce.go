// Package switches debounces the panel's switch inputs and maps them onto
// the switch word.
package switches

import "github.com/sweeney/preamp-panel/internal/gpio"

// maxInputs is the width of gpio.Levels.
const maxInputs = 16

// DefaultDebounceTicks is the number of consecutive scan ticks an input
// must hold a new level before it is accepted.
const DefaultDebounceTicks = 4

// Debouncer stabilizes raw switch levels. Tick is called once per scan,
// before any switch is scanned.
type Debouncer struct {
	threshold int
	count     [maxInputs]int
	stable    gpio.Levels
}

// NewDebouncer creates a debouncer requiring threshold identical ticks.
func NewDebouncer(threshold int) *Debouncer {
	if threshold < 1 {
		threshold = 1
	}
	return &Debouncer{threshold: threshold}
}

// Init resets all inputs to inactive and clears pending changes.
func (d *Debouncer) Init() {
	d.stable = 0
	d.count = [maxInputs]int{}
}

// Tick feeds one raw sample.
func (d *Debouncer) Tick(raw gpio.Levels) {
	diff := raw ^ d.stable
	for i := 0; i < maxInputs; i++ {
		if diff&(1<<uint(i)) == 0 {
			d.count[i] = 0
			continue
		}
		d.count[i]++
		if d.count[i] >= d.threshold {
			d.stable ^= 1 << uint(i)
			d.count[i] = 0
		}
	}
}

// Stable returns the debounced levels.
func (d *Debouncer) Stable() gpio.Levels {
	return d.stable
}

// Active reports whether input i is stably active.
func (d *Debouncer) Active(i int) bool {
	return d.stable.Active(i)
}
