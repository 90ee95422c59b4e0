package switches

import (
	"github.com/sweeney/preamp-panel/internal/gpio"
	"github.com/sweeney/preamp-panel/internal/logic"
)

// Input indices in gpio.Levels. Input i drives bit 7-i of the switch word.
const (
	InputInput1 = iota
	InputInput2
	InputInput3
	InputOutput1
	InputOutput2
	InputOutput3
	InputMono
	InputDim

	NumInputs
)

// Options configures a Panel.
type Options struct {
	DebounceTicks int
	MonoMode      Mode
	DimMode       Mode
}

// Panel owns the switch word and the scanners that write it.
type Panel struct {
	debouncer *Debouncer
	word      logic.SwitchState

	inputs  *Group
	outputs *Group
	mono    *Toggle
	dim     *Toggle
}

// NewPanel creates a panel holding the power-on switch word.
func NewPanel(opts Options) *Panel {
	p := &Panel{
		debouncer: NewDebouncer(opts.DebounceTicks),
		word:      logic.DefaultSwitchState,
	}
	p.inputs = NewGroup(p.debouncer, &p.word, InputInput1, logic.BitInput1, 3)
	p.outputs = NewGroup(p.debouncer, &p.word, InputOutput1, logic.BitOutput1, 3)
	p.mono = NewToggle(p.debouncer, &p.word, InputMono, logic.BitMono, opts.MonoMode)
	p.dim = NewToggle(p.debouncer, &p.word, InputDim, logic.BitDim, opts.DimMode)
	p.debouncer.Init()
	return p
}

// Scan runs one debounce tick on raw and then scans the input group,
// output group, mono and dim switches, in that order.
func (p *Panel) Scan(raw gpio.Levels) {
	p.debouncer.Tick(raw)
	for _, s := range []Scanner{p.inputs, p.outputs, p.mono, p.dim} {
		s.Scan()
	}
}

// State returns the switch word.
func (p *Panel) State() logic.SwitchState {
	return p.word
}

// Dim returns the dim switch's logical state.
func (p *Panel) Dim() bool {
	return p.dim.Get()
}

// Mono returns the mono switch's logical state.
func (p *Panel) Mono() bool {
	return p.mono.Get()
}
