package switches

import (
	"fmt"

	"github.com/sweeney/preamp-panel/internal/logic"
)

// Mode selects how a standalone switch drives its bit.
type Mode string

const (
	// ModeMomentary toggles the bit on every press.
	ModeMomentary Mode = "momentary"
	// ModeLatching makes the bit follow a maintained contact.
	ModeLatching Mode = "latching"
)

// ParseMode validates a configured mode. Empty means momentary.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMomentary:
		return ModeMomentary, nil
	case ModeLatching:
		return ModeLatching, nil
	}
	return "", fmt.Errorf("unknown switch mode %q", s)
}

// Scanner updates its bit(s) of the switch word from debounced inputs.
type Scanner interface {
	Scan()
}

// Toggle is a single switch owning one bit of the word.
type Toggle struct {
	input int
	bit   uint
	mode  Mode

	deb  *Debouncer
	word *logic.SwitchState

	wasActive bool
}

// NewToggle binds input to bit of word.
func NewToggle(deb *Debouncer, word *logic.SwitchState, input int, bit uint, mode Mode) *Toggle {
	return &Toggle{
		input: input,
		bit:   bit,
		mode:  mode,
		deb:   deb,
		word:  word,
	}
}

// Scan reads the debounced input and updates the bit.
func (t *Toggle) Scan() {
	active := t.deb.Active(t.input)
	switch t.mode {
	case ModeLatching:
		*t.word = t.word.With(t.bit, active)
	default:
		if active && !t.wasActive {
			*t.word = t.word.With(t.bit, !t.word.Has(t.bit))
		}
	}
	t.wasActive = active
}

// Get returns the switch's logical state.
func (t *Toggle) Get() bool {
	return t.word.Has(t.bit)
}

type member struct {
	input     int
	bit       uint
	wasActive bool
}

// Group is an exclusive set of push switches: pressing one selects it and
// deselects the others, so at most one bit of the group is ever set.
type Group struct {
	members []member
	deb     *Debouncer
	word    *logic.SwitchState
}

// NewGroup binds consecutive inputs starting at firstInput to bits counting
// down from firstBit.
func NewGroup(deb *Debouncer, word *logic.SwitchState, firstInput int, firstBit uint, size int) *Group {
	g := &Group{deb: deb, word: word}
	for i := 0; i < size; i++ {
		g.members = append(g.members, member{
			input: firstInput + i,
			bit:   firstBit - uint(i),
		})
	}
	return g
}

// Scan selects the member whose input was pressed since the last scan.
// If several were pressed in the same scan the last one wins.
func (g *Group) Scan() {
	for i := range g.members {
		m := &g.members[i]
		active := g.deb.Active(m.input)
		if active && !m.wasActive {
			g.selectBit(m.bit)
		}
		m.wasActive = active
	}
}

func (g *Group) selectBit(bit uint) {
	for _, m := range g.members {
		*g.word = g.word.With(m.bit, m.bit == bit)
	}
}

// Get returns the state of member i (0-based).
func (g *Group) Get(i int) bool {
	if i < 0 || i >= len(g.members) {
		return false
	}
	return g.word.Has(g.members[i].bit)
}

// Selected returns the selected member (1-based), or 0 if none.
func (g *Group) Selected() int {
	for i := range g.members {
		if g.Get(i) {
			return i + 1
		}
	}
	return 0
}
