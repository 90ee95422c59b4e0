package switches

import (
	"testing"

	"github.com/sweeney/preamp-panel/internal/gpio"
	"github.com/sweeney/preamp-panel/internal/logic"
)

func scanN(p *Panel, raw gpio.Levels, n int) {
	for i := 0; i < n; i++ {
		p.Scan(raw)
	}
}

func TestNewPanelBootState(t *testing.T) {
	p := NewPanel(Options{})
	if p.State() != logic.DefaultSwitchState {
		t.Errorf("boot state: got %s, want %s", p.State(), logic.DefaultSwitchState)
	}
	if p.Dim() || p.Mono() {
		t.Error("dim and mono should be off at boot")
	}
}

func TestPanelInput2Pressed(t *testing.T) {
	p := NewPanel(Options{DebounceTicks: DefaultDebounceTicks})

	scanN(p, 1<<InputInput2, DefaultDebounceTicks-1)
	if p.State() != logic.DefaultSwitchState {
		t.Fatalf("state changed before debounce: %s", p.State())
	}
	p.Scan(1 << InputInput2)
	if p.State() != 0b01010000 {
		t.Errorf("state: got %s, want 01010000", p.State())
	}
}

func TestPanelOutputAndModes(t *testing.T) {
	p := NewPanel(Options{DebounceTicks: 2, MonoMode: ModeMomentary, DimMode: ModeLatching})

	scanN(p, 1<<InputOutput3, 2)
	scanN(p, 0, 2)
	if p.State() != 0b10000100 {
		t.Fatalf("after output 3: got %s", p.State())
	}

	scanN(p, 1<<InputMono|1<<InputDim, 2)
	if !p.Mono() || !p.Dim() {
		t.Fatalf("mono=%v dim=%v", p.Mono(), p.Dim())
	}

	// Releasing: momentary mono stays on, latching dim follows the contact.
	scanN(p, 0, 2)
	if !p.Mono() {
		t.Error("mono should stay on after release")
	}
	if p.Dim() {
		t.Error("latching dim should follow the open contact")
	}
	if p.State() != 0b10000110 {
		t.Errorf("state: got %s, want 10000110", p.State())
	}
	if p.debouncer.Stable() != 0 {
		t.Errorf("debounced: got %b", p.debouncer.Stable())
	}
}
