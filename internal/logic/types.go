// Package logic contains the pure decision core of the front panel.
// This package has NO hardware dependencies (no GPIO, I2C, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// SwitchState is the switch word. It is sent verbatim as byte 1 of the bus
// payload and shifted out to the relay/indicator register, so the bit layout
// is wire visible.
type SwitchState uint8

// Bit positions within SwitchState.
const (
	BitInput1  = 7
	BitInput2  = 6
	BitInput3  = 5
	BitOutput1 = 4
	BitOutput2 = 3
	BitOutput3 = 2
	BitMono    = 1
	BitDim     = 0
)

// DefaultSwitchState selects input 1 and output 1, mono and dim off.
const DefaultSwitchState SwitchState = 0b10010000

const (
	// MaxAttenuation is full attenuation (quietest).
	MaxAttenuation = 127

	// DefaultAttenuation is the power-on level.
	DefaultAttenuation = MaxAttenuation

	// DimOffset is added to the transmitted level while dim is on.
	DimOffset = 32

	// DefaultDivider is the number of scan ticks per evaluation.
	DefaultDivider = 16

	// DefaultAddress is the attenuator's two-wire bus address.
	DefaultAddress = 0x10
)

// Has reports whether bit is set.
func (s SwitchState) Has(bit uint) bool {
	return s&(1<<bit) != 0
}

// With returns s with bit set or cleared.
func (s SwitchState) With(bit uint, on bool) SwitchState {
	if on {
		return s | 1<<bit
	}
	return s &^ (1 << bit)
}

// Input returns the selected input (1-3), or 0 if none is selected.
func (s SwitchState) Input() int {
	return s.groupIndex(BitInput1)
}

// Output returns the selected output (1-3), or 0 if none is selected.
func (s SwitchState) Output() int {
	return s.groupIndex(BitOutput1)
}

// Mono reports whether mono mode is on.
func (s SwitchState) Mono() bool {
	return s.Has(BitMono)
}

// Dim reports whether dim mode is on.
func (s SwitchState) Dim() bool {
	return s.Has(BitDim)
}

func (s SwitchState) groupIndex(first uint) int {
	for i := uint(0); i < 3; i++ {
		if s.Has(first - i) {
			return int(i) + 1
		}
	}
	return 0
}

// String returns the word in binary, most significant bit first.
func (s SwitchState) String() string {
	return fmt.Sprintf("%08b", uint8(s))
}

// DimLevel returns the level to transmit while dim is on.
func DimLevel(level uint8) uint8 {
	if int(level)+DimOffset > MaxAttenuation {
		return MaxAttenuation
	}
	return level + DimOffset
}

// Transaction is the output decided by one evaluation.
type Transaction struct {
	// Bus is set when the 2-byte payload must be sent.
	Bus bool
	// Shift is set when Switches must be shifted out.
	Shift bool

	// Payload is [transmit attenuation, switch word].
	Payload [2]byte

	Switches    SwitchState
	Attenuation uint8 // raw level, before dim

	Boot          bool // first evaluation after start, syncing the outputs
	SwitchChanged bool
	LevelChanged  bool
	Retry         bool // resending a payload whose transmit failed
}

// Transmitted returns the attenuation byte of the payload.
func (t Transaction) Transmitted() uint8 {
	return t.Payload[0]
}

// EventType classifies a published panel event.
type EventType string

const (
	EventSwitch      EventType = "SWITCH"
	EventLevel       EventType = "LEVEL"
	EventSwitchLevel EventType = "SWITCH_LEVEL"
	EventRetry       EventType = "RETRY"
	EventSync        EventType = "SYNC"
)

// Type returns the event type for the transaction.
func (t Transaction) Type() EventType {
	switch {
	case t.Boot:
		return EventSync
	case t.SwitchChanged && t.LevelChanged:
		return EventSwitchLevel
	case t.SwitchChanged:
		return EventSwitch
	case t.LevelChanged:
		return EventLevel
	case t.Retry:
		return EventRetry
	}
	return EventSync
}

// Event is an issued transaction together with its outcome.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	Switches    SwitchState
	Attenuation uint8
	Transmitted uint8
	BusSent     bool
	BusError    string
	Shifted     bool
}

// NewEvent builds the event for tx. busErr is the transmit result, if any.
func NewEvent(now time.Time, tx Transaction, busErr error) Event {
	e := Event{
		Timestamp:   now,
		Type:        tx.Type(),
		Switches:    tx.Switches,
		Attenuation: tx.Attenuation,
		Transmitted: tx.Transmitted(),
		BusSent:     tx.Bus && busErr == nil,
		Shifted:     tx.Shift,
	}
	if busErr != nil {
		e.BusError = busErr.Error()
	}
	return e
}

// Counts tracks evaluator activity since startup.
type Counts struct {
	Evaluations int
	BusTx       int
	BusErrors   int
	ShiftOuts   int
	ShiftErrors int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}
