// Package status provides a thread-safe status tracker for the preamp-panel daemon.
// It is read by HTTP handlers and the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/preamp-panel/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	TickUs        int64
	Divider       int
	DebounceTicks int
	BusDevice     string
	BusAddress    uint8
	ShiftDriver   string
	HeartbeatMs   int64
	Broker        string
	HTTPAddr      string
	WSBroker      string // Websocket broker URL for browser MQTT (empty = disabled)
}

// Panel is the front panel state as last evaluated.
type Panel struct {
	Switches    logic.SwitchState
	Attenuation uint8 // live encoder level
	Transmitted uint8 // attenuation byte of the last payload
	Synced      bool  // outputs have been written at least once
	Pending     bool  // a failed payload is waiting to be resent
}

// Activity holds counters sourced outside the evaluator.
type Activity struct {
	Ticks          uint64
	RaisedTicks    uint64 // ticks delivered by the tick source
	DroppedTicks   uint64
	EncoderEdges   uint64
	ForwardDetents int64
	ReverseDetents int64
	GPIOErrors     int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Panel         Panel
	Counts        logic.Counts
	Activity      Activity
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	MQTTBuffered  int
	MQTTDropped   int
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Panel: Panel{
				Switches:    logic.DefaultSwitchState,
				Attenuation: logic.DefaultAttenuation,
			},
		},
	}
}

// Update sets the panel state and evaluator counts.
// Called from the scan loop on every tick.
func (t *Tracker) Update(panel Panel, counts logic.Counts) {
	t.mu.Lock()
	t.snap.Panel = panel
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetActivity sets the tick, encoder and GPIO counters.
func (t *Tracker) SetActivity(a Activity) {
	t.mu.Lock()
	t.snap.Activity = a
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTBuffer sets the number of held and lost MQTT messages.
func (t *Tracker) SetMQTTBuffer(buffered, dropped int) {
	t.mu.Lock()
	t.snap.MQTTBuffered = buffered
	t.snap.MQTTDropped = dropped
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
