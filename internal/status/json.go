package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Panel         PanelJSON  `json:"panel"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"counts"`
	Config        ConfigJSON `json:"config"`
}

// PanelJSON is the JSON representation of the panel state.
type PanelJSON struct {
	Input       int    `json:"input"`
	Output      int    `json:"output"`
	Mono        bool   `json:"mono"`
	Dim         bool   `json:"dim"`
	Attenuation uint8  `json:"attenuation"`
	Transmitted uint8  `json:"transmitted"`
	SwitchState string `json:"switch_state"`
	Synced      bool   `json:"synced"`
	Pending     bool   `json:"pending"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Buffered  int    `json:"buffered"`
	Dropped   int    `json:"dropped"`
}

// CountsJSON is the JSON representation of activity counters.
type CountsJSON struct {
	Ticks          uint64 `json:"ticks"`
	RaisedTicks    uint64 `json:"raised_ticks"`
	DroppedTicks   uint64 `json:"dropped_ticks"`
	Evaluations    int    `json:"evaluations"`
	BusTx          int    `json:"bus_tx"`
	BusErrors      int    `json:"bus_errors"`
	ShiftOuts      int    `json:"shift_outs"`
	ShiftErrors    int    `json:"shift_errors"`
	EncoderEdges   uint64 `json:"encoder_edges"`
	ForwardDetents int64  `json:"forward_detents"`
	ReverseDetents int64  `json:"reverse_detents"`
	GPIOErrors     int    `json:"gpio_errors"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickUs        int64  `json:"tick_us"`
	Divider       int    `json:"divider"`
	DebounceTicks int    `json:"debounce_ticks"`
	BusDevice     string `json:"bus_device"`
	BusAddress    string `json:"bus_address"`
	ShiftDriver   string `json:"shift_driver"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
	WSBroker      string `json:"ws_broker,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	p := snap.Panel
	return StatusInner{
		Panel: PanelJSON{
			Input:       p.Switches.Input(),
			Output:      p.Switches.Output(),
			Mono:        p.Switches.Mono(),
			Dim:         p.Switches.Dim(),
			Attenuation: p.Attenuation,
			Transmitted: p.Transmitted,
			SwitchState: p.Switches.String(),
			Synced:      p.Synced,
			Pending:     p.Pending,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Buffered:  snap.MQTTBuffered,
			Dropped:   snap.MQTTDropped,
		},
		Counts: CountsJSON{
			Ticks:          snap.Activity.Ticks,
			RaisedTicks:    snap.Activity.RaisedTicks,
			DroppedTicks:   snap.Activity.DroppedTicks,
			Evaluations:    snap.Counts.Evaluations,
			BusTx:          snap.Counts.BusTx,
			BusErrors:      snap.Counts.BusErrors,
			ShiftOuts:      snap.Counts.ShiftOuts,
			ShiftErrors:    snap.Counts.ShiftErrors,
			EncoderEdges:   snap.Activity.EncoderEdges,
			ForwardDetents: snap.Activity.ForwardDetents,
			ReverseDetents: snap.Activity.ReverseDetents,
			GPIOErrors:     snap.Activity.GPIOErrors,
		},
		Config: ConfigJSON{
			TickUs:        snap.Config.TickUs,
			Divider:       snap.Config.Divider,
			DebounceTicks: snap.Config.DebounceTicks,
			BusDevice:     snap.Config.BusDevice,
			BusAddress:    fmt.Sprintf("0x%02x", snap.Config.BusAddress),
			ShiftDriver:   snap.Config.ShiftDriver,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			WSBroker:      snap.Config.WSBroker,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
