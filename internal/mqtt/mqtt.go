// Package mqtt publishes panel telemetry with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/preamp-panel/internal/logic"
)

// Topic is the MQTT topic for panel events.
const Topic = "preamp/panel/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "preamp/panel/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a panel event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// BufferStatus reports on messages held while the connection is down.
type BufferStatus interface {
	Buffered() int
	Dropped() int
}

// SystemEvent represents a system lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the MQTT message payload for a panel event.
type Payload struct {
	Panel PanelPayload `json:"panel"`
}

// PanelPayload contains the panel event details.
type PanelPayload struct {
	Timestamp   string `json:"timestamp"`
	Event       string `json:"event"`
	Input       int    `json:"input"`
	Output      int    `json:"output"`
	Mono        bool   `json:"mono"`
	Dim         bool   `json:"dim"`
	Attenuation uint8  `json:"attenuation"`
	Transmitted uint8  `json:"transmitted"`
	SwitchState string `json:"switch_state"`
	BusSent     bool   `json:"bus_sent"`
	BusError    string `json:"bus_error,omitempty"`
	Shifted     bool   `json:"shifted"`
}

// FormatPayload creates the JSON payload for a panel event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Panel: PanelPayload{
			Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			Event:       string(event.Type),
			Input:       event.Switches.Input(),
			Output:      event.Switches.Output(),
			Mono:        event.Switches.Mono(),
			Dim:         event.Switches.Dim(),
			Attenuation: event.Attenuation,
			Transmitted: event.Transmitted,
			SwitchState: event.Switches.String(),
			BusSent:     event.BusSent,
			BusError:    event.BusError,
			Shifted:     event.Shifted,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events
// that don't carry a full status snapshot (the will message).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// WillPayload is the retained last-will message the broker publishes on
// TopicSystem when the panel drops off without a clean shutdown. It has no
// timestamp because it is registered at connect time.
func WillPayload() []byte {
	data, _ := json.Marshal(SystemPayload{
		System: SystemPayloadInner{Event: "OFFLINE", Reason: "CONNECTION_LOST"},
	})
	return data
}
