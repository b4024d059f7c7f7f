// Package mqtt publishes office events to an MQTT broker.
//
// Actuator transitions go to Topic at QoS 0. Lifecycle events (startup,
// shutdown, heartbeat, reconnect) go to TopicSystem at QoS 1 so a
// subscriber that joins late still learns whether the controller is up.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/office-controller/internal/logic"
)

// Topics.
const (
	Topic       = "office/controller/events"
	TopicSystem = "office/controller/system"
)

// System event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventReconnected = "RECONNECTED"
)

// ReasonDisconnect is the shutdown reason carried by the last will.
const ReasonDisconnect = "MQTT_DISCONNECT"

const (
	qosEvent  byte = 0
	qosSystem byte = 1
)

// Publisher sends events to the broker. Errors are reported, never fatal.
type Publisher interface {
	Publish(event logic.Event) error
	PublishSystem(event SystemEvent) error
	Close() error
}

// ConnectionStatus reports whether the broker connection is up.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a controller lifecycle event.
type SystemEvent struct {
	Timestamp time.Time
	Event     string
	Reason    string // shutdown only

	// RawPayload, when set, is sent as is. The daemon uses it for full
	// status snapshots.
	RawPayload []byte
	Retained   bool
}

// Payload is the JSON body of an actuator event.
type Payload struct {
	Office OfficePayload `json:"office"`
}

type OfficePayload struct {
	Timestamp string        `json:"timestamp"`
	Event     string        `json:"event"`
	Blinds    ActuatorState `json:"blinds"`
	Light     ActuatorState `json:"light"`
	Buzzer    ActuatorState `json:"buzzer"`
}

type ActuatorState struct {
	State string `json:"state"`
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatPayload encodes an actuator event. Every actuator's state after the
// transition is included, not only the one that changed.
func FormatPayload(event logic.Event) ([]byte, error) {
	return json.Marshal(Payload{Office: OfficePayload{
		Timestamp: timestamp(event.Timestamp),
		Event:     string(event.Type),
		Blinds:    ActuatorState{State: string(event.Blinds)},
		Light:     ActuatorState{State: string(event.Light)},
		Buzzer:    ActuatorState{State: string(event.Buzzer)},
	}})
}

// SystemPayload is the JSON body of a lifecycle event without a status
// snapshot, such as the last will or RECONNECTED.
type SystemPayload struct {
	System struct {
		Timestamp string `json:"timestamp"`
		Event     string `json:"event"`
		Reason    string `json:"reason,omitempty"`
	} `json:"system"`
}

// FormatSystemPayload encodes a lifecycle event, or returns RawPayload.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	var p SystemPayload
	p.System.Timestamp = timestamp(event.Timestamp)
	p.System.Event = event.Event
	p.System.Reason = event.Reason
	return json.Marshal(p)
}

// EventMessage builds the wire message for an actuator event.
func EventMessage(event logic.Event) (Message, error) {
	payload, err := FormatPayload(event)
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: Topic, Payload: payload, QoS: qosEvent}, nil
}

// SystemMessage builds the wire message for a lifecycle event.
func SystemMessage(event SystemEvent) (Message, error) {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: TopicSystem, Payload: payload, QoS: qosSystem, Retained: event.Retained}, nil
}
