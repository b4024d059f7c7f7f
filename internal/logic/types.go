// Package logic contains the pure office rules and actuator event tracking.
// This package has NO external dependencies (no GPIO, I2C, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the logical state of an actuator.
type State string

const (
	StateOn     State = "ON"
	StateOff    State = "OFF"
	StateOpen   State = "OPEN"
	StateClosed State = "CLOSED"
)

// EventType represents an actuator transition event.
type EventType string

const (
	EventBlindsOpen   EventType = "BLINDS_OPEN"
	EventBlindsClosed EventType = "BLINDS_CLOSED"
	EventLightOn      EventType = "LIGHT_ON"
	EventLightOff     EventType = "LIGHT_OFF"
	EventBuzzerOn     EventType = "BUZZER_ON"
	EventBuzzerOff    EventType = "BUZZER_OFF"
)

// Actuators is the set of actuator flags driven by the rules.
type Actuators struct {
	BlindsOpen bool
	LightOn    bool
	BuzzerOn   bool
}

// BlindsState returns OPEN or CLOSED.
func (a Actuators) BlindsState() State {
	if a.BlindsOpen {
		return StateOpen
	}
	return StateClosed
}

// LightState returns ON or OFF.
func (a Actuators) LightState() State {
	return onOff(a.LightOn)
}

// BuzzerState returns ON or OFF.
func (a Actuators) BuzzerState() State {
	return onOff(a.BuzzerOn)
}

func onOff(b bool) State {
	if b {
		return StateOn
	}
	return StateOff
}

// Event represents an actuator transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Blinds    State
	Light     State
	Buzzer    State
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	BlindsOpen   int
	BlindsClosed int
	LightOn      int
	LightOff     int
	BuzzerOn     int
	BuzzerOff    int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
