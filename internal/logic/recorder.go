package logic

import "time"

// Recorder tracks actuator states, turns changes into events and keeps
// event counts and heartbeat timing.
type Recorder struct {
	current       Actuators
	ready         bool
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewRecorder creates a recorder with every actuator off or closed.
// The startTime is used for calculating uptime in heartbeat events.
func NewRecorder(startTime time.Time) *Recorder {
	return &Recorder{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Record takes the actuator states after an evaluation and returns an event
// for each actuator that changed, in the order blinds, light, buzzer.
func (r *Recorder) Record(now time.Time, next Actuators) []Event {
	prev := r.current
	r.current = next
	r.ready = true

	var types []EventType
	if prev.BlindsOpen != next.BlindsOpen {
		if next.BlindsOpen {
			types = append(types, EventBlindsOpen)
		} else {
			types = append(types, EventBlindsClosed)
		}
	}
	if prev.LightOn != next.LightOn {
		if next.LightOn {
			types = append(types, EventLightOn)
		} else {
			types = append(types, EventLightOff)
		}
	}
	if prev.BuzzerOn != next.BuzzerOn {
		if next.BuzzerOn {
			types = append(types, EventBuzzerOn)
		} else {
			types = append(types, EventBuzzerOff)
		}
	}

	var events []Event
	for _, typ := range types {
		r.count(typ)
		events = append(events, Event{
			Timestamp: now,
			Type:      typ,
			Blinds:    next.BlindsState(),
			Light:     next.LightState(),
			Buzzer:    next.BuzzerState(),
		})
	}
	return events
}

func (r *Recorder) count(typ EventType) {
	switch typ {
	case EventBlindsOpen:
		r.eventCounts.BlindsOpen++
	case EventBlindsClosed:
		r.eventCounts.BlindsClosed++
	case EventLightOn:
		r.eventCounts.LightOn++
	case EventLightOff:
		r.eventCounts.LightOff++
	case EventBuzzerOn:
		r.eventCounts.BuzzerOn++
	case EventBuzzerOff:
		r.eventCounts.BuzzerOff++
	}
}

// IsReady returns whether at least one evaluation has been recorded.
func (r *Recorder) IsReady() bool {
	return r.ready
}

// CurrentState returns the last recorded actuator states.
func (r *Recorder) CurrentState() Actuators {
	return r.current
}

// EventCountsSnapshot returns a copy of the event counts.
func (r *Recorder) EventCountsSnapshot() EventCounts {
	return r.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if nothing has been recorded yet,
// if the interval has not elapsed, or if interval is <= 0 (disabled).
func (r *Recorder) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if !r.ready {
		return nil
	}
	if now.Sub(r.lastHeartbeat) < interval {
		return nil
	}
	r.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(r.startTime),
		Counts:    r.eventCounts,
	}
}
