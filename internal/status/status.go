// Package status provides a thread-safe status tracker for the office controller.
// It is read by the HTTP handlers and by the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/office-controller/internal/logic"
)

// NetworkInfo contains network state written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs        int64
	HeartbeatMs   int64
	ServoSettleMs int64
	Broker        string
	HTTPAddr      string
	OpenAt        string
	CloseAt       string
	ClosedDays    []string
	LuxMin        float64
	LuxMax        float64
}

// Sensors is the last set of sensor readings.
type Sensors struct {
	Occupancy [4]bool
	Lux       float64
	Clock     time.Time
	GasAlarm  bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Actuators     logic.Actuators
	Sensors       Sensors
	Ready         bool
	Counts        logic.EventCounts
	LastError     string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
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
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the result of an evaluation.
// Called from runLoop on every tick.
func (t *Tracker) Update(a logic.Actuators, s Sensors, ready bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Actuators = a
	t.snap.Sensors = s
	t.snap.Ready = ready
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetLastError records the most recent rule failure; nil clears it.
func (t *Tracker) SetLastError(err error) {
	t.mu.Lock()
	if err != nil {
		t.snap.LastError = err.Error()
	} else {
		t.snap.LastError = ""
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Config.ClosedDays = append([]string(nil), s.Config.ClosedDays...)
	s.Now = t.now()
	return s
}
