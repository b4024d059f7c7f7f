package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Blinds        string       `json:"blinds"`
	Light         string       `json:"light"`
	Buzzer        string       `json:"buzzer"`
	Sensors       *SensorsJSON `json:"sensors,omitempty"`
	Ready         bool         `json:"ready"`
	LastError     string       `json:"last_error,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SensorsJSON is the JSON representation of the last sensor readings.
type SensorsJSON struct {
	Occupancy []bool  `json:"occupancy"`
	Lux       float64 `json:"lux"`
	Clock     string  `json:"clock,omitempty"`
	GasAlarm  bool    `json:"gas_alarm"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	BlindsOpen   int `json:"blinds_open"`
	BlindsClosed int `json:"blinds_closed"`
	LightOn      int `json:"light_on"`
	LightOff     int `json:"light_off"`
	BuzzerOn     int `json:"buzzer_on"`
	BuzzerOff    int `json:"buzzer_off"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs        int64    `json:"poll_ms"`
	HeartbeatMs   int64    `json:"heartbeat_ms"`
	ServoSettleMs int64    `json:"servo_settle_ms"`
	Broker        string   `json:"broker"`
	HTTPAddr      string   `json:"http_addr"`
	OpenAt        string   `json:"open_at"`
	CloseAt       string   `json:"close_at"`
	ClosedDays    []string `json:"closed_days"`
	LuxMin        float64  `json:"lux_min"`
	LuxMax        float64  `json:"lux_max"`
}

// stateOrUnknown hides actuator states until the first evaluation, when the
// physical position is not known yet.
func stateOrUnknown(ready bool, s string) string {
	if !ready {
		return "UNKNOWN"
	}
	return s
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Blinds:        stateOrUnknown(snap.Ready, string(snap.Actuators.BlindsState())),
		Light:         stateOrUnknown(snap.Ready, string(snap.Actuators.LightState())),
		Buzzer:        stateOrUnknown(snap.Ready, string(snap.Actuators.BuzzerState())),
		Ready:         snap.Ready,
		LastError:     snap.LastError,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			BlindsOpen:   snap.Counts.BlindsOpen,
			BlindsClosed: snap.Counts.BlindsClosed,
			LightOn:      snap.Counts.LightOn,
			LightOff:     snap.Counts.LightOff,
			BuzzerOn:     snap.Counts.BuzzerOn,
			BuzzerOff:    snap.Counts.BuzzerOff,
		},
		Config: ConfigJSON{
			PollMs:        snap.Config.PollMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			ServoSettleMs: snap.Config.ServoSettleMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			OpenAt:        snap.Config.OpenAt,
			CloseAt:       snap.Config.CloseAt,
			ClosedDays:    snap.Config.ClosedDays,
			LuxMin:        snap.Config.LuxMin,
			LuxMax:        snap.Config.LuxMax,
		},
	}

	if snap.Ready {
		s := &SensorsJSON{
			Occupancy: snap.Sensors.Occupancy[:],
			Lux:       snap.Sensors.Lux,
			GasAlarm:  snap.Sensors.GasAlarm,
		}
		if !snap.Sensors.Clock.IsZero() {
			s.Clock = snap.Sensors.Clock.Format(time.RFC3339)
		}
		inner.Sensors = s
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// Build returns the status document for the web endpoint (no event/reason).
func Build(snap Snapshot) StatusJSON {
	return StatusJSON{Status: buildInner(snap)}
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(Build(snap), "", "  ")
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
