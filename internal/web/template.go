package web

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/sweeney/office-controller/internal/logic"
)

var indexFuncs = template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"state": func(ready bool, s logic.State) string {
		if !ready {
			return "UNKNOWN"
		}
		return string(s)
	},
	"class": func(ready bool, s logic.State) string {
		switch {
		case !ready:
			return "unknown"
		case s == logic.StateOn || s == logic.StateOpen:
			return "on"
		}
		return "off"
	},
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
	"join": strings.Join,
}

var indexTmpl = template.Must(template.New("index").Funcs(indexFuncs).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Intelligent Office</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.alarm { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Intelligent Office</h1>

<h2>Actuators</h2>
<table>
<tr><th>Blinds</th><td id="blinds-state" class="{{class .Ready .Actuators.BlindsState}}">{{state .Ready .Actuators.BlindsState}}</td></tr>
<tr><th>Light</th><td id="light-state" class="{{class .Ready .Actuators.LightState}}">{{state .Ready .Actuators.LightState}}</td></tr>
<tr><th>Buzzer</th><td id="buzzer-state" class="{{if and .Ready .Actuators.BuzzerOn}}alarm{{else}}{{class .Ready .Actuators.BuzzerState}}{{end}}">{{state .Ready .Actuators.BuzzerState}}</td></tr>
<tr><th>Ready</th><td>{{yesno .Ready}}</td></tr>
{{if .LastError}}<tr><th>Last error</th><td class="alarm">{{.LastError}}</td></tr>{{end}}
</table>

{{if .Ready}}
<h2>Sensors</h2>
<table>
{{range $i, $o := .Sensors.Occupancy}}<tr><th>Quadrant {{$i}}</th><td>{{if $o}}occupied{{else}}empty{{end}}</td></tr>
{{end}}<tr><th>Light level</th><td>{{printf "%.0f" .Sensors.Lux}} lux</td></tr>
<tr><th>Clock</th><td>{{if not .Sensors.Clock.IsZero}}{{.Sensors.Clock.Format "Mon 2006-01-02 15:04:05"}}{{else}}unavailable{{end}}</td></tr>
<tr><th>Gas</th><td class="{{if .Sensors.GasAlarm}}alarm{{else}}off{{end}}">{{if .Sensors.GasAlarm}}detected{{else}}normal{{end}}</td></tr>
</table>
{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Blinds opened</th><td>{{.Counts.BlindsOpen}}</td></tr>
<tr><th>Blinds closed</th><td>{{.Counts.BlindsClosed}}</td></tr>
<tr><th>Light on</th><td>{{.Counts.LightOn}}</td></tr>
<tr><th>Light off</th><td>{{.Counts.LightOff}}</td></tr>
<tr><th>Buzzer on</th><td>{{.Counts.BuzzerOn}}</td></tr>
<tr><th>Buzzer off</th><td>{{.Counts.BuzzerOff}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Blinds open</th><td>{{.Config.OpenAt}}-{{.Config.CloseAt}}{{if .Config.ClosedDays}}, closed {{join .Config.ClosedDays ", "}}{{end}}</td></tr>
<tr><th>Lux thresholds</th><td>{{.Config.LuxMin}} / {{.Config.LuxMax}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`
