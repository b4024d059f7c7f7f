package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/office-controller/internal/config"
	"github.com/sweeney/office-controller/internal/gpio"
	"github.com/sweeney/office-controller/internal/logic"
	"github.com/sweeney/office-controller/internal/mqtt"
	"github.com/sweeney/office-controller/internal/office"
	"github.com/sweeney/office-controller/internal/sensor"
	"github.com/sweeney/office-controller/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper renames them, update the constants.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		assert.Equal(t, canonical, got)
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	require.NotNil(t, info)
	assert.Equal(t, &status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}, info)
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	assert.Nil(t, readNetworkInfo())
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "")

	info := readNetworkInfo()
	require.NotNil(t, info)
	assert.Equal(t, "connected", info.Status)
	assert.Empty(t, info.IP)
}

// --- runLoop tests ---

// 2026-01-05 is a Monday.
var mondayNine = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Only runLoop's goroutine calls it.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

type rig struct {
	bus   *gpio.FakeBus
	servo *gpio.FakeServo
	light *sensor.FakeLightSensor
	clock *sensor.FakeClock
	off   *office.Office
}

// newRig builds an office on fakes: empty, bright, clean air, Monday 09:00.
func newRig() *rig {
	r := &rig{
		bus:   gpio.NewFakeBus(),
		servo: gpio.NewFakeServo(),
		light: sensor.NewFakeLightSensor(800),
		clock: sensor.NewFakeClock(mondayNine),
	}
	r.bus.Set(office.GasPin, true)
	opts := office.DefaultOptions()
	opts.Sleep = func(time.Duration) {}
	r.off = office.New(office.Hardware{Bus: r.bus, Servo: r.servo, Light: r.light, Clock: r.clock}, opts)
	return r
}

// scripted runs steps[i] inside runLoop's goroutine just before the i-th
// evaluation, so fakes can change between ticks without racing the loop.
type scripted struct {
	*office.Office
	steps []func()
	n     int
}

func (s *scripted) Evaluate() (office.Reading, error) {
	if s.n < len(s.steps) && s.steps[s.n] != nil {
		s.steps[s.n]()
	}
	s.n++
	return s.Office.Evaluate()
}

// runRunLoop drives runLoop for nTicks ticks and then the signal.
func runRunLoop(t *testing.T, off controller, pub *mqtt.FakePublisher, tracker *status.Tracker, heartbeat time.Duration, clock func() time.Time, nTicks int, signal os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(off, pub, pub, tracker, heartbeat, clock, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("runLoop did not return")
		return nil
	}
}

func eventTypes(events []logic.Event) []logic.EventType {
	out := make([]logic.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestRunLoopFirstEvaluation(t *testing.T) {
	r := newRig()
	r.bus.Set(office.InfraredPin2, true)
	r.light.Set(100)
	pub := mqtt.NewFakePublisher()

	err := runRunLoop(t, r.off, pub, nil, 0, fakeClock(mondayNine, time.Second), 1, syscall.SIGTERM)
	require.NoError(t, err)

	assert.Equal(t, []logic.EventType{logic.EventBlindsOpen, logic.EventLightOn}, eventTypes(pub.Events))
	last := pub.Events[len(pub.Events)-1]
	assert.Equal(t, logic.StateOpen, last.Blinds)
	assert.Equal(t, logic.StateOn, last.Light)
	assert.Equal(t, logic.StateOff, last.Buzzer)
	assert.Equal(t, mondayNine.Add(time.Second), last.Timestamp)
}

func TestRunLoopNoEventsWhenNothingChanges(t *testing.T) {
	r := newRig()
	r.clock.Set(mondayNine.Add(12 * time.Hour)) // 21:00, blinds stay closed
	pub := mqtt.NewFakePublisher()

	err := runRunLoop(t, r.off, pub, nil, 0, fakeClock(mondayNine, time.Second), 4, syscall.SIGTERM)
	require.NoError(t, err)

	assert.Empty(t, pub.Events)
	assert.Equal(t, []string{"SHUTDOWN"}, pub.SystemEventNames())
	// Driven closed once on the first tick, then parked on shutdown.
	assert.Equal(t, []float64{logic.BlindsClosedDuty, 0, 0}, r.servo.Moves())
}

func TestRunLoopTransitions(t *testing.T) {
	r := newRig()
	off := &scripted{Office: r.off, steps: []func(){
		nil,                                                               // blinds open
		func() { r.bus.Set(office.InfraredPin1, true); r.light.Set(200) }, // light on
		func() { r.light.Set(520) },                                       // between thresholds, no change
		func() { r.bus.Set(office.GasPin, false) },                        // buzzer on
		func() { r.bus.Set(office.GasPin, true) },                         // buzzer off
		func() { r.bus.Set(office.InfraredPin1, false) },                  // light off
		func() { r.clock.Set(mondayNine.Add(11 * time.Hour)) },            // 20:00, blinds close
	}}
	pub := mqtt.NewFakePublisher()
	tracker := status.NewTracker(mondayNine, status.Config{})

	err := runRunLoop(t, off, pub, tracker, 0, fakeClock(mondayNine, time.Second), len(off.steps), syscall.SIGTERM)
	require.NoError(t, err)

	assert.Equal(t, []logic.EventType{
		logic.EventBlindsOpen,
		logic.EventLightOn,
		logic.EventBuzzerOn,
		logic.EventBuzzerOff,
		logic.EventLightOff,
		logic.EventBlindsClosed,
	}, eventTypes(pub.Events))
	assert.Len(t, pub.Payloads(mqtt.Topic), 6)

	snap := tracker.Snapshot()
	assert.True(t, snap.Ready)
	assert.Equal(t, logic.Actuators{}, snap.Actuators)
	assert.Equal(t, logic.EventCounts{
		BlindsOpen: 1, BlindsClosed: 1, LightOn: 1, LightOff: 1, BuzzerOn: 1, BuzzerOff: 1,
	}, snap.Counts)
	assert.Equal(t, 520.0, snap.Sensors.Lux)
}

func TestRunLoopRuleErrorIsRecordedAndRecovers(t *testing.T) {
	r := newRig()
	r.bus.Set(office.InfraredPin4, true)
	r.light.Set(100)

	var midErr string
	var tracker *status.Tracker
	off := &scripted{Office: r.off, steps: []func(){
		func() { r.light.SetError(errors.New("i2c nak")) },
		func() { midErr = tracker.Snapshot().LastError; r.light.SetError(nil) },
	}}
	pub := mqtt.NewFakePublisher()
	tracker = status.NewTracker(mondayNine, status.Config{})

	err := runRunLoop(t, off, pub, tracker, 0, fakeClock(mondayNine, time.Second), 2, syscall.SIGTERM)
	require.NoError(t, err)

	assert.Contains(t, midErr, "i2c nak")
	assert.Empty(t, tracker.Snapshot().LastError)
	// Blinds still opened on the failing tick; the light followed once the sensor came back.
	assert.Equal(t, []logic.EventType{logic.EventBlindsOpen, logic.EventLightOn}, eventTypes(pub.Events))
}

func TestRunLoopHeartbeat(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.42")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "associated")
	t.Setenv(envNetworkWifiSSID, "OfficeNet")

	// Clock calls: start, then one per tick. With a 5-minute step the third
	// tick is 15 minutes after start.
	r := newRig()
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	tracker := status.NewTracker(mondayNine, status.Config{Broker: "tcp://test:1883"})

	err := runRunLoop(t, r.off, pub, tracker, 15*time.Minute, fakeClock(mondayNine, 5*time.Minute), 4, syscall.SIGTERM)
	require.NoError(t, err)

	assert.Equal(t, []string{"HEARTBEAT", "SHUTDOWN"}, pub.SystemEventNames())
	hb := pub.SystemEvents[0]
	assert.Equal(t, mondayNine.Add(15*time.Minute), hb.Timestamp)
	assert.False(t, hb.Retained)

	var doc status.StatusJSON
	require.NoError(t, json.Unmarshal(hb.RawPayload, &doc))
	assert.Equal(t, "HEARTBEAT", doc.Status.Event)
	assert.True(t, doc.Status.Ready)
	assert.Equal(t, "OPEN", doc.Status.Blinds)
	assert.Equal(t, 1, doc.Status.Counts.BlindsOpen)
	assert.True(t, doc.Status.MQTT.Connected)
	require.NotNil(t, doc.Status.Network)
	assert.Equal(t, "OfficeNet", doc.Status.Network.SSID)
	assert.Equal(t, "192.168.1.42", doc.Status.Network.IP)
}

func TestRunLoopHeartbeatDisabled(t *testing.T) {
	r := newRig()
	pub := mqtt.NewFakePublisher()

	err := runRunLoop(t, r.off, pub, nil, 0, fakeClock(mondayNine, time.Hour), 5, syscall.SIGTERM)
	require.NoError(t, err)
	assert.Equal(t, []string{"SHUTDOWN"}, pub.SystemEventNames())
}

func TestRunLoopPublishError(t *testing.T) {
	r := newRig()
	pub := mqtt.NewFakePublisher()
	pub.PublishError = errors.New("broker unavailable")

	err := runRunLoop(t, r.off, pub, nil, 0, fakeClock(mondayNine, time.Second), 2, syscall.SIGTERM)
	require.NoError(t, err)

	assert.Empty(t, pub.Events)
	assert.Equal(t, []string{"SHUTDOWN"}, pub.SystemEventNames())
}

func TestRunLoopShutdown(t *testing.T) {
	for _, tt := range []struct {
		signal os.Signal
		reason string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
	} {
		t.Run(tt.reason, func(t *testing.T) {
			r := newRig()
			r.bus.Set(office.InfraredPin1, true)
			r.light.Set(100)
			pub := mqtt.NewFakePublisher()
			tracker := status.NewTracker(mondayNine, status.Config{})

			err := runRunLoop(t, r.off, pub, tracker, 0, fakeClock(mondayNine, time.Second), 1, tt.signal)
			require.NoError(t, err)

			require.Len(t, pub.SystemEvents, 1)
			se := pub.SystemEvents[0]
			assert.Equal(t, "SHUTDOWN", se.Event)
			assert.Equal(t, tt.reason, se.Reason)
			assert.True(t, se.Retained)

			var doc status.StatusJSON
			require.NoError(t, json.Unmarshal(se.RawPayload, &doc))
			assert.Equal(t, tt.reason, doc.Status.Reason)
			assert.Equal(t, "ON", doc.Status.Light)

			// Hardware is released with the light off.
			assert.False(t, r.bus.Level(office.LEDPin))
			assert.True(t, r.bus.Closed)
			assert.True(t, r.servo.Closed)
		})
	}
}

func TestSignalName(t *testing.T) {
	assert.Equal(t, "SIGINT", signalName(syscall.SIGINT))
	assert.Equal(t, "SIGTERM", signalName(syscall.SIGTERM))
	assert.Equal(t, "UNKNOWN", signalName(syscall.SIGHUP))
}

func TestPrintReading(t *testing.T) {
	var buf bytes.Buffer
	printReading(&buf, office.Reading{
		Time:      mondayNine,
		Occupancy: [4]bool{true, false, false, true},
		Lux:       432.19,
		GasAlarm:  true,
	})
	assert.Equal(t, "Time: 2026-01-05T09:00:00Z\n"+
		"Occupancy: Q1=occupied Q2=empty Q3=empty Q4=occupied\n"+
		"Lux: 432.2\n"+
		"Gas: ALARM\n", buf.String())
}

func TestSetupLoggingJSON(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	setupLogging(&buf, "warn")
	log.Info().Msg("hidden")
	log.Warn().Str("pin", "31").Msg("gas detected")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"message":"gas detected"`)
	assert.Contains(t, out, `"pin":"31"`)
}

func TestLocatedClock(t *testing.T) {
	loc := time.FixedZone("office", 2*60*60)
	now, err := locatedClock{loc: loc}.Now()
	require.NoError(t, err)
	assert.Equal(t, loc, now.Location())
}

func TestStatusConfig(t *testing.T) {
	cfg := statusConfig(config.Default())
	assert.Equal(t, int64(500), cfg.PollMs)
	assert.Equal(t, int64(1000), cfg.ServoSettleMs)
	assert.Equal(t, []string{"Saturday"}, cfg.ClosedDays)
	assert.Equal(t, 550.0, cfg.LuxMax)
}
