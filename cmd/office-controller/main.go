// Command office-controller runs the intelligent office rules on a Raspberry
// Pi and publishes actuator changes to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/office-controller/internal/config"
	"github.com/sweeney/office-controller/internal/gpio"
	"github.com/sweeney/office-controller/internal/logic"
	"github.com/sweeney/office-controller/internal/mqtt"
	"github.com/sweeney/office-controller/internal/office"
	"github.com/sweeney/office-controller/internal/sensor"
	"github.com/sweeney/office-controller/internal/status"
	"github.com/sweeney/office-controller/internal/web"
)

func main() {
	cfg, opts, err := config.Parse(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	setupLogging(os.Stderr, cfg.LogLevel)

	if err := config.LoadEnvFile(config.PiHelperEnvFile); err != nil {
		log.Warn().Err(err).Msg("pi-helper env file not loaded")
	}

	if err := run(cfg, opts); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func setupLogging(w io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
		return
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// hardware is everything opened on the Pi.
type hardware struct {
	office.Hardware
	rtc     *sensor.DS3231
	closers []io.Closer
}

func (h *hardware) closeI2C() {
	for _, c := range h.closers {
		c.Close()
	}
}

func openHardware(cfg config.Config) (*hardware, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	bus, err := gpio.NewRealBus(cfg.GPIOChip, office.Lines())
	if err != nil {
		return nil, fmt.Errorf("init gpio: %w", err)
	}
	servo, err := gpio.NewRealServo(office.ServoPin)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("init servo: %w", err)
	}
	i2cBus, err := sensor.OpenBus(cfg.I2CBus)
	if err != nil {
		servo.Close()
		bus.Close()
		return nil, err
	}
	light, err := sensor.NewVEML7700(i2cBus)
	if err != nil {
		i2cBus.Close()
		servo.Close()
		bus.Close()
		return nil, err
	}

	h := &hardware{
		Hardware: office.Hardware{Bus: bus, Servo: servo, Light: light},
		closers:  []io.Closer{i2cBus},
	}
	if cfg.RTC {
		h.rtc = sensor.NewDS3231(i2cBus, loc)
		h.Clock = h.rtc
	} else {
		h.Clock = locatedClock{loc: loc}
	}
	return h, nil
}

// locatedClock is the system clock in the office time zone.
type locatedClock struct {
	loc *time.Location
}

func (c locatedClock) Now() (time.Time, error) {
	t, err := sensor.SystemClock{}.Now()
	return t.In(c.loc), err
}

func run(cfg config.Config, opts config.Options) error {
	hw, err := openHardware(cfg)
	if err != nil {
		return err
	}
	defer hw.closeI2C()

	schedule, err := cfg.Schedule()
	if err != nil {
		return err
	}
	off := office.New(hw.Hardware, office.Options{
		Schedule:    schedule,
		LuxMin:      cfg.Light.LuxMin,
		LuxMax:      cfg.Light.LuxMax,
		ServoSettle: cfg.ServoSettle,
	})

	if opts.SyncRTC {
		defer off.Close()
		if hw.rtc == nil {
			return errors.New("sync-rtc needs the real-time clock (-rtc)")
		}
		now := time.Now()
		if err := hw.rtc.Set(now); err != nil {
			return fmt.Errorf("sync rtc: %w", err)
		}
		log.Info().Time("time", now).Msg("real-time clock set")
		return nil
	}

	if opts.PrintState {
		defer off.Close()
		r, err := off.Sense()
		printReading(os.Stdout, r)
		if err != nil {
			return fmt.Errorf("read sensors: %w", err)
		}
		return nil
	}

	publisher, err := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID)
	if err != nil {
		off.Close()
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Tracker exists before STARTUP so the snapshot is available.
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Error().Err(err).Msg("failed to publish startup event")
	} else {
		log.Info().Msg("published startup event")
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	log.Info().
		Dur("poll", cfg.Poll).
		Dur("heartbeat", cfg.Heartbeat).
		Str("broker", cfg.Broker).
		Str("open_at", cfg.Blinds.OpenAt).
		Str("close_at", cfg.Blinds.CloseAt).
		Strs("closed_days", cfg.Blinds.ClosedDays).
		Bool("rtc", cfg.RTC).
		Msg("started")

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(off, publisher, publisher, tracker, cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		PollMs:        cfg.Poll.Milliseconds(),
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		ServoSettleMs: cfg.ServoSettle.Milliseconds(),
		Broker:        cfg.Broker,
		HTTPAddr:      cfg.HTTPAddr,
		OpenAt:        cfg.Blinds.OpenAt,
		CloseAt:       cfg.Blinds.CloseAt,
		ClosedDays:    cfg.Blinds.ClosedDays,
		LuxMin:        cfg.Light.LuxMin,
		LuxMax:        cfg.Light.LuxMax,
	}
}

// controller is the part of the office the loop drives.
type controller interface {
	Evaluate() (office.Reading, error)
	Close() error
}

func runLoop(off controller, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	recorder := logic.NewRecorder(now())
	var lastErr string

	for {
		select {
		case s := <-sig:
			name := signalName(s)
			log.Info().Str("signal", name).Msg("shutting down")
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     mqtt.EventShutdown,
				Reason:    name,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), mqtt.EventShutdown, name)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Error().Err(err).Msg("failed to publish shutdown event")
			} else {
				log.Info().Msg("published shutdown event")
			}
			if err := off.Close(); err != nil {
				log.Error().Err(err).Msg("release hardware")
			}
			return nil

		case <-tick:
			t := now()
			reading, err := off.Evaluate()
			if err != nil {
				// Log a persistent fault once, not on every tick.
				if err.Error() != lastErr {
					log.Error().Err(err).Msg("rule failed")
				}
				lastErr = err.Error()
			} else if lastErr != "" {
				log.Info().Msg("rules recovered")
				lastErr = ""
			}

			for _, event := range recorder.Record(t, reading.Actuators) {
				log.Info().
					Str("event", string(event.Type)).
					Str("blinds", string(event.Blinds)).
					Str("light", string(event.Light)).
					Str("buzzer", string(event.Buzzer)).
					Msg("event")
				if err := publisher.Publish(event); err != nil {
					log.Error().Err(err).Str("event", string(event.Type)).Msg("publish error")
				}
			}

			if tracker != nil {
				tracker.SetLastError(err)
				tracker.Update(reading.Actuators, sensors(reading), recorder.IsReady(), recorder.EventCountsSnapshot())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if hb := recorder.CheckHeartbeat(t, heartbeat); hb != nil {
				c := hb.Counts
				log.Info().
					Dur("uptime", hb.Uptime).
					Int("blinds_open", c.BlindsOpen).
					Int("blinds_closed", c.BlindsClosed).
					Int("light_on", c.LightOn).
					Int("light_off", c.LightOff).
					Int("buzzer_on", c.BuzzerOn).
					Int("buzzer_off", c.BuzzerOff).
					Msg("heartbeat")

				hbEvent := mqtt.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     mqtt.EventHeartbeat,
				}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), mqtt.EventHeartbeat, "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Error().Err(err).Msg("heartbeat publish error")
				}
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func sensors(r office.Reading) status.Sensors {
	return status.Sensors{
		Occupancy: r.Occupancy,
		Lux:       r.Lux,
		Clock:     r.Time,
		GasAlarm:  r.GasAlarm,
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func printReading(w io.Writer, r office.Reading) {
	quadrants := make([]string, len(r.Occupancy))
	for i, o := range r.Occupancy {
		quadrants[i] = fmt.Sprintf("Q%d=%s", i+1, occupiedString(o))
	}
	gas := "OK"
	if r.GasAlarm {
		gas = "ALARM"
	}
	fmt.Fprintf(w, "Time: %s\n", r.Time.Format(time.RFC3339))
	fmt.Fprintf(w, "Occupancy: %s\n", strings.Join(quadrants, " "))
	fmt.Fprintf(w, "Lux: %.1f\n", r.Lux)
	fmt.Fprintf(w, "Gas: %s\n", gas)
}

func occupiedString(o bool) string {
	if o {
		return "occupied"
	}
	return "empty"
}
