// Package config holds the controller settings. Values come from built-in
// defaults, then an optional YAML file, then command-line flags that were
// given explicitly.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/office-controller/internal/gpio"
	"github.com/sweeney/office-controller/internal/logic"
	"github.com/sweeney/office-controller/internal/sensor"
)

// PiHelperEnvFile is where pi-helper writes the network state.
const PiHelperEnvFile = "/run/pi-helper.env"

// Config is the full controller configuration.
type Config struct {
	Poll        time.Duration `yaml:"poll"`
	Heartbeat   time.Duration `yaml:"heartbeat"`
	ServoSettle time.Duration `yaml:"servo_settle"`
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	HTTPAddr    string        `yaml:"http"`
	GPIOChip    string        `yaml:"gpio_chip"`
	I2CBus      string        `yaml:"i2c_bus"`
	RTC         bool          `yaml:"rtc"`
	Timezone    string        `yaml:"timezone"`
	LogLevel    string        `yaml:"log_level"`
	Blinds      BlindsConfig  `yaml:"blinds"`
	Light       LightConfig   `yaml:"light"`
}

// BlindsConfig is the blind schedule.
type BlindsConfig struct {
	OpenAt     string   `yaml:"open_at"`
	CloseAt    string   `yaml:"close_at"`
	ClosedDays []string `yaml:"closed_days"`
}

// LightConfig holds the lux thresholds.
type LightConfig struct {
	LuxMin float64 `yaml:"lux_min"`
	LuxMax float64 `yaml:"lux_max"`
}

// Default returns the standard configuration.
func Default() Config {
	s := logic.DefaultSchedule()
	days := make([]string, len(s.ClosedDays))
	for i, d := range s.ClosedDays {
		days[i] = d.String()
	}
	return Config{
		Poll:        500 * time.Millisecond,
		Heartbeat:   15 * time.Minute,
		ServoSettle: time.Second,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":80",
		GPIOChip:    gpio.DefaultChip,
		I2CBus:      sensor.DefaultBus,
		RTC:         true,
		Timezone:    "Local",
		LogLevel:    "info",
		Blinds: BlindsConfig{
			OpenAt:     s.OpenAt.String(),
			CloseAt:    s.CloseAt.String(),
			ClosedDays: days,
		},
		Light: LightConfig{
			LuxMin: logic.LuxMin,
			LuxMax: logic.LuxMax,
		},
	}
}

// Options are command-line switches that are not part of Config.
type Options struct {
	ConfigPath string
	PrintState bool
	SyncRTC    bool
}

// Parse builds the configuration from args (without the program name).
func Parse(name string, args []string, output io.Writer) (Config, Options, error) {
	var opts Options
	cfg := Default()

	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(output)
	flags.StringVar(&opts.ConfigPath, "config", "", "YAML config file (flags given explicitly override it)")
	flags.BoolVar(&opts.PrintState, "print-state", false, "Print current sensor readings and exit")
	flags.BoolVar(&opts.SyncRTC, "sync-rtc", false, "Set the real-time clock from the system clock and exit")
	cfg.bind(flags)

	if err := flags.Parse(args); err != nil {
		return Config{}, Options{}, err
	}

	if opts.ConfigPath != "" {
		fileCfg, err := Load(opts.ConfigPath)
		if err != nil {
			return Config{}, Options{}, err
		}
		// Re-apply explicit flags on top of the file.
		override := flag.NewFlagSet(name, flag.ContinueOnError)
		override.SetOutput(io.Discard)
		fileCfg.bind(override)
		var setErr error
		flags.Visit(func(f *flag.Flag) {
			if override.Lookup(f.Name) == nil {
				return
			}
			if err := override.Set(f.Name, f.Value.String()); err != nil && setErr == nil {
				setErr = err
			}
		})
		if setErr != nil {
			return Config{}, Options{}, setErr
		}
		cfg = fileCfg
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, Options{}, err
	}
	return cfg, opts, nil
}

func (c *Config) bind(flags *flag.FlagSet) {
	flags.DurationVar(&c.Poll, "poll", c.Poll, "Sensor polling interval")
	flags.DurationVar(&c.Heartbeat, "heartbeat", c.Heartbeat, "Heartbeat interval (0 to disable)")
	flags.DurationVar(&c.ServoSettle, "servo-settle", c.ServoSettle, "Time the blind servo is driven before its pulses stop")
	flags.StringVar(&c.Broker, "broker", c.Broker, "MQTT broker address")
	flags.StringVar(&c.ClientID, "client-id", c.ClientID, "MQTT client ID (default office-controller)")
	flags.StringVar(&c.HTTPAddr, "http", c.HTTPAddr, "HTTP status address (empty to disable)")
	flags.StringVar(&c.GPIOChip, "gpio-chip", c.GPIOChip, "GPIO character device")
	flags.StringVar(&c.I2CBus, "i2c-bus", c.I2CBus, "I2C bus of the light sensor and clock")
	flags.BoolVar(&c.RTC, "rtc", c.RTC, "Read time from the DS3231 (false uses the system clock)")
	flags.StringVar(&c.Timezone, "tz", c.Timezone, "Time zone of the office (IANA name or Local)")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&c.Blinds.OpenAt, "open-at", c.Blinds.OpenAt, "Time the blinds open (HH:MM)")
	flags.StringVar(&c.Blinds.CloseAt, "close-at", c.Blinds.CloseAt, "Time the blinds close (HH:MM)")
	flags.Var((*dayList)(&c.Blinds.ClosedDays), "closed-days", "Comma-separated days the blinds stay closed")
	flags.Float64Var(&c.Light.LuxMin, "lux-min", c.Light.LuxMin, "Light turns on below this lux when occupied")
	flags.Float64Var(&c.Light.LuxMax, "lux-max", c.Light.LuxMax, "Light turns off above this lux")
}

// dayList is a comma-separated list of weekday names.
type dayList []string

func (d *dayList) String() string {
	if d == nil {
		return ""
	}
	return strings.Join(*d, ",")
}

func (d *dayList) Set(s string) error {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*d = out
	return nil
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that Parse and Load cannot check by type.
func (c Config) Validate() error {
	var errs []error
	if c.Poll <= 0 {
		errs = append(errs, fmt.Errorf("poll must be positive, got %v", c.Poll))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat))
	}
	if c.ServoSettle < 0 {
		errs = append(errs, fmt.Errorf("servo settle must not be negative, got %v", c.ServoSettle))
	}
	if c.Light.LuxMin < 0 || c.Light.LuxMin >= c.Light.LuxMax {
		errs = append(errs, fmt.Errorf("lux thresholds must satisfy 0 <= min < max, got %v/%v", c.Light.LuxMin, c.Light.LuxMax))
	}
	if _, err := c.Schedule(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	return errors.Join(errs...)
}

// Schedule returns the blind schedule.
func (c Config) Schedule() (logic.Schedule, error) {
	open, err := logic.ParseClock(c.Blinds.OpenAt)
	if err != nil {
		return logic.Schedule{}, fmt.Errorf("blinds open_at: %w", err)
	}
	closeAt, err := logic.ParseClock(c.Blinds.CloseAt)
	if err != nil {
		return logic.Schedule{}, fmt.Errorf("blinds close_at: %w", err)
	}
	if open >= closeAt {
		return logic.Schedule{}, fmt.Errorf("blinds open_at %s must be before close_at %s", open, closeAt)
	}
	days := make([]time.Weekday, 0, len(c.Blinds.ClosedDays))
	for _, name := range c.Blinds.ClosedDays {
		d, err := logic.ParseWeekday(name)
		if err != nil {
			return logic.Schedule{}, fmt.Errorf("blinds closed_days: %w", err)
		}
		days = append(days, d)
	}
	return logic.Schedule{OpenAt: open, CloseAt: closeAt, ClosedDays: days}, nil
}

// Location returns the office time zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

// LoadEnvFile loads variables from a dotenv file without overriding ones
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
