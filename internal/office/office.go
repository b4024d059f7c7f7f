// Package office implements the intelligent office rules: quadrant
// occupancy, the blind schedule, the light level and the air quality alarm.
//
// Each rule reads one or two sensors and drives at most one actuator.
// No state flows between rules apart from the light rule reading occupancy.
package office

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/office-controller/internal/gpio"
	"github.com/sweeney/office-controller/internal/logic"
	"github.com/sweeney/office-controller/internal/sensor"
)

// Pin definitions (board numbering)
const (
	InfraredPin1 = 11
	InfraredPin2 = 12
	InfraredPin3 = 13
	InfraredPin4 = 15
	ServoPin     = 18
	LEDPin       = 29
	GasPin       = 31
	BuzzerPin    = 36
)

// QuadrantPins lists the infrared sensors, one per office quadrant.
var QuadrantPins = [4]int{InfraredPin1, InfraredPin2, InfraredPin3, InfraredPin4}

// DefaultServoSettle is how long the servo is driven before its pulses stop.
const DefaultServoSettle = time.Second

// ErrPinOutOfRange is returned for a pin that is not an occupancy sensor.
var ErrPinOutOfRange = errors.New("argument out of range")

// Lines returns the GPIO lines the office needs on the bus. The servo pin is
// driven separately by the PWM servo.
func Lines() []gpio.Line {
	return []gpio.Line{
		{Pin: InfraredPin1, Mode: gpio.ModeInput},
		{Pin: InfraredPin2, Mode: gpio.ModeInput},
		{Pin: InfraredPin3, Mode: gpio.ModeInput},
		{Pin: InfraredPin4, Mode: gpio.ModeInput},
		{Pin: GasPin, Mode: gpio.ModeInputPullUp},
		{Pin: LEDPin, Mode: gpio.ModeOutput},
		{Pin: BuzzerPin, Mode: gpio.ModeOutput},
	}
}

// Hardware holds the devices the office reads and drives.
type Hardware struct {
	Bus   gpio.Bus
	Servo gpio.Servo
	Light sensor.LightSensor
	Clock sensor.Clock
}

// Options tunes the rules. Zero values fall back to the defaults.
type Options struct {
	Schedule    logic.Schedule
	LuxMin      float64
	LuxMax      float64
	ServoSettle time.Duration

	// Sleep waits for the servo to settle. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// DefaultOptions returns the standard office rules.
func DefaultOptions() Options {
	return Options{
		Schedule:    logic.DefaultSchedule(),
		LuxMin:      logic.LuxMin,
		LuxMax:      logic.LuxMax,
		ServoSettle: DefaultServoSettle,
		Sleep:       time.Sleep,
	}
}

// Reading is what the office saw and did during one evaluation.
type Reading struct {
	Time      time.Time
	Occupancy [4]bool
	Lux       float64
	GasAlarm  bool
	Actuators logic.Actuators
}

// Occupied reports whether any quadrant is occupied.
func (r Reading) Occupied() bool {
	for _, o := range r.Occupancy {
		if o {
			return true
		}
	}
	return false
}

// Office drives the blinds, light and buzzer from its sensors.
type Office struct {
	hw   Hardware
	opts Options

	BlindsOpen bool
	LightOn    bool
	BuzzerOn   bool

	// Whether each actuator has been driven at least once. Until then the
	// physical state is unknown and the first decision is always applied.
	blindsDriven bool
	lightDriven  bool
	buzzerDriven bool

	last Reading
}

// New creates an office with every actuator off and the blinds closed.
func New(hw Hardware, opts Options) *Office {
	def := DefaultOptions()
	if opts.Schedule.CloseAt == 0 && opts.Schedule.OpenAt == 0 {
		opts.Schedule = def.Schedule
	}
	if opts.LuxMin == 0 && opts.LuxMax == 0 {
		opts.LuxMin, opts.LuxMax = def.LuxMin, def.LuxMax
	}
	if opts.ServoSettle == 0 {
		opts.ServoSettle = def.ServoSettle
	}
	if opts.Sleep == nil {
		opts.Sleep = def.Sleep
	}
	return &Office{hw: hw, opts: opts}
}

// CheckQuadrantOccupancy reads the infrared sensor on pin. Only the four
// quadrant pins are accepted; anything else fails with ErrPinOutOfRange
// without touching the hardware.
func (o *Office) CheckQuadrantOccupancy(pin int) (bool, error) {
	if !isQuadrantPin(pin) {
		return false, fmt.Errorf("check occupancy on pin %d: %w", pin, ErrPinOutOfRange)
	}
	occupied, err := o.hw.Bus.Input(pin)
	if err != nil {
		return false, fmt.Errorf("check occupancy on pin %d: %w", pin, err)
	}
	return occupied, nil
}

func isQuadrantPin(pin int) bool {
	for _, p := range QuadrantPins {
		if p == pin {
			return true
		}
	}
	return false
}

// ManageBlindsBasedOnTime opens the blinds during office hours and closes
// them otherwise.
func (o *Office) ManageBlindsBasedOnTime() error {
	now, err := o.hw.Clock.Now()
	if err != nil {
		return fmt.Errorf("manage blinds: read clock: %w", err)
	}
	o.last.Time = now

	open := o.opts.Schedule.BlindsOpen(now)
	if o.blindsDriven && open == o.BlindsOpen {
		return nil
	}
	if err := o.changeServoAngle(logic.BlindsDuty(open)); err != nil {
		return fmt.Errorf("manage blinds: %w", err)
	}
	o.BlindsOpen = open
	o.blindsDriven = true
	log.Debug().Time("clock", now).Bool("open", open).Msg("blinds moved")
	return nil
}

// changeServoAngle drives the servo to duty, waits for it to get there and
// then stops the pulses so it does not jitter.
func (o *Office) changeServoAngle(duty float64) error {
	if err := o.hw.Servo.SetDutyCycle(duty); err != nil {
		return fmt.Errorf("servo duty %.1f: %w", duty, err)
	}
	o.opts.Sleep(o.opts.ServoSettle)
	if err := o.hw.Servo.SetDutyCycle(0); err != nil {
		return fmt.Errorf("servo stop: %w", err)
	}
	return nil
}

// ManageLightLevel switches the light on when an occupied office gets too
// dark and off when it gets bright enough or empties.
func (o *Office) ManageLightLevel() error {
	var occupancy [4]bool
	for i, pin := range QuadrantPins {
		occupied, err := o.CheckQuadrantOccupancy(pin)
		if err != nil {
			return fmt.Errorf("manage light: %w", err)
		}
		occupancy[i] = occupied
	}
	o.last.Occupancy = occupancy

	lux, err := o.hw.Light.Lux()
	if err != nil {
		return fmt.Errorf("manage light: read lux: %w", err)
	}
	o.last.Lux = lux

	on := logic.LightDecisionWithin(o.last.Occupied(), lux, o.opts.LuxMin, o.opts.LuxMax, o.LightOn)
	if o.lightDriven && on == o.LightOn {
		return nil
	}
	if err := o.hw.Bus.Output(LEDPin, on); err != nil {
		return fmt.Errorf("manage light: %w", err)
	}
	o.LightOn = on
	o.lightDriven = true
	log.Debug().Float64("lux", lux).Bool("occupied", o.last.Occupied()).Bool("on", on).Msg("light switched")
	return nil
}

// MonitorAirQuality sounds the buzzer while the gas sensor reports a
// concentration over its threshold. The sensor output is active-low.
func (o *Office) MonitorAirQuality() error {
	high, err := o.hw.Bus.Input(GasPin)
	if err != nil {
		return fmt.Errorf("monitor air quality: %w", err)
	}
	alarm := logic.BuzzerDecision(!high)
	o.last.GasAlarm = alarm

	if o.buzzerDriven && alarm == o.BuzzerOn {
		return nil
	}
	if err := o.hw.Bus.Output(BuzzerPin, alarm); err != nil {
		return fmt.Errorf("monitor air quality: %w", err)
	}
	o.BuzzerOn = alarm
	o.buzzerDriven = true
	if alarm {
		log.Warn().Int("pin", GasPin).Msg("gas detected, buzzer on")
	} else {
		log.Debug().Msg("air quality normal, buzzer off")
	}
	return nil
}

// Evaluate runs the blind, light and air quality rules in that order. A
// failing rule does not stop the others; their errors are joined.
func (o *Office) Evaluate() (Reading, error) {
	errs := []error{
		o.ManageBlindsBasedOnTime(),
		o.ManageLightLevel(),
		o.MonitorAirQuality(),
	}
	o.last.Actuators = o.State()
	return o.last, errors.Join(errs...)
}

// Sense reads every sensor without driving any actuator.
func (o *Office) Sense() (Reading, error) {
	var r Reading
	var errs []error
	now, err := o.hw.Clock.Now()
	if err != nil {
		errs = append(errs, fmt.Errorf("read clock: %w", err))
	}
	r.Time = now
	for i, pin := range QuadrantPins {
		occupied, err := o.CheckQuadrantOccupancy(pin)
		if err != nil {
			errs = append(errs, err)
		}
		r.Occupancy[i] = occupied
	}
	lux, err := o.hw.Light.Lux()
	if err != nil {
		errs = append(errs, fmt.Errorf("read lux: %w", err))
	}
	r.Lux = lux
	high, err := o.hw.Bus.Input(GasPin)
	if err != nil {
		errs = append(errs, fmt.Errorf("read gas sensor: %w", err))
	} else {
		r.GasAlarm = !high
	}
	r.Actuators = o.State()
	return r, errors.Join(errs...)
}

// State returns the actuator flags.
func (o *Office) State() logic.Actuators {
	return logic.Actuators{
		BlindsOpen: o.BlindsOpen,
		LightOn:    o.LightOn,
		BuzzerOn:   o.BuzzerOn,
	}
}

// LastReading returns the sensor values seen by the most recent rules.
func (o *Office) LastReading() Reading {
	r := o.last
	r.Actuators = o.State()
	return r
}

// Close switches the light and buzzer off, stops the servo and releases
// the hardware.
func (o *Office) Close() error {
	var errs []error
	if err := o.hw.Bus.Output(LEDPin, false); err != nil {
		errs = append(errs, fmt.Errorf("light off: %w", err))
	}
	if err := o.hw.Bus.Output(BuzzerPin, false); err != nil {
		errs = append(errs, fmt.Errorf("buzzer off: %w", err))
	}
	o.LightOn = false
	o.BuzzerOn = false
	if err := o.hw.Servo.SetDutyCycle(0); err != nil {
		errs = append(errs, fmt.Errorf("servo stop: %w", err))
	}
	if err := o.hw.Servo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close servo: %w", err))
	}
	if err := o.hw.Bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close gpio: %w", err))
	}
	return errors.Join(errs...)
}
