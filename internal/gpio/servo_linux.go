package gpio

import (
	"fmt"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// RealServo generates the servo PWM signal through periph.io.
type RealServo struct {
	pin pgpio.PinIO
}

// NewRealServo initialises the periph host drivers and looks up the servo pin.
func NewRealServo(boardPin int) (*RealServo, error) {
	bcm, err := BCM(boardPin)
	if err != nil {
		return nil, err
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", bcm))
	if p == nil {
		return nil, fmt.Errorf("servo pin %d (GPIO%d) not found", boardPin, bcm)
	}
	if err := p.Out(pgpio.Low); err != nil {
		return nil, fmt.Errorf("servo pin %d: %w", boardPin, err)
	}
	return &RealServo{pin: p}, nil
}

// SetDutyCycle starts a 50 Hz PWM at the given duty cycle. 0 drives the pin low.
func (s *RealServo) SetDutyCycle(percent float64) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("duty cycle %.1f%% out of range", percent)
	}
	if percent == 0 {
		if err := s.pin.Out(pgpio.Low); err != nil {
			return fmt.Errorf("stop servo pwm: %w", err)
		}
		return nil
	}
	duty := pgpio.Duty(float64(pgpio.DutyMax) * percent / 100)
	if err := s.pin.PWM(duty, ServoFrequencyHz*physic.Hertz); err != nil {
		return fmt.Errorf("servo pwm %.1f%%: %w", percent, err)
	}
	return nil
}

// Close stops the PWM and leaves the pin low.
func (s *RealServo) Close() error {
	if err := s.pin.Halt(); err != nil {
		return fmt.Errorf("halt servo pin: %w", err)
	}
	return s.pin.Out(pgpio.Low)
}
