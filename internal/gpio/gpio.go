// Package gpio provides GPIO line access and servo PWM with hardware abstraction.
// The real implementation uses the Linux GPIO character device for plain lines
// and periph.io for the servo PWM.
// The fake implementation allows testing without hardware.
//
// Pins are addressed by their physical header (board) number and mapped to
// BCM line offsets on gpiochip0.
package gpio

import "fmt"

// Bus reads and drives GPIO lines.
type Bus interface {
	// Input returns true when the line is high.
	Input(pin int) (bool, error)

	// Output drives the line high or low.
	Output(pin int, high bool) error

	// Close releases GPIO resources.
	Close() error
}

// Servo drives a hobby servo with a 50 Hz PWM signal.
type Servo interface {
	// SetDutyCycle sets the PWM duty cycle in percent. 0 stops the pulses.
	SetDutyCycle(percent float64) error

	// Close releases the PWM pin.
	Close() error
}

// DefaultChip is the GPIO character device of the Raspberry Pi header.
const DefaultChip = "gpiochip0"

// ServoFrequencyHz is the PWM frequency for hobby servos.
const ServoFrequencyHz = 50

// Mode is how a line is requested.
type Mode int

const (
	// ModeInput is an input with pull-down (idle low).
	ModeInput Mode = iota
	// ModeInputPullUp is an input with pull-up (idle high, active-low sensors).
	ModeInputPullUp
	// ModeOutput is an output, initially low.
	ModeOutput
)

func (m Mode) String() string {
	switch m {
	case ModeInput:
		return "input"
	case ModeInputPullUp:
		return "input-pull-up"
	case ModeOutput:
		return "output"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Line is a board pin and the mode it is requested in.
type Line struct {
	Pin  int
	Mode Mode
}

// boardToBCM maps the 40-pin header to BCM GPIO numbers.
// Power and ground pins are absent.
var boardToBCM = map[int]int{
	3: 2, 5: 3, 7: 4, 8: 14, 10: 15, 11: 17, 12: 18, 13: 27,
	15: 22, 16: 23, 18: 24, 19: 10, 21: 9, 22: 25, 23: 11, 24: 8,
	26: 7, 27: 0, 28: 1, 29: 5, 31: 6, 32: 12, 33: 13, 35: 19,
	36: 16, 37: 26, 38: 20, 40: 21,
}

// BCM returns the BCM GPIO number for a board pin.
func BCM(pin int) (int, error) {
	n, ok := boardToBCM[pin]
	if !ok {
		return 0, fmt.Errorf("board pin %d is not a GPIO pin", pin)
	}
	return n, nil
}
