//go:build !linux

package gpio

import "errors"

var errNotSupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealBus is not available on non-Linux platforms.
type RealBus struct{}

// NewRealBus returns an error on non-Linux platforms.
func NewRealBus(chipName string, lines []Line) (*RealBus, error) {
	return nil, errNotSupported
}

// Input is not implemented on non-Linux platforms.
func (b *RealBus) Input(pin int) (bool, error) {
	return false, errNotSupported
}

// Output is not implemented on non-Linux platforms.
func (b *RealBus) Output(pin int, high bool) error {
	return errNotSupported
}

// Close is not implemented on non-Linux platforms.
func (b *RealBus) Close() error {
	return nil
}

// RealServo is not available on non-Linux platforms.
type RealServo struct{}

// NewRealServo returns an error on non-Linux platforms.
func NewRealServo(boardPin int) (*RealServo, error) {
	return nil, errNotSupported
}

// SetDutyCycle is not implemented on non-Linux platforms.
func (s *RealServo) SetDutyCycle(percent float64) error {
	return errNotSupported
}

// Close is not implemented on non-Linux platforms.
func (s *RealServo) Close() error {
	return nil
}
