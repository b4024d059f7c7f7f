// Package sensor provides the ambient light sensor and the real-time clock.
// Both chips sit on the I2C bus and are driven through periph.io.
package sensor

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// DefaultBus is the I2C bus on the Raspberry Pi header.
const DefaultBus = "/dev/i2c-1"

// LightSensor reports ambient light.
type LightSensor interface {
	Lux() (float64, error)
}

// Clock reports the current wall time.
type Clock interface {
	Now() (time.Time, error)
}

// SystemClock reads the operating system clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() (time.Time, error) {
	return time.Now(), nil
}

// OpenBus initialises the periph host drivers and opens an I2C bus.
func OpenBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return bus, nil
}
