package sensor

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// VEML7700Addr is the fixed I2C address of the VEML7700.
const VEML7700Addr = 0x10

const (
	vemlRegConfig = 0x00
	vemlRegALS    = 0x04

	// Lux per count at gain x1 and 100 ms integration time.
	vemlResolution = 0.0576
)

// VEML7700 is a Vishay ambient light sensor.
type VEML7700 struct {
	dev i2c.Dev
}

// NewVEML7700 powers the sensor on with gain x1 and 100 ms integration.
func NewVEML7700(bus i2c.Bus) (*VEML7700, error) {
	v := &VEML7700{dev: i2c.Dev{Bus: bus, Addr: VEML7700Addr}}
	// Config is a little-endian 16-bit register; all zero means gain x1,
	// 100 ms, no interrupt, powered on.
	if err := v.dev.Tx([]byte{vemlRegConfig, 0x00, 0x00}, nil); err != nil {
		return nil, fmt.Errorf("veml7700 config: %w", err)
	}
	return v, nil
}

// Lux returns the ambient light level.
func (v *VEML7700) Lux() (float64, error) {
	buf := make([]byte, 2)
	if err := v.dev.Tx([]byte{vemlRegALS}, buf); err != nil {
		return 0, fmt.Errorf("veml7700 read: %w", err)
	}
	raw := uint16(buf[0]) | uint16(buf[1])<<8
	return correctLux(float64(raw) * vemlResolution), nil
}

// correctLux applies the Vishay non-linearity correction, which only
// matters above roughly 1000 lux.
func correctLux(lux float64) float64 {
	if lux <= 1000 {
		return lux
	}
	return 6.0135e-13*lux*lux*lux*lux - 9.3924e-9*lux*lux*lux + 8.1488e-5*lux*lux + 1.0023*lux
}
