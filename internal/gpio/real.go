//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealBus drives GPIO lines on actual hardware using the Linux GPIO character device.
type RealBus struct {
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
	modes map[int]Mode
}

// NewRealBus opens the chip and requests every line in lines.
func NewRealBus(chipName string, lines []Line) (*RealBus, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	b := &RealBus{
		chip:  chip,
		lines: make(map[int]*gpiocdev.Line, len(lines)),
		modes: make(map[int]Mode, len(lines)),
	}
	for _, l := range lines {
		offset, err := BCM(l.Pin)
		if err != nil {
			b.Close()
			return nil, err
		}
		line, err := chip.RequestLine(offset, lineOptions(l.Mode)...)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request pin %d (GPIO%d) as %s: %w", l.Pin, offset, l.Mode, err)
		}
		b.lines[l.Pin] = line
		b.modes[l.Pin] = l.Mode
	}
	return b, nil
}

func lineOptions(m Mode) []gpiocdev.LineReqOption {
	switch m {
	case ModeInputPullUp:
		return []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp}
	case ModeOutput:
		return []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	default:
		return []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
	}
}

// Input returns true when the line reads 1.
func (b *RealBus) Input(pin int) (bool, error) {
	line, ok := b.lines[pin]
	if !ok || b.modes[pin] == ModeOutput {
		return false, fmt.Errorf("pin %d is not requested as input", pin)
	}
	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", pin, err)
	}
	return v == 1, nil
}

// Output sets the line to 1 (high) or 0 (low).
func (b *RealBus) Output(pin int, high bool) error {
	line, ok := b.lines[pin]
	if !ok || b.modes[pin] != ModeOutput {
		return fmt.Errorf("pin %d is not requested as output", pin)
	}
	v := 0
	if high {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		return fmt.Errorf("write pin %d: %w", pin, err)
	}
	return nil
}

// Close releases GPIO resources.
// Outputs are driven low and every line is reconfigured to input with
// pull-down (matching Pi boot defaults) before closing, so the LED and
// buzzer are not left on across a restart.
func (b *RealBus) Close() error {
	var errs []error

	for pin, line := range b.lines {
		if b.modes[pin] == ModeOutput {
			if err := line.SetValue(0); err != nil {
				errs = append(errs, fmt.Errorf("drive pin %d low: %w", pin, err))
			}
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	b.lines = nil

	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		b.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
