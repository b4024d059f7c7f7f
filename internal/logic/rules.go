package logic

import (
	"fmt"
	"strings"
	"time"
)

// Light thresholds in lux. Between the two the light keeps its state.
const (
	LuxMin = 500.0
	LuxMax = 550.0
)

// Servo duty cycles (percent) for the blind positions.
const (
	BlindsOpenDuty   = 12.0
	BlindsClosedDuty = 2.0
)

// ClockTime is a time of day as minutes after midnight.
type ClockTime int

// NewClockTime returns the ClockTime for hour:minute.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClock parses "HH:MM" in 24-hour form.
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return NewClockTime(t.Hour(), t.Minute()), nil
}

// Of returns the ClockTime of t in t's location.
func Of(t time.Time) ClockTime {
	return NewClockTime(t.Hour(), t.Minute())
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Schedule decides when the blinds are open.
type Schedule struct {
	OpenAt     ClockTime // inclusive
	CloseAt    ClockTime // exclusive
	ClosedDays []time.Weekday
}

// DefaultSchedule opens the blinds 07:30-20:00 except on Saturdays.
func DefaultSchedule() Schedule {
	return Schedule{
		OpenAt:     NewClockTime(7, 30),
		CloseAt:    NewClockTime(20, 0),
		ClosedDays: []time.Weekday{time.Saturday},
	}
}

// BlindsOpen reports whether the blinds should be open at t.
func (s Schedule) BlindsOpen(t time.Time) bool {
	for _, d := range s.ClosedDays {
		if t.Weekday() == d {
			return false
		}
	}
	now := Of(t)
	return now >= s.OpenAt && now < s.CloseAt
}

// ParseWeekday accepts full or three-letter English day names, any case.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// LightDecision returns the new light state. An empty office is always dark.
func LightDecision(occupied bool, lux float64, current bool) bool {
	return LightDecisionWithin(occupied, lux, LuxMin, LuxMax, current)
}

// LightDecisionWithin is LightDecision with explicit thresholds.
func LightDecisionWithin(occupied bool, lux, low, high float64, current bool) bool {
	if !occupied {
		return false
	}
	if lux < low {
		return true
	}
	if lux > high {
		return false
	}
	return current
}

// BuzzerDecision returns whether the buzzer sounds. The gas sensor output
// goes low once the concentration is over its threshold.
func BuzzerDecision(gasLow bool) bool {
	return gasLow
}

// BlindsDuty returns the servo duty cycle for the given blind position.
func BlindsDuty(open bool) float64 {
	if open {
		return BlindsOpenDuty
	}
	return BlindsClosedDuty
}
