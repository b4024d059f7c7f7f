package sensor

import (
	"sync"
	"time"
)

// FakeLightSensor returns a settable lux value.
type FakeLightSensor struct {
	mu  sync.Mutex
	lux float64
	err error
}

// NewFakeLightSensor creates a FakeLightSensor reading lux.
func NewFakeLightSensor(lux float64) *FakeLightSensor {
	return &FakeLightSensor{lux: lux}
}

// Set changes the reading.
func (f *FakeLightSensor) Set(lux float64) {
	f.mu.Lock()
	f.lux = lux
	f.mu.Unlock()
}

// SetError makes Lux fail with err (nil clears it).
func (f *FakeLightSensor) SetError(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Lux returns the current reading.
func (f *FakeLightSensor) Lux() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lux, f.err
}

// FakeClock returns a settable time.
type FakeClock struct {
	mu  sync.Mutex
	t   time.Time
	err error
}

// NewFakeClock creates a FakeClock stopped at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{t: t}
}

// Set moves the clock to t.
func (f *FakeClock) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// SetError makes Now fail with err (nil clears it).
func (f *FakeClock) SetError(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Now returns the current fake time.
func (f *FakeClock) Now() (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return time.Time{}, f.err
	}
	return f.t, nil
}
