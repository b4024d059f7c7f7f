package gpio

import (
	"errors"
	"fmt"
	"sync"
)

// FakeBus is a test double with scripted inputs and recorded outputs.
type FakeBus struct {
	mu sync.Mutex

	// Inputs holds the current level of each input pin.
	Inputs map[int]bool

	// Outputs holds the last level written to each output pin.
	Outputs map[int]bool

	// Writes records every Output call in order.
	Writes []Write

	// Reads counts Input calls per pin.
	Reads map[int]int

	// InputError, if set, will be returned by Input.
	InputError error

	// OutputError, if set, will be returned by Output.
	OutputError error

	// Closed tracks if Close was called
	Closed bool
}

// Write is a single recorded Output call.
type Write struct {
	Pin  int
	High bool
}

// NewFakeBus creates a FakeBus with all inputs low.
func NewFakeBus() *FakeBus {
	return &FakeBus{
		Inputs:  make(map[int]bool),
		Outputs: make(map[int]bool),
		Reads:   make(map[int]int),
	}
}

// Set sets the level an input pin will read.
func (f *FakeBus) Set(pin int, high bool) {
	f.mu.Lock()
	f.Inputs[pin] = high
	f.mu.Unlock()
}

// Input returns the scripted level of pin.
func (f *FakeBus) Input(pin int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InputError != nil {
		return false, f.InputError
	}
	if f.Closed {
		return false, errors.New("bus closed")
	}
	f.Reads[pin]++
	return f.Inputs[pin], nil
}

// Output records the write.
func (f *FakeBus) Output(pin int, high bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OutputError != nil {
		return f.OutputError
	}
	if f.Closed {
		return fmt.Errorf("bus closed")
	}
	f.Outputs[pin] = high
	f.Writes = append(f.Writes, Write{Pin: pin, High: high})
	return nil
}

// Level returns the last level written to pin.
func (f *FakeBus) Level(pin int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Outputs[pin]
}

// ReadCount returns how many times pin was read.
func (f *FakeBus) ReadCount(pin int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Reads[pin]
}

// Close marks the bus as closed.
func (f *FakeBus) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// FakeServo records duty cycle changes.
type FakeServo struct {
	mu sync.Mutex

	// Duties contains every duty cycle set, in order.
	Duties []float64

	// Error, if set, will be returned by SetDutyCycle.
	Error error

	Closed bool
}

// NewFakeServo creates a FakeServo.
func NewFakeServo() *FakeServo {
	return &FakeServo{}
}

// SetDutyCycle records the duty cycle.
func (s *FakeServo) SetDutyCycle(percent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Error != nil {
		return s.Error
	}
	s.Duties = append(s.Duties, percent)
	return nil
}

// Moves returns the recorded duty cycles.
func (s *FakeServo) Moves() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.Duties...)
}

// Close marks the servo as closed.
func (s *FakeServo) Close() error {
	s.mu.Lock()
	s.Closed = true
	s.mu.Unlock()
	return nil
}
