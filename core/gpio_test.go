package core

import "fmt"

// MockGPIODriver is a test implementation of GPIODriver
type MockGPIODriver struct {
	pins    map[GPIOPin]bool
	inputs  map[GPIOPin]bool
	outputs map[GPIOPin]bool

	// edges records every level written, per pin
	edges map[GPIOPin][]bool
}

func NewMockGPIODriver() *MockGPIODriver {
	return &MockGPIODriver{
		pins:    make(map[GPIOPin]bool),
		inputs:  make(map[GPIOPin]bool),
		outputs: make(map[GPIOPin]bool),
		edges:   make(map[GPIOPin][]bool),
	}
}

func (m *MockGPIODriver) ConfigureOutput(pin GPIOPin) error {
	m.outputs[pin] = true
	m.pins[pin] = false
	return nil
}

func (m *MockGPIODriver) ConfigureInputPullUp(pin GPIOPin) error {
	m.inputs[pin] = true
	m.pins[pin] = true
	return nil
}

func (m *MockGPIODriver) ConfigureInputPullDown(pin GPIOPin) error {
	m.inputs[pin] = true
	m.pins[pin] = false
	return nil
}

func (m *MockGPIODriver) SetPin(pin GPIOPin, value bool) error {
	if !m.outputs[pin] {
		return fmt.Errorf("pin %d is not an output", pin)
	}
	m.pins[pin] = value
	m.edges[pin] = append(m.edges[pin], value)
	return nil
}

func (m *MockGPIODriver) ReadPin(pin GPIOPin) bool {
	return m.pins[pin]
}

// Drive sets an input level as the outside world would.
func (m *MockGPIODriver) Drive(pin GPIOPin, level bool) {
	m.pins[pin] = level
}
