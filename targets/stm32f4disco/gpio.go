//go:build stm32f4disco

package main

import (
	"machine"
	"runtime/interrupt"

	"motionstation/core"
)

// irqLine adapts a TinyGo interrupt to core.IRQLine.
type irqLine struct {
	irq interrupt.Interrupt
}

func (l irqLine) Enable()                    { l.irq.Enable() }
func (l irqLine) Disable()                   { l.irq.Disable() }
func (l irqLine) SetPriority(priority uint8) { l.irq.SetPriority(priority) }

// pinDriver implements core.GPIODriver and core.EdgeSource on machine.Pin.
type pinDriver struct{}

func (pinDriver) ConfigureOutput(pin core.GPIOPin) error {
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	return nil
}

func (pinDriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return nil
}

func (pinDriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	return nil
}

func (pinDriver) SetPin(pin core.GPIOPin, value bool) error {
	machine.Pin(pin).Set(value)
	return nil
}

func (pinDriver) ReadPin(pin core.GPIOPin) bool {
	return machine.Pin(pin).Get()
}

func (pinDriver) OnEdge(pin core.GPIOPin, fn func()) error {
	return machine.Pin(pin).SetInterrupt(machine.PinToggle, func(machine.Pin) { fn() })
}
