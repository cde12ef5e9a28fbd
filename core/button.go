package core

import (
	"sync/atomic"
	"time"
)

// ButtonState is the debouncer position.
type ButtonState uint32

const (
	ButtonOff       ButtonState = iota // not initialised or disabled
	ButtonIdle                         // released, waiting for a press
	ButtonRejecting                    // press seen, waiting out the bounce
	ButtonTriggered                    // press confirmed, timing its length
	ButtonShort                        // short press detected, not consumed
	ButtonLong                         // long press detected, not consumed
)

func (s ButtonState) String() string {
	switch s {
	case ButtonOff:
		return "off"
	case ButtonIdle:
		return "idle"
	case ButtonRejecting:
		return "rejecting"
	case ButtonTriggered:
		return "triggered"
	case ButtonShort:
		return "short"
	case ButtonLong:
		return "long"
	}
	return "unknown"
}

// PushButton debounces a push button from its edge interrupt and one alarm
// channel, and tells short presses from long ones.
type PushButton struct {
	gpio      GPIODriver
	pin       GPIOPin
	activeLow bool

	alarm  *HwAlarm
	reject time.Duration
	long   time.Duration

	state   atomic.Uint32
	timeout *CallbackFunc
}

// NewPushButton returns a button on pin, pressed when the level is low
// (activeLow) or high. A press lasting reject is accepted; one lasting
// long is a long press.
func NewPushButton(gpio GPIODriver, pin GPIOPin, activeLow bool, alarm *HwAlarm, reject, long time.Duration) *PushButton {
	b := &PushButton{
		gpio:      gpio,
		pin:       pin,
		activeLow: activeLow,
		alarm:     alarm,
		reject:    reject,
		long:      long,
	}
	b.timeout = NewCallback(b.onTimeout)
	return b
}

// Init configures the pin, pulled towards its released level, and arms
// the debouncer.
func (b *PushButton) Init() error {
	configure := b.gpio.ConfigureInputPullDown
	if b.activeLow {
		configure = b.gpio.ConfigureInputPullUp
	}
	if err := configure(b.pin); err != nil {
		return err
	}
	b.state.Store(uint32(ButtonIdle))
	return nil
}

// Attach routes the pin change interrupt of src to HandleEdge.
func (b *PushButton) Attach(src EdgeSource) error {
	return src.OnEdge(b.pin, b.HandleEdge)
}

// Disable stops detection; edges are ignored until Init.
func (b *PushButton) Disable() {
	b.state.Store(uint32(ButtonOff))
	b.alarm.CancelAlarm(b.timeout)
}

func (b *PushButton) State() ButtonState {
	return ButtonState(b.state.Load())
}

// Pressed reads the pin.
func (b *PushButton) Pressed() bool {
	return b.gpio.ReadPin(b.pin) != b.activeLow
}

// HandleEdge is the pin change interrupt entry.
func (b *PushButton) HandleEdge() {
	switch b.State() {
	case ButtonIdle:
		if b.Pressed() && b.move(ButtonIdle, ButtonRejecting) {
			if !b.alarm.SetAlarm(b.reject, b.timeout, 1).OK() {
				b.move(ButtonRejecting, ButtonIdle)
			}
		}
	case ButtonTriggered:
		if !b.Pressed() && b.move(ButtonTriggered, ButtonShort) {
			b.alarm.CancelAlarm(b.timeout)
		}
	}
}

func (b *PushButton) onTimeout() {
	switch b.State() {
	case ButtonRejecting:
		if !b.Pressed() {
			b.move(ButtonRejecting, ButtonIdle)
			return
		}
		if b.move(ButtonRejecting, ButtonTriggered) {
			if !b.alarm.SetAlarm(b.long-b.reject, b.timeout, 1).OK() {
				b.move(ButtonTriggered, ButtonIdle)
			}
		}
	case ButtonTriggered:
		b.move(ButtonTriggered, ButtonLong)
	}
}

func (b *PushButton) move(from, to ButtonState) bool {
	if !b.state.CompareAndSwap(uint32(from), uint32(to)) {
		return false
	}
	RecordEvent(EvtButton, uint32(to), uint32(from))
	return true
}

// ShortPress consumes a detected short press.
func (b *PushButton) ShortPress() bool {
	return b.state.CompareAndSwap(uint32(ButtonShort), uint32(ButtonIdle))
}

// LongPress consumes a detected long press.
func (b *PushButton) LongPress() bool {
	return b.state.CompareAndSwap(uint32(ButtonLong), uint32(ButtonIdle))
}
