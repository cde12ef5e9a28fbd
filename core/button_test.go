package core

import (
	"testing"
	"time"
)

const buttonPin = GPIOPin(13)

// newButtonRig returns an active-low button on a 1 ms alarm, rejecting
// 20 ms and detecting long presses at 800 ms.
func newButtonRig(t *testing.T) (*PushButton, *MockGPIODriver, *simCompareTimer) {
	t.Helper()
	alarm, tim := newAlarmRigAt(t, time.Millisecond)
	gpio := NewMockGPIODriver()
	b := NewPushButton(gpio, buttonPin, true, alarm, 20*time.Millisecond, 800*time.Millisecond)
	if err := b.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return b, gpio, tim
}

func press(b *PushButton, gpio *MockGPIODriver) {
	gpio.Drive(buttonPin, false)
	b.HandleEdge()
}

func release(b *PushButton, gpio *MockGPIODriver) {
	gpio.Drive(buttonPin, true)
	b.HandleEdge()
}

func TestButtonInit(t *testing.T) {
	b, gpio, _ := newButtonRig(t)
	if !gpio.inputs[buttonPin] {
		t.Error("Expected pin configured as pulled-up input")
	}
	if b.State() != ButtonIdle {
		t.Errorf("Expected idle, got %v", b.State())
	}
	if !gpio.ReadPin(buttonPin) {
		t.Error("Expected an active-low button to rest high")
	}
	if b.Pressed() {
		t.Error("Expected released at the pull-up level")
	}
}

func TestButtonActiveHighInit(t *testing.T) {
	alarm, _ := newAlarmRigAt(t, time.Millisecond)
	gpio := NewMockGPIODriver()
	gpio.Drive(buttonPin, true)
	b := NewPushButton(gpio, buttonPin, false, alarm, 20*time.Millisecond, 800*time.Millisecond)
	if err := b.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if gpio.ReadPin(buttonPin) || b.Pressed() {
		t.Error("Expected an active-high button pulled down and released")
	}
}

func TestButtonShortPress(t *testing.T) {
	b, gpio, tim := newButtonRig(t)

	press(b, gpio)
	if b.State() != ButtonRejecting {
		t.Fatalf("Expected rejecting, got %v", b.State())
	}
	tim.Advance(20)
	if b.State() != ButtonTriggered {
		t.Fatalf("Expected triggered, got %v", b.State())
	}
	tim.Advance(100)
	release(b, gpio)
	if b.State() != ButtonShort {
		t.Fatalf("Expected short, got %v", b.State())
	}

	tim.Advance(2000)
	if b.LongPress() {
		t.Error("Expected no long press after release")
	}
	if !b.ShortPress() {
		t.Error("Expected short press")
	}
	if b.ShortPress() {
		t.Error("Expected short press consumed")
	}
	if b.State() != ButtonIdle {
		t.Errorf("Expected idle, got %v", b.State())
	}
}

func TestButtonLongPress(t *testing.T) {
	b, gpio, tim := newButtonRig(t)

	press(b, gpio)
	tim.Advance(799)
	if b.State() != ButtonTriggered {
		t.Fatalf("Expected triggered before 800 ms, got %v", b.State())
	}
	tim.Advance(1)
	if b.State() != ButtonLong {
		t.Fatalf("Expected long at 800 ms, got %v", b.State())
	}
	if b.ShortPress() {
		t.Error("Expected no short press")
	}
	if !b.LongPress() {
		t.Error("Expected long press")
	}

	// the release after a long press is not a new press
	release(b, gpio)
	tim.Advance(100)
	if b.State() != ButtonIdle {
		t.Errorf("Expected idle, got %v", b.State())
	}
}

func TestButtonBounceRejected(t *testing.T) {
	b, gpio, tim := newButtonRig(t)

	press(b, gpio)
	tim.Advance(5)
	release(b, gpio)
	// edges while rejecting are ignored
	press(b, gpio)
	release(b, gpio)
	tim.Advance(15)

	if b.State() != ButtonIdle {
		t.Errorf("Expected idle after bounce, got %v", b.State())
	}
	if b.ShortPress() || b.LongPress() {
		t.Error("Expected no press detected")
	}

	// a release edge while idle does nothing
	release(b, gpio)
	if b.State() != ButtonIdle {
		t.Errorf("Expected idle, got %v", b.State())
	}
}

func TestButtonDisable(t *testing.T) {
	b, gpio, tim := newButtonRig(t)

	press(b, gpio)
	b.Disable()
	tim.Advance(1000)
	if b.State() != ButtonOff {
		t.Errorf("Expected off, got %v", b.State())
	}
	press(b, gpio)
	if b.State() != ButtonOff {
		t.Errorf("Expected edges ignored while off, got %v", b.State())
	}
}

// edgeRecorder keeps the handler the button attaches.
type edgeRecorder struct {
	pin GPIOPin
	fn  func()
}

func (e *edgeRecorder) OnEdge(pin GPIOPin, fn func()) error {
	e.pin, e.fn = pin, fn
	return nil
}

func TestButtonAttach(t *testing.T) {
	b, gpio, tim := newButtonRig(t)
	src := &edgeRecorder{}
	if err := b.Attach(src); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if src.pin != buttonPin || src.fn == nil {
		t.Fatalf("Expected handler on pin %d, got pin %d", buttonPin, src.pin)
	}

	gpio.Drive(buttonPin, false)
	src.fn()
	tim.Advance(20)
	gpio.Drive(buttonPin, true)
	src.fn()
	if !b.ShortPress() {
		t.Error("Expected a short press through the attached edge handler")
	}
}
