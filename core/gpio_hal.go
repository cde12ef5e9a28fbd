package core

// GPIOPin identifies a hardware pin by its target-specific number.
type GPIOPin uint32

// GPIODriver is the pin access the station needs outside the stepper
// port, which is driven through PhasePort and DMA.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a push-pull output, low.
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInputPullUp configures a pin as an input with pull-up.
	ConfigureInputPullUp(pin GPIOPin) error

	// ConfigureInputPullDown configures a pin as an input with pull-down.
	ConfigureInputPullDown(pin GPIOPin) error

	// SetPin drives an output high (true) or low (false).
	SetPin(pin GPIOPin, value bool) error

	// ReadPin returns the input level.
	ReadPin(pin GPIOPin) bool
}

// EdgeSource delivers pin change interrupts.
type EdgeSource interface {
	// OnEdge runs fn from interrupt context on both edges of pin.
	OnEdge(pin GPIOPin, fn func()) error
}
