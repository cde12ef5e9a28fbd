package core

// StepperTimer is an advanced-control timer with a repetition counter. It
// paces the phase sequence: each period raises a channel 1 compare DMA
// request and every RCR+1 periods raise an update event.
type StepperTimer interface {
	// ClockHz is the prescaler input clock.
	ClockHz() uint32

	SetPrescaler(psc uint16)
	SetAutoReload(arr uint16)
	// SetRepetitionCounter writes the preload register, which the counter
	// picks up at the next update event.
	SetRepetitionCounter(rcr uint8)
	// GenerateUpdate forces an update (UG) so preloaded values take effect
	// now. The update flag is not raised.
	GenerateUpdate()
	// SetOnePulse selects whether the counter stops at the next update
	// event.
	SetOnePulse(single bool)

	UpdatePending() bool
	ClearUpdate()
	EnableUpdateIRQ(enable bool)

	// SetCompare may write a preload register, taking effect at the next
	// update event like the repetition counter.
	SetCompare(ccr uint16)
	EnableCompareDMA(enable bool)

	// Start sets the counter enable bit; Running reports it. One-pulse
	// mode clears it in hardware.
	Start()
	Running() bool
}

// PhaseDMA is a circular memory-to-peripheral stream writing 32-bit words
// into the phase port's set/reset register.
type PhaseDMA interface {
	Disable()
	Enabled() bool
	ClearFlags()
	// Load sets the source window; the transfer length is len(src).
	Load(src []uint32)
	Enable()
}

// PhasePort is the GPIO port the motor terminals and the driver enable
// line live on.
type PhasePort interface {
	// SetReset writes a BSRR word: bits 0..15 set pins, bits 16..31 reset
	// them.
	SetReset(mask uint32)
}

// IRQLine masks a single interrupt source at the interrupt controller.
type IRQLine interface {
	Enable()
	Disable()
	SetPriority(priority uint8)
}

// StepperHardware bundles the peripherals one BStepper drives.
type StepperHardware struct {
	Timer StepperTimer
	DMA   PhaseDMA
	Port  PhasePort
	IRQ   IRQLine // update event of Timer
}
