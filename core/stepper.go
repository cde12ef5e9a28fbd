package core

import (
	"errors"
	"sync/atomic"
)

// Repetition counter geometry: an 8-bit RCR counts up to HWRange periods
// per update event.
const (
	RCRWidth = 8
	HWRange  = 1 << RCRWidth
)

var (
	ErrZeroSteps = errors.New("zero steps")
	ErrBusy      = errors.New("motion in progress")
)

// MotionState tracks one rotate run.
type MotionState uint32

const (
	Idle         MotionState = iota // counter stopped
	HardwareOnly                    // steps fit the RCR, timer stops itself
	Extended                        // software counts HWRange blocks
	Draining                        // last block loaded, timer stops itself
)

func (s MotionState) String() string {
	switch s {
	case Idle:
		return "idle"
	case HardwareOnly:
		return "hardware"
	case Extended:
		return "extended"
	case Draining:
		return "draining"
	}
	return "unknown"
}

// StepperPins places the motor on its port.
type StepperPins struct {
	Phases Pinout
	Enable uint32 // driver enable, active high
}

// BStepper drives a bipolar stepper from a timer and a DMA stream without
// CPU work per step. Runs longer than the repetition counter are split in
// HWRange blocks counted by HandleUpdate.
type BStepper struct {
	hw   StepperHardware
	pins StepperPins
	tr   Translator

	stepsPerRev uint16
	clockScaled uint64 // timer clock * 60000, milli-rpm to steps/s

	// shared with HandleUpdate
	state  atomic.Uint32
	swReps atomic.Uint32
	hwReps atomic.Uint32

	last TimeBase
}

// NewBStepper binds a stepper to its peripherals. Default resolution is
// 200 full steps per revolution.
func NewBStepper(hw StepperHardware) *BStepper {
	return &BStepper{hw: hw, stepsPerRev: 200}
}

// SetPins places the phases and the enable line and rebuilds the phase
// tables.
func (s *BStepper) SetPins(p StepperPins) {
	s.pins = p
	s.tr.SetPins(p.Phases)
}

// SetResolution sets the full steps per revolution.
func (s *BStepper) SetResolution(stepsPerRev uint16) {
	s.stepsPerRev = stepsPerRev
}

func (s *BStepper) Resolution() uint16 { return s.stepsPerRev }

// Init leaves the driver disabled with the phases on the home position and
// unmasks the update interrupt at priority.
func (s *BStepper) Init(priority uint8) {
	s.UpdateClock()
	s.Disable()
	s.hw.Port.SetReset(s.tr.SetHome())

	s.hw.Timer.EnableUpdateIRQ(false)
	s.hw.Timer.ClearUpdate()
	s.state.Store(uint32(Idle))

	s.hw.IRQ.SetPriority(priority)
	s.hw.IRQ.Enable()
}

// UpdateClock reloads the timer clock, e.g. after a clock tree change.
func (s *BStepper) UpdateClock() {
	s.clockScaled = scaleClock(s.hw.Timer.ClockHz())
}

// Enable powers the driver.
func (s *BStepper) Enable() { s.hw.Port.SetReset(s.pins.Enable) }

// Disable unpowers the driver.
func (s *BStepper) Disable() { s.hw.Port.SetReset(s.pins.Enable << 16) }

// Rotate starts a run of steps at milliRPM thousandths of a revolution per
// minute. On error nothing was touched and the call may be retried.
func (s *BStepper) Rotate(steps uint16, milliRPM uint32, d Direction, st StepType) error {
	if steps == 0 {
		return ErrZeroSteps
	}
	if s.State() != Idle {
		return ErrBusy
	}
	tb, err := s.timeBase(milliRPM, st)
	if err != nil {
		return err
	}

	tim, dma := s.hw.Timer, s.hw.DMA

	s.hw.IRQ.Disable()
	defer s.hw.IRQ.Enable()

	dma.Disable()
	tim.SetPrescaler(tb.PSC)
	tim.SetAutoReload(tb.ARR)
	// request the next word just before the reload; CCR may be preloaded,
	// so it must be written before the forced update
	tim.SetCompare(tb.ARR)

	if steps <= HWRange {
		s.swReps.Store(0)
		s.hwReps.Store(uint32(steps))
		tim.EnableUpdateIRQ(false)
		tim.SetRepetitionCounter(uint8(steps - 1))
		tim.GenerateUpdate()
		tim.SetOnePulse(true)
		s.state.Store(uint32(HardwareOnly))
	} else {
		sw := uint32(steps >> RCRWidth)
		hw := uint32(steps & (HWRange - 1))
		s.swReps.Store(sw)
		s.hwReps.Store(hw)

		tim.SetRepetitionCounter(HWRange - 1)
		tim.GenerateUpdate()
		// the block after this one is already the partial one
		if sw == 1 {
			tim.SetRepetitionCounter(uint8(hw - 1))
		}
		tim.SetOnePulse(false)
		tim.ClearUpdate()
		tim.EnableUpdateIRQ(true)
		s.state.Store(uint32(Extended))
	}

	for dma.Enabled() {
	}
	dma.ClearFlags()
	tim.EnableCompareDMA(false)
	dma.Load(s.tr.Advance(steps, d, st))
	dma.Enable()

	tim.EnableCompareDMA(true)
	tim.Start()

	s.last = tb
	RecordEvent(EvtRotate, uint32(steps), milliRPM)
	return nil
}

func (s *BStepper) timeBase(milliRPM uint32, st StepType) (TimeBase, error) {
	ticks, err := stepTicks(s.clockScaled, s.stepsPerRev, milliRPM, st)
	if err != nil {
		return TimeBase{}, err
	}
	return SolveTimeBase(ticks)
}

// HandleUpdate is the update event interrupt entry. It counts one finished
// HWRange block and prepares the hardware for the tail of the run.
func (s *BStepper) HandleUpdate() {
	tim := s.hw.Timer
	if !tim.UpdatePending() {
		return
	}
	tim.ClearUpdate()
	if MotionState(s.state.Load()) != Extended {
		return
	}

	sw := s.swReps.Add(^uint32(0))
	hw := s.hwReps.Load()
	switch {
	case sw == 1 && hw != 0:
		tim.SetRepetitionCounter(uint8(hw - 1))
	case sw <= 1:
		tim.SetOnePulse(true)
		tim.EnableUpdateIRQ(false)
		s.state.Store(uint32(Draining))
	}
	RecordEvent(EvtUpdate, sw, hw)
}

// State reports the run in progress, Idle once the counter has stopped.
func (s *BStepper) State() MotionState {
	st := MotionState(s.state.Load())
	if st != Idle && !s.hw.Timer.Running() {
		return Idle
	}
	return st
}

// Remaining returns the software blocks still to count and the residual
// hardware steps of the current run.
func (s *BStepper) Remaining() (sw, hw uint32) {
	return s.swReps.Load(), s.hwReps.Load()
}

// Phase is the electrical position the current or last run ends on.
func (s *BStepper) Phase() uint8 { return s.tr.State() }

// TimeBase returns the prescaler/reload pair of the last run.
func (s *BStepper) TimeBase() TimeBase { return s.last }
