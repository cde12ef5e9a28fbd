package core

import "errors"

var ErrPatternEmpty = errors.New("pattern empty")

// Rotator is the motor the player drives; BStepper implements it.
type Rotator interface {
	Rotate(steps uint16, milliRPM uint32, d Direction, st StepType) error
	State() MotionState
	Enable()
	Disable()
}

// Player runs a pattern cyclically from the main loop. A segment starts
// only once the motor is idle.
type Player struct {
	motor   Rotator
	pattern *MotionPattern
	st      StepType

	playing bool
	next    int
	started uint32
}

func NewPlayer(motor Rotator, pattern *MotionPattern, st StepType) *Player {
	return &Player{motor: motor, pattern: pattern, st: st}
}

// Start powers the motor and plays from the first segment.
func (p *Player) Start() error {
	if p.pattern.Empty() {
		return ErrPatternEmpty
	}
	p.motor.Enable()
	p.playing = true
	p.next = 0
	DebugPrintln("[PLAYER] start, " + itoa(p.pattern.Len()) + " segments")
	return nil
}

// Stop unpowers the motor. A run in progress finishes unpowered.
func (p *Player) Stop() {
	if !p.playing {
		return
	}
	p.playing = false
	p.motor.Disable()
	DebugPrintln("[PLAYER] stop after " + utoa(p.started) + " segments")
}

func (p *Player) Playing() bool { return p.playing }

// Next is the index of the segment to start.
func (p *Player) Next() int { return p.next }

// Started counts segments started since boot.
func (p *Player) Started() uint32 { return p.started }

// Poll starts the next segment when the motor is free. A segment the motor
// rejects for anything but being busy is skipped.
func (p *Player) Poll() {
	if !p.playing {
		return
	}
	n := p.pattern.Len()
	if n == 0 {
		p.Stop()
		return
	}
	if p.motor.State() != Idle {
		return
	}
	if p.next >= n {
		p.next = 0
	}

	seg, _ := p.pattern.At(p.next)
	err := p.motor.Rotate(seg.Steps, seg.MilliRPM, seg.Dir, p.st)
	switch {
	case err == nil:
		p.started++
	case errors.Is(err, ErrBusy):
		return
	default:
		RecordEvent(EvtRotateFail, uint32(seg.Steps), seg.MilliRPM)
		DebugPrintln("[PLAYER] segment " + itoa(p.next) + ": " + err.Error())
	}
	p.next = (p.next + 1) % n
}
