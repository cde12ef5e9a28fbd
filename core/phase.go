package core

// PhaseCurrent is the drive state of one H-bridge terminal pair. The high
// byte is the BSRR shift applied to the positive pin mask and the low byte
// the shift for the negative pin mask: 0 lands in the set half of the
// register, 16 in the reset half.
type PhaseCurrent uint16

const (
	PhaseIn  PhaseCurrent = 0x0010 // pos high, neg low
	PhaseOff PhaseCurrent = 0x1010 // both low
	PhaseOut PhaseCurrent = 0x1000 // pos low, neg high
)

// PhasePins holds the port bit masks of a terminal pair.
type PhasePins struct {
	Pos uint32
	Neg uint32
}

// Mask returns the BSRR word driving pins to c.
func (c PhaseCurrent) Mask(pins PhasePins) uint32 {
	return pins.Pos<<(c>>8) | pins.Neg<<(c&0xFF)
}

// Pinout maps both motor phases onto one GPIO port.
type Pinout struct {
	A PhasePins
	B PhasePins
}

// All returns every pin bit used by the pinout.
func (p Pinout) All() uint32 {
	return p.A.Pos | p.A.Neg | p.B.Pos | p.B.Neg
}

// PhaseStep is one position of the electrical cycle.
type PhaseStep struct {
	A, B PhaseCurrent
}

// IsHalf reports whether only one phase is energized.
func (s PhaseStep) IsHalf() bool {
	return s.A == PhaseOff || s.B == PhaseOff
}

// Mask returns the BSRR word for the position.
func (s PhaseStep) Mask(p Pinout) uint32 {
	return s.A.Mask(p.A) | s.B.Mask(p.B)
}

// HalfSteps is the length of the electrical cycle at half-step resolution.
const HalfSteps = 8

// halfStepCycle is walked forward for counter-clockwise rotation. Even
// positions energize both phases.
var halfStepCycle = [HalfSteps]PhaseStep{
	{PhaseIn, PhaseIn},
	{PhaseIn, PhaseOff},
	{PhaseIn, PhaseOut},
	{PhaseOff, PhaseOut},
	{PhaseOut, PhaseOut},
	{PhaseOut, PhaseOff},
	{PhaseOut, PhaseIn},
	{PhaseOff, PhaseIn},
}
