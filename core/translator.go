package core

// Direction of rotation.
type Direction uint8

const (
	CCW Direction = iota
	CW
)

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction { return d ^ 1 }

func (d Direction) String() string {
	if d == CW {
		return "cw"
	}
	return "ccw"
}

// StepType selects the drive resolution.
type StepType uint8

const (
	FullStep StepType = iota
	HalfStep
)

func (t StepType) String() string {
	if t == HalfStep {
		return "half"
	}
	return "full"
}

const (
	halfTableLen = 2*HalfSteps - 1
	fullTableLen = HalfSteps - 1
)

// Translator turns motion requests into windows of BSRR words that a
// circular DMA transfer writes to the phase port, one word per step.
//
// Each table holds the cycle plus a copy of its first entries, so the
// window for any starting position is a plain sub-slice.
type Translator struct {
	half  [2][halfTableLen]uint32
	full  [2][fullTableLen]uint32
	home  uint32
	state uint8
}

// SetPins rebuilds the tables for p.
func (t *Translator) SetPins(p Pinout) {
	for i := 0; i < halfTableLen; i++ {
		t.half[CCW][i] = halfStepCycle[i&(HalfSteps-1)].Mask(p)
		t.half[CW][i] = halfStepCycle[(HalfSteps-i)&(HalfSteps-1)].Mask(p)
	}
	for i := 0; i < fullTableLen; i++ {
		t.full[CCW][i] = t.half[CCW][2*i]
		t.full[CW][i] = t.half[CW][2*i]
	}
	t.home = t.half[CCW][0]
}

// SetHome parks the sequencer on position 0 and returns its mask. The
// caller drives the port to that mask before the first motion.
func (t *Translator) SetHome() uint32 {
	t.state = 0
	return t.home
}

// State is the cyclic position last reached, 0 to 7.
func (t *Translator) State() uint8 { return t.state }

// Mask returns the BSRR word of the current position.
func (t *Translator) Mask() uint32 { return t.half[CCW][t.state] }

// Advance moves the position by steps and returns the DMA window that
// leads there, starting with the position after the current one. A
// full-step request made from a half-step position first moves one half
// step in d. steps must be non-zero.
func (t *Translator) Advance(steps uint16, d Direction, st StepType) []uint32 {
	if st == FullStep && halfStepCycle[t.state].IsHalf() {
		t.state = nextState(t.state, d, 1)
	}
	stride := uint32(2)
	if st == HalfStep {
		stride = 1
	}
	first := nextState(t.state, d, stride)
	t.state = nextState(t.state, d, uint32(steps)*stride)
	return t.window(first, d, st)
}

// SequenceLen is the number of words in one circular DMA cycle.
func SequenceLen(st StepType) int {
	if st == HalfStep {
		return HalfSteps
	}
	return HalfSteps / 2
}

// TableLen is the stored table length for st.
func TableLen(st StepType) int {
	if st == HalfStep {
		return halfTableLen
	}
	return fullTableLen
}

func (t *Translator) window(first uint8, d Direction, st StepType) []uint32 {
	off := int(first)
	if d == CW {
		off = (HalfSteps - off) & (HalfSteps - 1)
	}
	if st == HalfStep {
		return t.half[d][off : off+HalfSteps]
	}
	off >>= 1
	return t.full[d][off : off+HalfSteps/2]
}

func nextState(s uint8, d Direction, k uint32) uint8 {
	if d == CW {
		return uint8((uint32(s) - k) & (HalfSteps - 1))
	}
	return uint8((uint32(s) + k) & (HalfSteps - 1))
}
