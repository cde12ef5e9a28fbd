package core

import (
	"errors"
	"math"

	"motionstation/protocol"
)

// Result codes carried by rotate_result and pattern_result.
const (
	ResultOK uint8 = iota
	ResultZeroSteps
	ResultBusy
	ResultTimeBase
	ResultPatternFull
	ResultSegment
	ResultAngleSyntax
	ResultADC
	ResultPatternEmpty
	ResultStorage
	ResultOther = 0xFF
)

var resultErrors = []error{
	ResultZeroSteps:    ErrZeroSteps,
	ResultBusy:         ErrBusy,
	ResultTimeBase:     ErrTimeBaseRange,
	ResultPatternFull:  ErrPatternFull,
	ResultSegment:      ErrSegment,
	ResultAngleSyntax:  ErrAngleSyntax,
	ResultADC:          ErrADCRead,
	ResultPatternEmpty: ErrPatternEmpty,
	ResultStorage:      ErrPatternStorage,
}

var (
	ErrADCRead = errors.New("potentiometer read failed")
	errRemote  = errors.New("device error")
)

// ResultCode maps err onto its wire code.
func ResultCode(err error) uint8 {
	if err == nil {
		return ResultOK
	}
	for code, e := range resultErrors {
		if e != nil && errors.Is(err, e) {
			return uint8(code)
		}
	}
	if errors.Is(err, ErrADCChannel) || errors.Is(err, ErrADCBipolar) {
		return ResultADC
	}
	return ResultOther
}

// ResultError maps a wire code back onto its error.
func ResultError(code uint8) error {
	if code == ResultOK {
		return nil
	}
	if int(code) < len(resultErrors) && resultErrors[code] != nil {
		return resultErrors[code]
	}
	return errRemote
}

// MillivoltReader is the speed potentiometer input.
type MillivoltReader interface {
	ReadMillivolts() (uint32, error)
}

// MotionCommands exposes the stepper and the pattern on the link.
type MotionCommands struct {
	Stepper  *BStepper
	Pattern  *MotionPattern
	Player   *Player
	Pot      MillivoltReader
	Segments SegmentConfig
}

// Register adds the motion commands and their responses to reg.
func (m *MotionCommands) Register(reg *CommandRegistry) {
	reg.Register("get_status", "", func(data *[]byte) error {
		m.sendStatus(reg)
		return nil
	})
	reg.Register("stepper_enable", "on=%c", m.handleEnable)
	reg.Register("rotate", "steps=%hu milli_rpm=%u dir=%c half=%c", func(data *[]byte) error {
		return m.handleRotate(reg, data)
	})
	reg.Register("pattern_add", "milli_rpm=%u steps=%hu dir=%c", func(data *[]byte) error {
		return m.handlePatternAdd(reg, data)
	})
	reg.Register("pattern_clear", "", func(data *[]byte) error {
		m.sendPatternResult(reg, m.Pattern.Clear())
		return nil
	})
	reg.Register("pattern_get", "index=%c", func(data *[]byte) error {
		return m.handlePatternGet(reg, data)
	})
	reg.Register("pattern_play", "on=%c", func(data *[]byte) error {
		return m.handlePlay(reg, data)
	})
	reg.Register("segment_input", "angle=%*s", func(data *[]byte) error {
		return m.handleSegmentInput(reg, data)
	})

	reg.Register("status", "state=%c sw=%u hw=%c phase=%c playing=%c segments=%c", nil)
	reg.Register("rotate_result", "error=%c", nil)
	reg.Register("pattern_result", "count=%c error=%c", nil)
	reg.Register("pattern_segment", "index=%c milli_rpm=%u steps=%hu dir=%c", nil)
}

func (m *MotionCommands) sendStatus(reg *CommandRegistry) {
	sw, hw := m.Stepper.Remaining()
	reg.SendResponse("status", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(m.Stepper.State()))
		protocol.EncodeVLQUint(output, sw)
		protocol.EncodeVLQUint(output, hw)
		protocol.EncodeVLQUint(output, uint32(m.Stepper.Phase()))
		protocol.EncodeVLQBool(output, m.Player.Playing())
		protocol.EncodeVLQUint(output, uint32(m.Pattern.Len()))
	})
}

func (m *MotionCommands) handleEnable(data *[]byte) error {
	on, err := protocol.DecodeVLQBool(data)
	if err != nil {
		return err
	}
	if on {
		m.Stepper.Enable()
	} else {
		m.Stepper.Disable()
	}
	return nil
}

func (m *MotionCommands) handleRotate(reg *CommandRegistry, data *[]byte) error {
	steps, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	milliRPM, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	dir, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	half, err := protocol.DecodeVLQBool(data)
	if err != nil {
		return err
	}

	st := FullStep
	if half {
		st = HalfStep
	}
	if m.Player.Playing() {
		err = ErrBusy
	} else {
		err = m.Stepper.Rotate(uint16(steps), milliRPM, Direction(dir&1), st)
	}
	if err != nil {
		RecordEvent(EvtRotateFail, steps, milliRPM)
	}

	code := ResultCode(err)
	reg.SendResponse("rotate_result", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(code))
	})
	return nil
}

func (m *MotionCommands) handlePatternAdd(reg *CommandRegistry, data *[]byte) error {
	milliRPM, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	steps, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	dir, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	if steps > math.MaxUint16 || dir > uint32(CW) {
		m.sendPatternResult(reg, ErrSegment)
		return nil
	}
	seg := MotionSegment{MilliRPM: milliRPM, Steps: uint16(steps), Dir: Direction(dir)}
	m.sendPatternResult(reg, m.Pattern.Append(seg))
	return nil
}

func (m *MotionCommands) handlePatternGet(reg *CommandRegistry, data *[]byte) error {
	idx, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	seg, ok := m.Pattern.At(int(idx))
	if !ok {
		m.sendPatternResult(reg, ErrSegment)
		return nil
	}
	reg.SendResponse("pattern_segment", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, idx)
		protocol.EncodeVLQUint(output, seg.MilliRPM)
		protocol.EncodeVLQUint(output, uint32(seg.Steps))
		protocol.EncodeVLQUint(output, uint32(seg.Dir))
	})
	return nil
}

func (m *MotionCommands) handlePlay(reg *CommandRegistry, data *[]byte) error {
	on, err := protocol.DecodeVLQBool(data)
	if err != nil {
		return err
	}
	if on {
		err = m.Player.Start()
	} else {
		m.Player.Stop()
	}
	m.sendPatternResult(reg, err)
	return nil
}

func (m *MotionCommands) handleSegmentInput(reg *CommandRegistry, data *[]byte) error {
	line, err := protocol.DecodeVLQString(data)
	if err != nil {
		return err
	}
	m.sendPatternResult(reg, m.AddAngle(line))
	return nil
}

// AddAngle appends the segment for an operator angle line, its speed read
// from the potentiometer.
func (m *MotionCommands) AddAngle(line string) error {
	angle, err := ParseAngle(line)
	if err != nil {
		return err
	}
	if m.Pattern.Len() == m.Pattern.Max() {
		return ErrPatternFull
	}
	mv, err := m.Pot.ReadMillivolts()
	if err != nil {
		return errors.Join(ErrADCRead, err)
	}
	seg, err := NewSegment(angle, mv, m.Segments)
	if err != nil {
		return err
	}
	if err := m.Pattern.Append(seg); err != nil {
		return err
	}
	DebugPrintln("[PATTERN] " + itoa(m.Pattern.Len()-1) + ": " + utoa(seg.MilliRPM) +
		" mrpm " + itoa(int(seg.AngleX10(m.Segments.StepsPerRev))) + " x0.1 deg")
	return nil
}

func (m *MotionCommands) sendPatternResult(reg *CommandRegistry, err error) {
	n := m.Pattern.Len()
	code := ResultCode(err)
	reg.SendResponse("pattern_result", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(n))
		protocol.EncodeVLQUint(output, uint32(code))
	})
}
