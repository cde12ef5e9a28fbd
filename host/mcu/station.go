package mcu

import (
	"fmt"
	"strconv"

	"motionstation/core"
	"motionstation/protocol"
)

// Status is the decoded status response.
type Status struct {
	State        core.MotionState
	SoftwareReps uint32
	HardwareReps uint32
	Phase        uint8
	Playing      bool
	Segments     int
}

func (s Status) String() string {
	return fmt.Sprintf("state=%v sw=%d hw=%d phase=%d playing=%v segments=%d",
		s.State, s.SoftwareReps, s.HardwareReps, s.Phase, s.Playing, s.Segments)
}

// DefaultStepsPerRev applies when the dictionary lacks STEPS_PER_REV.
const DefaultStepsPerRev = 200

// StepsPerRev returns the motor resolution the station reports.
func (m *MCU) StepsPerRev() uint16 {
	if m.dictionary != nil {
		if v, err := strconv.ParseUint(m.dictionary.Config["STEPS_PER_REV"], 10, 16); err == nil && v > 0 {
			return uint16(v)
		}
	}
	return DefaultStepsPerRev
}

// decodeUints reads n VLQ values.
func decodeUints(data []byte, n int) ([]uint32, error) {
	out := make([]uint32, n)
	for i := range out {
		v, err := protocol.DecodeVLQUint(&data)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Status reads the motor and pattern state.
func (m *MCU) Status() (Status, error) {
	data, err := m.Query("get_status", nil, "status")
	if err != nil {
		return Status{}, err
	}
	v, err := decodeUints(data, 6)
	if err != nil {
		return Status{}, fmt.Errorf("status: %w", err)
	}
	return Status{
		State:        core.MotionState(v[0]),
		SoftwareReps: v[1],
		HardwareReps: v[2],
		Phase:        uint8(v[3]),
		Playing:      v[4] != 0,
		Segments:     int(v[5]),
	}, nil
}

// Enable powers the motor driver on or off.
func (m *MCU) Enable(on bool) error {
	return m.SendCommand("stepper_enable", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQBool(output, on)
	})
}

// Rotate starts a rotation on the station.
func (m *MCU) Rotate(steps uint16, milliRPM uint32, dir core.Direction, st core.StepType) error {
	data, err := m.Query("rotate", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(steps))
		protocol.EncodeVLQUint(output, milliRPM)
		protocol.EncodeVLQUint(output, uint32(dir))
		protocol.EncodeVLQBool(output, st == core.HalfStep)
	}, "rotate_result")
	if err != nil {
		return err
	}
	v, err := decodeUints(data, 1)
	if err != nil {
		return fmt.Errorf("rotate_result: %w", err)
	}
	return core.ResultError(uint8(v[0]))
}

// patternQuery runs a pattern command, returning the segment count.
func (m *MCU) patternQuery(name string, args func(output protocol.OutputBuffer)) (int, error) {
	data, err := m.Query(name, args, "pattern_result")
	if err != nil {
		return 0, err
	}
	v, err := decodeUints(data, 2)
	if err != nil {
		return 0, fmt.Errorf("pattern_result: %w", err)
	}
	return int(v[0]), core.ResultError(uint8(v[1]))
}

// PatternAdd appends seg, returning the new segment count.
func (m *MCU) PatternAdd(seg core.MotionSegment) (int, error) {
	return m.patternQuery("pattern_add", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, seg.MilliRPM)
		protocol.EncodeVLQUint(output, uint32(seg.Steps))
		protocol.EncodeVLQUint(output, uint32(seg.Dir))
	})
}

// PatternClear drops every segment.
func (m *MCU) PatternClear() error {
	_, err := m.patternQuery("pattern_clear", nil)
	return err
}

// SegmentInput records an angle line at the potentiometer speed, as typed
// on the station keyboard.
func (m *MCU) SegmentInput(line string) (int, error) {
	return m.patternQuery("segment_input", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQString(output, line)
	})
}

// Play starts or stops playback.
func (m *MCU) Play(on bool) error {
	_, err := m.patternQuery("pattern_play", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQBool(output, on)
	})
	return err
}

// Pattern reads back every stored segment.
func (m *MCU) Pattern() ([]core.MotionSegment, error) {
	st, err := m.Status()
	if err != nil {
		return nil, err
	}
	segs := make([]core.MotionSegment, 0, st.Segments)
	for i := 0; i < st.Segments; i++ {
		seg, err := m.PatternGet(i)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// PatternGet reads one stored segment.
func (m *MCU) PatternGet(index int) (core.MotionSegment, error) {
	if err := m.SendCommand("pattern_get", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(index))
	}); err != nil {
		return core.MotionSegment{}, err
	}

	// either the segment or a pattern_result carrying the error
	segID, resultID := m.responses["pattern_segment"], m.responses["pattern_result"]
	for {
		data, id, err := m.waitForAny(segID, resultID)
		if err != nil {
			return core.MotionSegment{}, fmt.Errorf("pattern_get: %w", err)
		}
		if id == resultID {
			v, err := decodeUints(data, 2)
			if err != nil {
				return core.MotionSegment{}, fmt.Errorf("pattern_result: %w", err)
			}
			return core.MotionSegment{}, core.ResultError(uint8(v[1]))
		}
		v, err := decodeUints(data, 4)
		if err != nil {
			return core.MotionSegment{}, fmt.Errorf("pattern_segment: %w", err)
		}
		if int(v[0]) != index {
			continue
		}
		return core.MotionSegment{MilliRPM: v[1], Steps: uint16(v[2]), Dir: core.Direction(v[3])}, nil
	}
}

// Clock reads the station's event clock.
func (m *MCU) Clock() (uint32, error) {
	data, err := m.Query("get_clock", nil, "clock")
	if err != nil {
		return 0, err
	}
	v, err := decodeUints(data, 1)
	if err != nil {
		return 0, fmt.Errorf("clock: %w", err)
	}
	return v[0], nil
}

// SetDebug gates the station's log output.
func (m *MCU) SetDebug(on bool) error {
	return m.SendCommand("set_debug", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQBool(output, on)
	})
}

// DumpEvents asks the station to log its event ring.
func (m *MCU) DumpEvents() error {
	return m.SendCommand("dump_events", nil)
}
