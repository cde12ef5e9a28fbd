package core

import "errors"

var (
	ErrAngleSyntax = errors.New("angle must match [+-]ddd[.d]")
	ErrSegment     = errors.New("invalid motion segment")
)

// MotionSegment is one rotate of a pattern.
type MotionSegment struct {
	MilliRPM uint32
	Steps    uint16
	Dir      Direction
}

// Valid reports whether the segment can be rotated.
func (m MotionSegment) Valid() bool {
	return m.Steps != 0 && m.MilliRPM != 0 && m.Dir <= CW
}

// SegmentConfig maps operator input onto a segment.
type SegmentConfig struct {
	StepsPerRev uint16
	MinMilliRPM uint32
	MaxMilliRPM uint32
	FullScaleMV uint32
}

// ParseAngle reads a signed angle in degrees with at most one decimal,
// e.g. "-12.5", returning tenths of a degree. A trailing newline or
// carriage return is ignored.
func ParseAngle(line string) (int32, error) {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}

	neg := false
	if len(line) > 0 && (line[0] == '+' || line[0] == '-') {
		neg = line[0] == '-'
		line = line[1:]
	}

	var v int32
	digits := 0
	for len(line) > 0 && isDigit(line[0]) {
		v = v*10 + int32(line[0]-'0')
		line = line[1:]
		digits++
	}
	if digits == 0 || digits > 3 {
		return 0, ErrAngleSyntax
	}
	v *= 10

	if len(line) > 0 {
		if len(line) != 2 || line[0] != '.' || !isDigit(line[1]) {
			return 0, ErrAngleSyntax
		}
		v += int32(line[1] - '0')
	}
	if neg {
		v = -v
	}
	return v, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// NewSegment builds the segment for an angle in tenths of a degree at the
// speed set by a potentiometer read as potMV. Negative angles turn CW.
func NewSegment(angleX10 int32, potMV uint32, cfg SegmentConfig) (MotionSegment, error) {
	dir := CCW
	a := int64(angleX10)
	if a < 0 {
		dir, a = CW, -a
	}
	steps := iround(a*int64(cfg.StepsPerRev), 3600)
	if steps == 0 {
		return MotionSegment{}, ErrZeroSteps
	}
	if steps > 0xFFFF || cfg.FullScaleMV == 0 || cfg.MaxMilliRPM < cfg.MinMilliRPM {
		return MotionSegment{}, ErrSegment
	}

	potMV = min(potMV, cfg.FullScaleMV)
	span := int64(cfg.MaxMilliRPM - cfg.MinMilliRPM)
	rpm := int64(cfg.MinMilliRPM) + iround(int64(potMV)*span, int64(cfg.FullScaleMV))
	return MotionSegment{MilliRPM: uint32(rpm), Steps: uint16(steps), Dir: dir}, nil
}

// AngleX10 is the angle the segment actually turns, after step rounding,
// signed by direction.
func (m MotionSegment) AngleX10(stepsPerRev uint16) int32 {
	if stepsPerRev == 0 {
		return 0
	}
	a := int32(iround(int64(m.Steps)*3600, int64(stepsPerRev)))
	if m.Dir == CW {
		return -a
	}
	return a
}

// iround divides rounding half away from zero.
func iround(x, y int64) int64 {
	q, r := x/y, x%y
	if r < 0 {
		r = -r
	}
	if ay := max(y, -y); 2*r >= ay {
		if (x < 0) == (y < 0) {
			return q + 1
		}
		return q - 1
	}
	return q
}
