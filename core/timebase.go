package core

import (
	"errors"
	"time"
)

var (
	// ErrTimeBaseRange means no prescaler/reload pair reaches the period.
	ErrTimeBaseRange = errors.New("timebase out of range")
	// ErrResolution means the alarm resolution is not reachable by the
	// prescaler.
	ErrResolution = errors.New("alarm resolution out of range")
)

const (
	timerRegMax = 0xFFFF
	// MaxStepTicks is the longest period a 16-bit prescaler and a 16-bit
	// reload can express.
	MaxStepTicks = uint64(1) << 32
)

// TimeBase is a prescaler/reload pair, one step lasting
// (PSC+1)*(ARR+1) prescaler input clocks.
type TimeBase struct {
	PSC uint16
	ARR uint16
}

// Ticks returns the period in input clocks.
func (tb TimeBase) Ticks() uint64 {
	return (uint64(tb.PSC) + 1) * (uint64(tb.ARR) + 1)
}

// StepTicks converts a speed in thousandths of a revolution per minute into
// input clocks per step, rounding half up. stepsPerRev counts full steps.
func StepTicks(clockHz uint32, stepsPerRev uint16, milliRPM uint32, st StepType) (uint64, error) {
	return stepTicks(scaleClock(clockHz), stepsPerRev, milliRPM, st)
}

// scaleClock turns a timer clock into clocks per step at one step per
// thousandth of a revolution per minute.
func scaleClock(clockHz uint32) uint64 { return uint64(clockHz) * 60000 }

func stepTicks(clockScaled uint64, stepsPerRev uint16, milliRPM uint32, st StepType) (uint64, error) {
	den := (uint64(stepsPerRev) << st) * uint64(milliRPM)
	if den == 0 {
		return 0, ErrTimeBaseRange
	}
	return (clockScaled + den/2) / den, nil
}

// SolveTimeBase splits ticks into a prescaler/reload pair.
//
// The pair is the one a threshold search settles on: prescalers are tried
// in increasing order and the first whose reload fits 16 bits with a
// remainder under the threshold wins, the threshold growing by one on each
// pass over the prescaler range. That is the smallest prescaler among those
// with the smallest remainder, which is found here in a single pass.
func SolveTimeBase(ticks uint64) (TimeBase, error) {
	if ticks == 0 || ticks > MaxStepTicks {
		return TimeBase{}, ErrTimeBaseRange
	}

	// reload fits while ticks/(p+1) <= 2^16
	lo := ticks / (timerRegMax + 2)
	hi := uint64(timerRegMax)
	if ticks-1 < hi {
		hi = ticks - 1
	}

	best, bestRem := lo, ticks
	for p := lo; p <= hi; p++ {
		rem := ticks % (p + 1)
		if rem < bestRem {
			best, bestRem = p, rem
			if rem == 0 {
				break
			}
		}
	}
	return TimeBase{
		PSC: uint16(best),
		ARR: uint16(ticks/(best+1) - 1),
	}, nil
}

// SolvePrescaler returns the prescaler whose tick period is nearest to
// resolution for a counter clocked at clockHz.
func SolvePrescaler(clockHz uint32, resolution time.Duration) (uint16, error) {
	if resolution <= 0 {
		return 0, ErrResolution
	}
	div := (uint64(clockHz)*uint64(resolution) + uint64(time.Second)/2) / uint64(time.Second)
	if div == 0 || div > timerRegMax+1 {
		return 0, ErrResolution
	}
	return uint16(div - 1), nil
}
