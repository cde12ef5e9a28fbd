package core

import (
	"testing"
	"time"
)

// thresholdSearch is the literal wrap-and-relax search. It gives up after
// limit candidates so slow cases can be skipped.
func thresholdSearch(ticks uint64, limit uint64) (TimeBase, bool) {
	for c := uint64(0); c < limit; c++ {
		psc := c & 0xFFFF
		th := c >> 16
		rem := ticks % (psc + 1)
		arr := ticks/(psc+1) - 1 // wraps when ticks < psc+1
		if rem <= th && arr <= 0xFFFF {
			return TimeBase{PSC: uint16(psc), ARR: uint16(arr)}, true
		}
	}
	return TimeBase{}, false
}

func TestSolveTimeBaseMatchesThresholdSearch(t *testing.T) {
	samples := []uint64{
		1, 2, 3, 255, 256, 65535, 65536, 65537, 65538, 131071, 131072,
		1000003, 4200000, 16800000, 25200000, 84000000, 99999989,
		1 << 31, 1<<32 - 1, 1 << 32,
	}
	checked := 0
	for _, ticks := range samples {
		want, ok := thresholdSearch(ticks, 64<<16)
		if !ok {
			continue
		}
		checked++
		got, err := SolveTimeBase(ticks)
		if err != nil {
			t.Errorf("ticks=%d: unexpected error %v", ticks, err)
			continue
		}
		if got != want {
			t.Errorf("ticks=%d: expected %+v, got %+v", ticks, want, got)
		}
	}
	if checked < len(samples)/2 {
		t.Errorf("Only %d of %d samples were cross-checked", checked, len(samples))
	}
}

func TestSolveTimeBaseBounds(t *testing.T) {
	for ticks := uint64(1); ticks <= MaxStepTicks; ticks = ticks*3 + 7 {
		tb, err := SolveTimeBase(ticks)
		if err != nil {
			t.Fatalf("ticks=%d: unexpected error %v", ticks, err)
		}
		period := tb.Ticks()
		if period > ticks {
			t.Errorf("ticks=%d: period %d overshoots", ticks, period)
		}
		// the truncation error is the remainder, below one prescaler tick
		if ticks-period > uint64(tb.PSC) {
			t.Errorf("ticks=%d: error %d exceeds psc %d", ticks, ticks-period, tb.PSC)
		}
		if ticks <= 65536 && period != ticks {
			t.Errorf("ticks=%d: expected exact period, got %d", ticks, period)
		}
	}

	tb, err := SolveTimeBase(MaxStepTicks)
	if err != nil || tb.PSC != 0xFFFF || tb.ARR != 0xFFFF {
		t.Errorf("Expected 65535/65535 for 2^32, got %+v (err %v)", tb, err)
	}
}

func TestSolveTimeBaseRejectsOutOfRange(t *testing.T) {
	for _, ticks := range []uint64{0, MaxStepTicks + 1, 1 << 40} {
		if _, err := SolveTimeBase(ticks); err != ErrTimeBaseRange {
			t.Errorf("ticks=%d: expected ErrTimeBaseRange, got %v", ticks, err)
		}
	}
}

func TestStepTicks(t *testing.T) {
	tests := []struct {
		clock    uint32
		perRev   uint16
		milliRPM uint32
		st       StepType
		want     uint64
	}{
		// 60 rpm, 200 steps: 200 steps/s
		{84000000, 200, 60000, FullStep, 420000},
		{84000000, 200, 60000, HalfStep, 210000},
		// 50 rpm: 84e6*60000/(200*50000) = 504000
		{84000000, 200, 50000, FullStep, 504000},
		// rounds half up: 7*60000/(1*80000) = 5.25 -> 5, 9*60000/80000 = 6.75 -> 7
		{7, 1, 80000, FullStep, 5},
		{9, 1, 80000, FullStep, 7},
	}
	for _, tc := range tests {
		got, err := StepTicks(tc.clock, tc.perRev, tc.milliRPM, tc.st)
		if err != nil || got != tc.want {
			t.Errorf("StepTicks(%d, %d, %d, %v): expected %d, got %d (err %v)",
				tc.clock, tc.perRev, tc.milliRPM, tc.st, tc.want, got, err)
		}
	}
	if _, err := StepTicks(84000000, 200, 0, FullStep); err != ErrTimeBaseRange {
		t.Errorf("Expected ErrTimeBaseRange for zero speed, got %v", err)
	}
}

func TestSolvePrescaler(t *testing.T) {
	psc, err := SolvePrescaler(84000000, 15625*time.Nanosecond)
	// 1312.5 clocks rounds to 1313
	if err != nil || psc != 1312 {
		t.Errorf("Expected prescaler 1312, got %d (err %v)", psc, err)
	}
	psc, err = SolvePrescaler(1000000, time.Microsecond)
	if err != nil || psc != 0 {
		t.Errorf("Expected prescaler 0, got %d (err %v)", psc, err)
	}
	if _, err := SolvePrescaler(84000000, time.Second); err != ErrResolution {
		t.Errorf("Expected ErrResolution for a 1s tick, got %v", err)
	}
	if _, err := SolvePrescaler(1000, time.Nanosecond); err != ErrResolution {
		t.Errorf("Expected ErrResolution for a sub-clock tick, got %v", err)
	}
}
