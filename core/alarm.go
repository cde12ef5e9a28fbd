package core

import (
	"errors"
	"math"
	"math/bits"
	"time"
)

// AlarmState is the outcome of an alarm request. Failures are negative.
type AlarmState int8

const (
	InvalidCallback AlarmState = -4
	ChannelsBusy    AlarmState = -3
	InvalidDelay    AlarmState = -2
	DelayTooShort   AlarmState = -1
	Started         AlarmState = 0
	Stopped         AlarmState = 1
	Changed         AlarmState = 2
)

var (
	ErrInvalidCallback = errors.New("alarm: invalid callback")
	ErrChannelsBusy    = errors.New("alarm: all channels busy")
	ErrInvalidDelay    = errors.New("alarm: delay out of range")
	ErrDelayTooShort   = errors.New("alarm: delay elapsed before arming")
)

// OK reports success.
func (s AlarmState) OK() bool { return s >= 0 }

// Err returns the sentinel error for a failure, nil otherwise.
func (s AlarmState) Err() error {
	switch s {
	case InvalidCallback:
		return ErrInvalidCallback
	case ChannelsBusy:
		return ErrChannelsBusy
	case InvalidDelay:
		return ErrInvalidDelay
	case DelayTooShort:
		return ErrDelayTooShort
	}
	return nil
}

func (s AlarmState) String() string {
	switch s {
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	case Changed:
		return "changed"
	}
	if err := s.Err(); err != nil {
		return err.Error()
	}
	return "unknown"
}

const (
	// MaxAlarmChannels bounds the channel table.
	MaxAlarmChannels = 4
	// Forever keeps an alarm periodic when passed to ModifyAlarm.
	Forever uint32 = math.MaxUint32
)

type alarmSlot struct {
	cb    Callback // nil when free
	reps  uint32
	ticks uint32
}

// HwAlarm multiplexes software alarms onto the compare channels of one
// free-running timer. Slots are shared with Handler; every update from the
// main context runs with the timer's interrupt line masked.
type HwAlarm struct {
	tim CompareTimer
	irq IRQLine

	slots [MaxAlarmChannels]alarmSlot
	nch   int
	mask  uint32

	clock uint64
	den   uint64 // (psc+1) * 1e9
}

func NewHwAlarm(tim CompareTimer, irq IRQLine) *HwAlarm {
	return &HwAlarm{tim: tim, irq: irq}
}

// Init starts the counter with a tick close to resolution and unmasks the
// compare interrupt at priority. All channels are freed.
func (a *HwAlarm) Init(resolution time.Duration, priority uint8) error {
	psc, err := SolvePrescaler(a.tim.ClockHz(), resolution)
	if err != nil {
		return err
	}

	a.irq.Disable()
	a.nch = min(a.tim.Channels(), MaxAlarmChannels)
	a.mask = math.MaxUint32
	if w := a.tim.Width(); w < 32 {
		a.mask = 1<<w - 1
	}
	a.clock = uint64(a.tim.ClockHz())
	a.den = (uint64(psc) + 1) * uint64(time.Second)
	for ch := 0; ch < a.nch; ch++ {
		a.release(ch)
	}
	a.tim.SetPrescaler(psc)
	a.tim.Start()

	a.irq.SetPriority(priority)
	a.irq.Enable()
	return nil
}

// Resolution is the actual tick period.
func (a *HwAlarm) Resolution() time.Duration {
	return time.Duration(a.den / a.clock)
}

// Channels is the number of usable channels.
func (a *HwAlarm) Channels() int { return a.nch }

// Now returns the raw counter.
func (a *HwAlarm) Now() uint32 { return a.tim.Counter() & a.mask }

// Elapsed returns the ticks since the counter read since, modulo the
// counter range.
func (a *HwAlarm) Elapsed(since uint32) uint32 {
	return (a.Now() - since) & a.mask
}

// Ticks converts d to counter ticks, rounding half to even. It fails when
// the result is zero or does not fit the counter.
func (a *HwAlarm) Ticks(d time.Duration) (uint32, bool) {
	if d <= 0 || a.den == 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(d), a.clock)
	if hi >= a.den {
		return 0, false
	}
	q, r := bits.Div64(hi, lo, a.den)
	if twice := 2 * r; twice > a.den || twice == a.den && q&1 == 1 {
		q++
	}
	if q == 0 || q > uint64(a.mask) {
		return 0, false
	}
	return uint32(q), true
}

// GetTick returns the counter value d from now without arming anything.
func (a *HwAlarm) GetTick(d time.Duration) (uint32, AlarmState) {
	ticks, ok := a.Ticks(d)
	if !ok {
		return 0, InvalidDelay
	}
	return (a.Now() + ticks) & a.mask, Started
}

// Delay busy-waits for at least d.
func (a *HwAlarm) Delay(d time.Duration) {
	if d <= 0 || a.den == 0 {
		return
	}
	hi, lo := bits.Mul64(uint64(d), a.clock)
	if hi >= a.den {
		hi, lo = a.den-1, math.MaxUint64
	}
	q, r := bits.Div64(hi, lo, a.den)
	if r != 0 {
		q++
	}
	// the first tick may come at once
	q++

	chunk := uint64(a.mask / 2)
	for q > 0 {
		n := min(q, chunk)
		start := a.Now()
		for uint64(a.Elapsed(start)) < n {
		}
		q -= n
	}
}

// SetAlarm arms a free channel to run cb after delay, then every delay
// until reps expiries have run. reps == 0 repeats forever.
func (a *HwAlarm) SetAlarm(delay time.Duration, cb Callback, reps uint32) AlarmState {
	start := a.tim.Counter() & a.mask
	if cb == nil || cb.Empty() {
		return InvalidCallback
	}
	ticks, ok := a.Ticks(delay)
	if reps == 0 {
		reps = Forever
	}

	a.irq.Disable()
	defer a.irq.Enable()

	ch := a.free()
	if ch < 0 {
		return ChannelsBusy
	}
	if !ok {
		return InvalidDelay
	}
	if a.Elapsed(start) >= ticks {
		return DelayTooShort
	}
	a.tim.SetCompare(ch, (start+ticks)&a.mask)
	a.tim.ClearCompareFlag(ch)
	a.slots[ch] = alarmSlot{cb: cb, reps: reps, ticks: ticks}
	a.tim.EnableCompareIRQ(ch, true)
	return Started
}

// ModifyAlarm changes the alarm armed with cb. reps == 0 cancels it and
// Forever makes it periodic. A non-zero delay moves the next expiry to
// delay after the start of the current interval; if that instant has
// passed the alarm is cancelled and DelayTooShort returned. A non-nil newCb
// replaces the callback.
func (a *HwAlarm) ModifyAlarm(cb Callback, reps uint32, delay time.Duration, newCb Callback) AlarmState {
	if cb == nil || cb.Empty() || newCb != nil && newCb.Empty() {
		return InvalidCallback
	}
	var ticks uint32
	if delay != 0 {
		var ok bool
		if ticks, ok = a.Ticks(delay); !ok {
			return InvalidDelay
		}
	}

	a.irq.Disable()
	defer a.irq.Enable()

	ch := a.find(cb)
	if ch < 0 {
		return InvalidCallback
	}
	if reps == 0 {
		a.release(ch)
		return Stopped
	}
	s := &a.slots[ch]
	if ticks != 0 {
		base := (a.tim.Compare(ch) - s.ticks) & a.mask
		if (a.Now()-base)&a.mask >= ticks {
			a.release(ch)
			return DelayTooShort
		}
		a.tim.SetCompare(ch, (base+ticks)&a.mask)
		s.ticks = ticks
	}
	s.reps = reps
	if newCb != nil {
		s.cb = newCb
	}
	return Changed
}

// CancelAlarm frees the channel armed with cb.
func (a *HwAlarm) CancelAlarm(cb Callback) AlarmState {
	return a.ModifyAlarm(cb, 0, 0, nil)
}

// Active reports whether cb is armed on some channel.
func (a *HwAlarm) Active(cb Callback) bool {
	a.irq.Disable()
	defer a.irq.Enable()
	return a.find(cb) >= 0
}

// Handler is the compare interrupt entry. Channel bookkeeping completes
// before any callback runs, so callbacks may arm, modify or cancel alarms.
func (a *HwAlarm) Handler() {
	var due [MaxAlarmChannels]Callback
	n := 0

	a.irq.Disable()
	for ch := 0; ch < a.nch; ch++ {
		s := &a.slots[ch]
		if s.cb == nil || !a.tim.CompareFlag(ch) {
			continue
		}
		a.tim.ClearCompareFlag(ch)
		due[n] = s.cb
		n++
		if s.reps != Forever {
			s.reps--
		}
		RecordEvent(EvtAlarm, uint32(ch), s.reps)
		if s.reps == 0 {
			a.release(ch)
		} else {
			a.tim.SetCompare(ch, (a.tim.Compare(ch)+s.ticks)&a.mask)
		}
	}
	a.irq.Enable()

	for _, cb := range due[:n] {
		cb.Call()
	}
}

func (a *HwAlarm) free() int {
	for ch := 0; ch < a.nch; ch++ {
		if a.slots[ch].cb == nil {
			return ch
		}
	}
	return -1
}

func (a *HwAlarm) find(cb Callback) int {
	for ch := 0; ch < a.nch; ch++ {
		if a.slots[ch].cb == cb {
			return ch
		}
	}
	return -1
}

func (a *HwAlarm) release(ch int) {
	a.tim.EnableCompareIRQ(ch, false)
	a.tim.ClearCompareFlag(ch)
	a.slots[ch] = alarmSlot{}
}
