package core

import "motionstation/protocol"

// DebugWriter receives one line of debug output.
type DebugWriter func(string)

// Event is one record of the motion event ring.
type Event struct {
	Type   uint8
	Clock  uint32
	Value1 uint32
	Value2 uint32
}

const (
	EvtRotate     = 1 // steps, milli-rpm
	EvtUpdate     = 2 // swReps after decrement, hwReps
	EvtAlarm      = 3 // channel, repetitions left
	EvtButton     = 4 // new state
	EvtPattern    = 5 // segment index, steps
	EvtRotateFail = 6 // steps, milli-rpm
)

// EventRingSize must be a power of two.
const EventRingSize = 32

var (
	debugPrintln DebugWriter = func(string) {}
	debugEnabled bool

	events     = protocol.NewFifoArray[Event](EventRingSize)
	eventClock = func() uint32 { return 0 }
)

// SetDebugWriter installs the platform output, e.g. a UART or the host link.
func SetDebugWriter(w DebugWriter) {
	debugPrintln = w
}

// SetDebugEnabled gates DebugPrintln.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes msg when debug output is enabled.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// SetEventClock sets the timestamp source of recorded events.
func SetEventClock(now func() uint32) {
	eventClock = now
}

// RecordEvent appends to the event ring, dropping the oldest record when it
// is full. Callable from interrupt handlers.
func RecordEvent(typ uint8, v1, v2 uint32) {
	critical(func() {
		if events.Full() {
			events.Pop()
		}
		events.Push(Event{Type: typ, Clock: eventClock(), Value1: v1, Value2: v2})
	})
}

// DrainEvents removes and returns the recorded events, oldest first.
func DrainEvents() (out []Event) {
	critical(func() {
		events.Linearize()
		out = append(out, events.Slice()...)
		events.Reset()
	})
	return out
}

func eventName(typ uint8) string {
	switch typ {
	case EvtRotate:
		return "ROTATE"
	case EvtUpdate:
		return "UPDATE"
	case EvtAlarm:
		return "ALARM"
	case EvtButton:
		return "BUTTON"
	case EvtPattern:
		return "PATTERN"
	case EvtRotateFail:
		return "ROTATE_FAIL"
	}
	return "UNKNOWN"
}

// DumpEvents writes the event ring to the debug writer regardless of the
// debug gate and empties it.
func DumpEvents() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[EVT] === event dump ===")
	for _, e := range DrainEvents() {
		debugPrintln("[EVT] " + eventName(e.Type) +
			" clock=" + utoa(e.Clock) +
			" v1=" + utoa(e.Value1) +
			" v2=" + utoa(e.Value2))
	}
	debugPrintln("[EVT] === end ===")
}
