package core

// CompareTimer is a free-running up-counter with several compare channels
// sharing one interrupt line.
type CompareTimer interface {
	// ClockHz is the prescaler input clock.
	ClockHz() uint32
	// Width is the counter width in bits, 16 or 32.
	Width() uint8
	// Channels is the number of compare channels.
	Channels() int

	SetPrescaler(psc uint16)
	// Start makes the counter free-run over its full range.
	Start()
	Counter() uint32

	SetCompare(ch int, v uint32)
	Compare(ch int) uint32
	EnableCompareIRQ(ch int, enable bool)
	CompareFlag(ch int) bool
	ClearCompareFlag(ch int)
}

// Callback is run when an alarm expires. Channels are looked up by
// comparing Callback values, so implementations should be pointers.
type Callback interface {
	Call()
	Empty() bool
}

// CallbackFunc is a Callback whose identity is its address.
type CallbackFunc struct {
	fn func()
}

// NewCallback wraps fn; keep the returned pointer to modify or cancel the
// alarm later.
func NewCallback(fn func()) *CallbackFunc {
	return &CallbackFunc{fn: fn}
}

func (c *CallbackFunc) Call() {
	if c.fn != nil {
		c.fn()
	}
}

func (c *CallbackFunc) Empty() bool { return c == nil || c.fn == nil }
