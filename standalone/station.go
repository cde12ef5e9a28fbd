package standalone

import (
	"errors"

	"motionstation/core"
)

var (
	ErrNotRunning  = errors.New("station not running")
	ErrLineTooLong = errors.New("input line too long")
)

// Display lines, one per state change.
const (
	MsgIdle        = "Idle"
	MsgInput       = "Input"
	MsgPlay        = "Play"
	MsgClear       = "Clear"
	MsgNoData      = "Err-1 No data"
	MsgBadPattern  = "Err-2 Bad pattern"
	MsgIOFailure   = "Err-2 IO Failure"
	MsgFull        = "Err-3 Full"
	MsgZeroSteps   = "Err-4 Zero steps"
	MsgStorageFail = "Err-5 Storage"
	MsgADCFail     = "ADC Fail"
)

// Station is the operator front end: angle lines are recorded into the
// pattern at the potentiometer speed, a short press toggles playback and a
// long press clears the pattern.
type Station struct {
	config *StationConfig
	motion *core.MotionCommands
	button Button

	// Serial interface
	inputBuffer  []byte
	overflow     bool
	outputBuffer []byte

	running bool
}

// NewStation creates a station over motion, whose Pattern, Player and Pot
// must be set.
func NewStation(cfg *StationConfig, motion *core.MotionCommands, button Button) (*Station, error) {
	if cfg == nil {
		return nil, errors.New("station config is nil")
	}
	if motion == nil || motion.Pattern == nil || motion.Player == nil || motion.Pot == nil {
		return nil, errors.New("station needs a pattern, a player and a potentiometer")
	}
	if button == nil {
		return nil, errors.New("station needs a button")
	}
	return &Station{
		config:       cfg,
		motion:       motion,
		button:       button,
		inputBuffer:  make([]byte, 0, cfg.LineMax),
		outputBuffer: make([]byte, 0, 256),
	}, nil
}

// Start begins operation in the idle state
func (s *Station) Start() error {
	if s.running {
		return errors.New("station already running")
	}
	s.running = true
	s.show(MsgIdle)
	core.DebugPrintln("[STATION] idle, " + core.Itoa(s.motion.Pattern.Len()) + "/" +
		core.Itoa(s.motion.Pattern.Max()) + " segments")
	return nil
}

// Stop halts playback and operation
func (s *Station) Stop() {
	s.running = false
	s.motion.Player.Stop()
}

// IsRunning returns whether the station is running
func (s *Station) IsRunning() bool {
	return s.running
}

// ProcessByte processes a single byte of input (for serial streaming)
func (s *Station) ProcessByte(b byte) error {
	if b != '\n' && b != '\r' {
		if len(s.inputBuffer) == s.config.LineMax {
			s.overflow = true
			return nil
		}
		s.inputBuffer = append(s.inputBuffer, b)
		return nil
	}

	line := string(s.inputBuffer)
	s.inputBuffer = s.inputBuffer[:0]
	if s.overflow {
		s.overflow = false
		s.show(MsgIOFailure)
		s.idle()
		return ErrLineTooLong
	}
	if len(line) == 0 {
		// second half of \r\n
		return nil
	}
	return s.ProcessLine(line)
}

// ProcessLine records the segment for one angle line
func (s *Station) ProcessLine(line string) error {
	if !s.running {
		return ErrNotRunning
	}

	s.show(MsgInput)
	err := s.motion.AddAngle(line)
	switch {
	case err == nil:
		idx := s.motion.Pattern.Len() - 1
		seg, _ := s.motion.Pattern.At(idx)
		s.show(FormatSegment(idx, seg, s.config.StepsPerRev))
	case errors.Is(err, core.ErrAngleSyntax):
		s.show(MsgBadPattern)
	case errors.Is(err, core.ErrPatternFull):
		s.show(MsgFull)
	case errors.Is(err, core.ErrZeroSteps):
		s.show(MsgZeroSteps)
	case errors.Is(err, core.ErrADCRead):
		s.show(MsgADCFail)
	default:
		s.show(MsgStorageFail)
	}
	if err != nil {
		core.DebugPrintln("[STATION] line rejected: " + err.Error())
	}
	s.idle()
	return err
}

// Poll handles button presses and feeds the player. Call it from the main
// loop.
func (s *Station) Poll() {
	if !s.running {
		return
	}
	player := s.motion.Player

	if s.button.LongPress() {
		player.Stop()
		s.show(MsgClear)
		if err := s.motion.Pattern.Clear(); err != nil {
			core.DebugPrintln("[STATION] clear failed: " + err.Error())
			s.show(MsgStorageFail)
		}
		s.idle()
	}

	if s.button.ShortPress() {
		switch {
		case player.Playing():
			player.Stop()
			s.idle()
		case player.Start() != nil:
			s.show(MsgNoData)
			s.idle()
		default:
			s.show(MsgPlay)
		}
	}

	player.Poll()
}

func (s *Station) idle() {
	if s.motion.Player.Playing() {
		s.show(MsgPlay)
		return
	}
	s.show(MsgIdle)
}

func (s *Station) show(msg string) {
	s.outputBuffer = append(s.outputBuffer, msg...)
	s.outputBuffer = append(s.outputBuffer, '\n')
}

// GetOutput returns any pending output and clears the buffer
func (s *Station) GetOutput() []byte {
	if len(s.outputBuffer) == 0 {
		return nil
	}

	output := make([]byte, len(s.outputBuffer))
	copy(output, s.outputBuffer)
	s.outputBuffer = s.outputBuffer[:0]
	return output
}

// FormatSegment renders a segment as "[index] rpm angle", e.g.
// "[0] 225.000 -12.6".
func FormatSegment(idx int, seg core.MotionSegment, stepsPerRev uint16) string {
	b := make([]byte, 0, 24)
	b = append(b, '[')
	b = append(b, core.Itoa(idx)...)
	b = append(b, "] "...)
	b = appendFixed(b, int64(seg.MilliRPM), 1000)
	b = append(b, ' ')
	b = appendFixed(b, int64(seg.AngleX10(stepsPerRev)), 10)
	return string(b)
}

// appendFixed writes v/scale with as many decimals as scale has zeros.
func appendFixed(b []byte, v, scale int64) []byte {
	if v < 0 {
		b = append(b, '-')
		v = -v
	}
	b = append(b, core.Utoa64(uint64(v/scale))...)
	b = append(b, '.')
	frac := core.Utoa64(uint64(v%scale + scale))
	return append(b, frac[1:]...)
}
