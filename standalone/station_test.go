package standalone

import (
	"errors"
	"strings"
	"testing"

	"motionstation/core"
)

// ramFlash is an erased block device without NOR write rules.
type ramFlash struct {
	data []byte
}

func newRAMFlash(size int) *ramFlash {
	f := &ramFlash{data: make([]byte, size)}
	for i := range f.data {
		f.data[i] = 0xFF
	}
	return f
}

func (f *ramFlash) ReadAt(p []byte, off int64) (int, error)  { return copy(p, f.data[off:]), nil }
func (f *ramFlash) WriteAt(p []byte, off int64) (int, error) { return copy(f.data[off:], p), nil }
func (f *ramFlash) Size() int64                              { return int64(len(f.data)) }
func (f *ramFlash) WriteBlockSize() int64                    { return 4 }
func (f *ramFlash) EraseBlockSize() int64                    { return int64(len(f.data)) }

func (f *ramFlash) EraseBlocks(start, length int64) error {
	for i := range f.data {
		f.data[i] = 0xFF
	}
	return nil
}

type testPot struct {
	mv  uint32
	err error
}

func (p *testPot) ReadMillivolts() (uint32, error) { return p.mv, p.err }

// testMotor completes each rotate on the next poll.
type testMotor struct {
	rotations int
	busy      bool
	enabled   bool
}

func (m *testMotor) Rotate(steps uint16, milliRPM uint32, d core.Direction, st core.StepType) error {
	if m.busy {
		return core.ErrBusy
	}
	m.rotations++
	m.busy = true
	return nil
}

func (m *testMotor) State() core.MotionState {
	if m.busy {
		m.busy = false
		return core.HardwareOnly
	}
	return core.Idle
}

func (m *testMotor) Enable()  { m.enabled = true }
func (m *testMotor) Disable() { m.enabled = false }

type testButton struct {
	short, long bool
}

func (b *testButton) ShortPress() bool {
	v := b.short
	b.short = false
	return v
}

func (b *testButton) LongPress() bool {
	v := b.long
	b.long = false
	return v
}

type stationRig struct {
	station *Station
	motor   *testMotor
	pot     *testPot
	button  *testButton
	pattern *core.MotionPattern
}

func testConfig() *StationConfig {
	return &StationConfig{
		StepsPerRev:       200,
		PatternSize:       2,
		MinMilliRPM:       50000,
		MaxMilliRPM:       400000,
		FullScaleMV:       4096,
		AlarmResolutionNS: 15625,
		ButtonRejectMS:    20,
		ButtonLongMS:      800,
		LineMax:           16,
	}
}

func newStationRig(t *testing.T) *stationRig {
	t.Helper()
	cfg := testConfig()
	pattern, err := core.NewMotionPattern(newRAMFlash(64), cfg.PatternSize)
	if err != nil {
		t.Fatalf("NewMotionPattern failed: %v", err)
	}
	if err := pattern.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	motor := &testMotor{}
	pot := &testPot{mv: 2048}
	button := &testButton{}
	motion := &core.MotionCommands{
		Pattern:  pattern,
		Player:   core.NewPlayer(motor, pattern, cfg.StepType()),
		Pot:      pot,
		Segments: cfg.Segments(),
	}
	station, err := NewStation(cfg, motion, button)
	if err != nil {
		t.Fatalf("NewStation failed: %v", err)
	}
	if err := station.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	station.GetOutput()
	return &stationRig{station: station, motor: motor, pot: pot, button: button, pattern: pattern}
}

func (r *stationRig) feed(line string) error {
	var err error
	for i := 0; i < len(line); i++ {
		if e := r.station.ProcessByte(line[i]); e != nil {
			err = e
		}
	}
	return err
}

func (r *stationRig) lines() []string {
	out := strings.TrimSuffix(string(r.station.GetOutput()), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func TestNewStationRejects(t *testing.T) {
	motion := &core.MotionCommands{}
	if _, err := NewStation(nil, motion, &testButton{}); err == nil {
		t.Error("Expected nil config rejected")
	}
	if _, err := NewStation(testConfig(), motion, &testButton{}); err == nil {
		t.Error("Expected incomplete motion rejected")
	}
}

func TestStationRecordsLines(t *testing.T) {
	r := newStationRig(t)

	if err := r.feed("-12.5\r\n"); err != nil {
		t.Fatalf("Expected line accepted, got %v", err)
	}
	got := r.lines()
	want := []string{MsgInput, "[0] 225.000 -12.6", MsgIdle}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Expected %q, got %q", want, got)
	}

	seg, ok := r.pattern.At(0)
	if !ok || seg.Steps != 7 || seg.Dir != core.CW || seg.MilliRPM != 225000 {
		t.Errorf("Unexpected segment %+v", seg)
	}
}

func TestStationLineErrors(t *testing.T) {
	r := newStationRig(t)

	tests := []struct {
		line string
		err  error
		msg  string
	}{
		{"12a\n", core.ErrAngleSyntax, MsgBadPattern},
		{"0.1\n", core.ErrZeroSteps, MsgZeroSteps},
		{"90\n", nil, "[0] 225.000 90.0"},
		{"45\n", nil, "[1] 225.000 45.0"},
		{"30\n", core.ErrPatternFull, MsgFull},
	}
	for _, tt := range tests {
		err := r.feed(tt.line)
		if !errors.Is(err, tt.err) && !(err == nil && tt.err == nil) {
			t.Errorf("%q: expected %v, got %v", tt.line, tt.err, err)
		}
		if got := r.lines(); len(got) != 3 || got[1] != tt.msg {
			t.Errorf("%q: expected %q, got %q", tt.line, tt.msg, got)
		}
	}
}

func TestStationADCFailure(t *testing.T) {
	r := newStationRig(t)
	r.pot.err = errors.New("spi fault")
	if err := r.feed("90\n"); !errors.Is(err, core.ErrADCRead) {
		t.Errorf("Expected ErrADCRead, got %v", err)
	}
	if got := r.lines(); len(got) != 3 || got[1] != MsgADCFail {
		t.Errorf("Expected ADC failure shown, got %q", got)
	}
	if r.pattern.Len() != 0 {
		t.Error("Expected nothing recorded")
	}
}

func TestStationLongLine(t *testing.T) {
	r := newStationRig(t)
	if err := r.feed(strings.Repeat("1", 40) + "\n"); err != ErrLineTooLong {
		t.Errorf("Expected ErrLineTooLong, got %v", err)
	}
	if got := r.lines(); len(got) != 2 || got[0] != MsgIOFailure {
		t.Errorf("Expected IO failure shown, got %q", got)
	}

	// the next line is parsed normally
	if err := r.feed("10\n"); err != nil {
		t.Errorf("Expected recovery after a long line, got %v", err)
	}
}

func TestStationNotRunning(t *testing.T) {
	r := newStationRig(t)
	r.station.Stop()
	if err := r.station.ProcessLine("90"); err != ErrNotRunning {
		t.Errorf("Expected ErrNotRunning, got %v", err)
	}
	if r.station.IsRunning() {
		t.Error("Expected station stopped")
	}
}

func TestStationButtons(t *testing.T) {
	r := newStationRig(t)

	// nothing to play
	r.button.short = true
	r.station.Poll()
	if got := r.lines(); len(got) != 2 || got[0] != MsgNoData {
		t.Errorf("Expected no data, got %q", got)
	}

	r.feed("90\n")
	r.feed("-90\n")
	r.lines()

	r.button.short = true
	r.station.Poll()
	if got := r.lines(); len(got) != 1 || got[0] != MsgPlay {
		t.Errorf("Expected play, got %q", got)
	}
	if !r.motor.enabled || r.motor.rotations != 1 {
		t.Errorf("Expected motor enabled and first segment started, got %+v", r.motor)
	}
	for i := 0; i < 6; i++ {
		r.station.Poll()
	}
	if r.motor.rotations < 3 {
		t.Errorf("Expected playback to cycle, got %d rotations", r.motor.rotations)
	}

	// lines recorded while playing keep the play state shown
	if err := r.feed("1000\n"); err == nil {
		t.Error("Expected bad line rejected")
	}
	if got := r.lines(); got[len(got)-1] != MsgPlay {
		t.Errorf("Expected play state kept, got %q", got)
	}

	r.button.short = true
	r.station.Poll()
	if got := r.lines(); len(got) != 1 || got[0] != MsgIdle {
		t.Errorf("Expected idle, got %q", got)
	}
	if r.motor.enabled {
		t.Error("Expected motor disabled")
	}

	r.button.long = true
	r.station.Poll()
	if got := r.lines(); len(got) != 2 || got[0] != MsgClear || got[1] != MsgIdle {
		t.Errorf("Expected clear, got %q", got)
	}
	if r.pattern.Len() != 0 {
		t.Errorf("Expected pattern cleared, got %d segments", r.pattern.Len())
	}
}

func TestLongPressStopsPlayback(t *testing.T) {
	r := newStationRig(t)
	r.feed("90\n")
	r.button.short = true
	r.station.Poll()
	r.lines()

	r.button.long = true
	r.station.Poll()
	if r.station.motion.Player.Playing() || r.motor.enabled {
		t.Error("Expected playback stopped by the clear")
	}
	if got := r.lines(); len(got) != 2 || got[1] != MsgIdle {
		t.Errorf("Expected idle after clear, got %q", got)
	}
}

func TestFormatSegment(t *testing.T) {
	tests := []struct {
		idx  int
		seg  core.MotionSegment
		want string
	}{
		{0, core.MotionSegment{MilliRPM: 50000, Steps: 50, Dir: core.CCW}, "[0] 50.000 90.0"},
		{7, core.MotionSegment{MilliRPM: 123456, Steps: 7, Dir: core.CW}, "[7] 123.456 -12.6"},
		{1, core.MotionSegment{MilliRPM: 400005, Steps: 200, Dir: core.CCW}, "[1] 400.005 360.0"},
	}
	for _, tt := range tests {
		if got := FormatSegment(tt.idx, tt.seg, 200); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}
