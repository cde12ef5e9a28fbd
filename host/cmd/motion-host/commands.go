package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"motionstation/core"
	"motionstation/host/mcu"
)

// station is the part of *mcu.MCU the command loop drives.
type station interface {
	Status() (mcu.Status, error)
	Enable(on bool) error
	Rotate(steps uint16, milliRPM uint32, dir core.Direction, st core.StepType) error
	PatternAdd(seg core.MotionSegment) (int, error)
	PatternClear() error
	Pattern() ([]core.MotionSegment, error)
	SegmentInput(line string) (int, error)
	Play(on bool) error
	Clock() (uint32, error)
	SetDebug(on bool) error
	DumpEvents() error
	PrintDictionary(w io.Writer)
	GetDictionaryRaw() []byte
	StepsPerRev() uint16
}

var errUsage = errors.New("usage")

func run(s station, args []string, w io.Writer) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "help", "?":
		printHelp(w)
		return nil

	case "dict":
		s.PrintDictionary(w)
		return nil

	case "raw":
		raw := s.GetDictionaryRaw()
		fmt.Fprintf(w, "Raw dictionary data (%d bytes):\n%s\n", len(raw), raw)
		return nil

	case "status":
		st, err := s.Status()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, st)
		return nil

	case "enable":
		on, err := parseOnOff(args)
		if err != nil {
			return err
		}
		return s.Enable(on)

	case "rotate":
		return rotate(s, args)

	case "add":
		if len(args) != 3 {
			return fmt.Errorf("%w: add <rpm> <steps> <cw|ccw>", errUsage)
		}
		seg, err := parseSegment(args)
		if err != nil {
			return err
		}
		n, err := s.PatternAdd(seg)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d segments\n", n)
		return nil

	case "angle":
		if len(args) != 1 {
			return fmt.Errorf("%w: angle <[+-]ddd[.d]>", errUsage)
		}
		n, err := s.SegmentInput(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d segments\n", n)
		return nil

	case "list":
		segs, err := s.Pattern()
		if err != nil {
			return err
		}
		for i, seg := range segs {
			fmt.Fprintf(w, "[%d] %s rpm %s deg (%d steps %v)\n", i,
				fixed(int64(seg.MilliRPM), 1000), fixed(int64(seg.AngleX10(s.StepsPerRev())), 10), seg.Steps, seg.Dir)
		}
		return nil

	case "clear":
		return s.PatternClear()

	case "play":
		on, err := parseOnOff(args)
		if err != nil {
			return err
		}
		return s.Play(on)

	case "clock":
		c, err := s.Clock()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "clock=%d\n", c)
		return nil

	case "debug":
		on, err := parseOnOff(args)
		if err != nil {
			return err
		}
		return s.SetDebug(on)

	case "events":
		return s.DumpEvents()
	}
	return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
}

func rotate(s station, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return fmt.Errorf("%w: rotate <steps> <rpm> <cw|ccw> [full|half]", errUsage)
	}
	steps, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		return fmt.Errorf("steps: %w", err)
	}
	milliRPM, err := parseRPM(args[1])
	if err != nil {
		return err
	}
	dir, err := parseDirection(args[2])
	if err != nil {
		return err
	}
	st := core.FullStep
	if len(args) == 4 {
		switch args[3] {
		case "full":
		case "half":
			st = core.HalfStep
		default:
			return fmt.Errorf("step type must be full or half, got %q", args[3])
		}
	}
	return s.Rotate(uint16(steps), milliRPM, dir, st)
}

func parseSegment(args []string) (core.MotionSegment, error) {
	milliRPM, err := parseRPM(args[0])
	if err != nil {
		return core.MotionSegment{}, err
	}
	steps, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return core.MotionSegment{}, fmt.Errorf("steps: %w", err)
	}
	dir, err := parseDirection(args[2])
	if err != nil {
		return core.MotionSegment{}, err
	}
	return core.MotionSegment{MilliRPM: milliRPM, Steps: uint16(steps), Dir: dir}, nil
}

// parseRPM reads a speed like "60" or "12.345" in milli-RPM.
func parseRPM(s string) (uint32, error) {
	rpm, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("rpm: %w", err)
	}
	milli := math.Round(rpm * 1000)
	if milli <= 0 || milli > math.MaxUint32 {
		return 0, fmt.Errorf("rpm out of range: %s", s)
	}
	return uint32(milli), nil
}

func parseDirection(s string) (core.Direction, error) {
	switch strings.ToLower(s) {
	case "cw":
		return core.CW, nil
	case "ccw":
		return core.CCW, nil
	}
	return 0, fmt.Errorf("direction must be cw or ccw, got %q", s)
}

func parseOnOff(args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("%w: expected on or off", errUsage)
	}
	switch args[0] {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", args[0])
}

func fixed(v, scale int64) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	digits := len(strconv.FormatInt(scale, 10)) - 1
	return fmt.Sprintf("%s%d.%0*d", sign, v/scale, digits, v%scale)
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "\nAvailable commands:")
	fmt.Fprintln(w, "  help                           - Show this help message")
	fmt.Fprintln(w, "  dict | raw                     - Print the dictionary")
	fmt.Fprintln(w, "  status                         - Motor and pattern state")
	fmt.Fprintln(w, "  enable on|off                  - Power the motor driver")
	fmt.Fprintln(w, "  rotate <steps> <rpm> <cw|ccw> [full|half]")
	fmt.Fprintln(w, "  add <rpm> <steps> <cw|ccw>     - Append a pattern segment")
	fmt.Fprintln(w, "  angle <[+-]ddd[.d]>            - Append at the potentiometer speed")
	fmt.Fprintln(w, "  list | clear                   - Show or drop the pattern")
	fmt.Fprintln(w, "  play on|off                    - Cyclic pattern playback")
	fmt.Fprintln(w, "  clock | debug on|off | events  - Diagnostics")
	fmt.Fprintln(w, "  quit/exit/q                    - Exit the program")
	fmt.Fprintln(w)
}
