package core

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// LTC2308 config word, sent in the top 6 bits of each frame.
const (
	ltcSleep    = 1 << 0
	ltcUnipolar = 1 << 1
	ltcS0Pos    = 2
	ltcOddSign  = 1 << 4
	ltcSingle   = 1 << 5

	ltcCfgBits   = 6
	ltcFrameBits = 16
	ltcDataBits  = 12

	// LTCConversionTime is the CONVST high time before data is ready.
	LTCConversionTime = 1600 * time.Nanosecond
	// LTCFullScale is the code span of the converter.
	LTCFullScale = 1 << ltcDataBits
)

var (
	ErrADCChannel = errors.New("adc: channel out of range")
	ErrADCBipolar = errors.New("adc: millivolts need unipolar range")
)

// LTC2308 is an 8-channel 12-bit SAR ADC on SPI mode 0. A conversion starts
// on the CONVST rising edge with the config shifted in by the previous
// frame, and its result is shifted out by the next one.
type LTC2308 struct {
	spi    drivers.SPI
	gpio   GPIODriver
	convst GPIOPin
	alarm  *HwAlarm

	cfg         uint8
	stale       bool
	fullScaleMV uint32

	tx, rx [ltcFrameBits / 8]byte
}

// NewLTC2308 returns a converter reading unipolar single-ended CH0 with
// fullScaleMV at the top code.
func NewLTC2308(spi drivers.SPI, gpio GPIODriver, convst GPIOPin, alarm *HwAlarm, fullScaleMV uint32) *LTC2308 {
	return &LTC2308{
		spi:         spi,
		gpio:        gpio,
		convst:      convst,
		alarm:       alarm,
		cfg:         ltcSingle | ltcUnipolar,
		stale:       true,
		fullScaleMV: fullScaleMV,
	}
}

// Configure sets up the CONVST output.
func (a *LTC2308) Configure() error {
	return a.gpio.ConfigureOutput(a.convst)
}

// SetOptions selects the input. In differential mode channel picks the
// positive input of its pair.
func (a *LTC2308) SetOptions(single bool, channel uint8, unipolar, sleep bool) error {
	if channel > 7 {
		return ErrADCChannel
	}
	cfg := (channel>>1)<<ltcS0Pos | (channel&1)*ltcOddSign
	if single {
		cfg |= ltcSingle
	}
	if unipolar {
		cfg |= ltcUnipolar
	}
	if sleep {
		cfg |= ltcSleep
	}
	if cfg != a.cfg {
		a.cfg = cfg
		a.stale = true
	}
	return nil
}

// Read returns the raw 12-bit code of a fresh conversion. Bipolar codes are
// two's complement.
func (a *LTC2308) Read() (uint16, error) {
	if a.stale {
		// the pending conversion ran with the old config
		if _, err := a.convert(); err != nil {
			return 0, err
		}
		a.stale = false
	}
	return a.convert()
}

// ReadMillivolts converts a fresh unipolar sample.
func (a *LTC2308) ReadMillivolts() (uint32, error) {
	if a.cfg&ltcUnipolar == 0 {
		return 0, ErrADCBipolar
	}
	code, err := a.Read()
	if err != nil {
		return 0, err
	}
	return uint32(code) * a.fullScaleMV / LTCFullScale, nil
}

func (a *LTC2308) convert() (uint16, error) {
	if err := a.gpio.SetPin(a.convst, true); err != nil {
		return 0, err
	}
	a.alarm.Delay(LTCConversionTime)
	if err := a.gpio.SetPin(a.convst, false); err != nil {
		return 0, err
	}

	frame := uint16(a.cfg) << (ltcFrameBits - ltcCfgBits)
	a.tx[0], a.tx[1] = byte(frame>>8), byte(frame)
	if err := a.spi.Tx(a.tx[:], a.rx[:]); err != nil {
		return 0, err
	}
	return (uint16(a.rx[0])<<8 | uint16(a.rx[1])) >> (ltcFrameBits - ltcDataBits), nil
}
