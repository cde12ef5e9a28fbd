package standalone

import (
	"time"

	"motionstation/core"
)

// StationConfig represents the complete station configuration
type StationConfig struct {
	// Motor
	StepsPerRev uint16 `json:"steps_per_rev"` // Full steps per revolution
	HalfStep    bool   `json:"half_step"`     // Play segments in half-step mode

	// Pattern storage
	PatternSize int `json:"pattern_size"` // Maximum number of segments

	// Speed potentiometer mapping
	MinMilliRPM uint32 `json:"min_milli_rpm"` // Speed at 0 mV
	MaxMilliRPM uint32 `json:"max_milli_rpm"` // Speed at full scale
	FullScaleMV uint32 `json:"adc_full_scale_mv"`
	ADCChannel  uint8  `json:"adc_channel"`

	// Alarm timer tick
	AlarmResolutionNS uint32 `json:"alarm_resolution_ns"`

	// User button
	ButtonActiveLow bool   `json:"button_active_low"`
	ButtonRejectMS  uint32 `json:"button_reject_ms"` // Debounce window
	ButtonLongMS    uint32 `json:"button_long_ms"`   // Long press threshold

	// Interrupt priorities, 0 selects the default
	StepperPriority uint8 `json:"stepper_priority"`
	AlarmPriority   uint8 `json:"alarm_priority"`

	// Longest operator input line
	LineMax int `json:"line_max"`
}

// AlarmResolution returns the alarm tick period
func (c *StationConfig) AlarmResolution() time.Duration {
	return time.Duration(c.AlarmResolutionNS) * time.Nanosecond
}

// ButtonReject returns the debounce window
func (c *StationConfig) ButtonReject() time.Duration {
	return time.Duration(c.ButtonRejectMS) * time.Millisecond
}

// ButtonLong returns the long press threshold
func (c *StationConfig) ButtonLong() time.Duration {
	return time.Duration(c.ButtonLongMS) * time.Millisecond
}

// Segments returns the operator input mapping
func (c *StationConfig) Segments() core.SegmentConfig {
	return core.SegmentConfig{
		StepsPerRev: c.StepsPerRev,
		MinMilliRPM: c.MinMilliRPM,
		MaxMilliRPM: c.MaxMilliRPM,
		FullScaleMV: c.FullScaleMV,
	}
}

// StepType returns the step mode segments are played in
func (c *StationConfig) StepType() core.StepType {
	if c.HalfStep {
		return core.HalfStep
	}
	return core.FullStep
}

// Button reports operator presses; core.PushButton implements it.
type Button interface {
	ShortPress() bool
	LongPress() bool
}
