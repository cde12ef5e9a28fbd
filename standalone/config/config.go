package config

import (
	"encoding/json"
	"errors"

	"motionstation/standalone"
)

// LoadConfig parses a JSON configuration string and returns a StationConfig
func LoadConfig(jsonData []byte) (*standalone.StationConfig, error) {
	var config standalone.StationConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *standalone.StationConfig) {
	def := DefaultStationConfig()

	if config.StepsPerRev == 0 {
		config.StepsPerRev = def.StepsPerRev
	}
	if config.PatternSize == 0 {
		config.PatternSize = def.PatternSize
	}

	// Speed mapping
	if config.MinMilliRPM == 0 {
		config.MinMilliRPM = def.MinMilliRPM
	}
	if config.MaxMilliRPM == 0 {
		config.MaxMilliRPM = def.MaxMilliRPM
	}
	if config.FullScaleMV == 0 {
		config.FullScaleMV = def.FullScaleMV
	}

	// Timing
	if config.AlarmResolutionNS == 0 {
		config.AlarmResolutionNS = def.AlarmResolutionNS
	}
	if config.ButtonRejectMS == 0 {
		config.ButtonRejectMS = def.ButtonRejectMS
	}
	if config.ButtonLongMS == 0 {
		config.ButtonLongMS = def.ButtonLongMS
	}

	if config.StepperPriority == 0 {
		config.StepperPriority = def.StepperPriority
	}
	if config.AlarmPriority == 0 {
		config.AlarmPriority = def.AlarmPriority
	}
	if config.LineMax == 0 {
		config.LineMax = def.LineMax
	}
}

// Validate rejects configurations the station cannot run
func Validate(config *standalone.StationConfig) error {
	switch {
	case config.PatternSize < 0 || config.PatternSize > 255:
		return errors.New("pattern_size must be within 1..255")
	case config.MinMilliRPM > config.MaxMilliRPM:
		return errors.New("min_milli_rpm exceeds max_milli_rpm")
	case config.ADCChannel > 7:
		return errors.New("adc_channel must be within 0..7")
	case config.ButtonLongMS <= config.ButtonRejectMS:
		return errors.New("button_long_ms must exceed button_reject_ms")
	case config.LineMax < 0:
		return errors.New("line_max must be positive")
	}
	return nil
}

// DefaultStationConfig returns the configuration of the reference station:
// a 200 step motor, 8 segments, 50 to 400 rpm on a 4.096 V potentiometer
// and a 64 kHz alarm tick.
func DefaultStationConfig() *standalone.StationConfig {
	return &standalone.StationConfig{
		StepsPerRev:       200,
		HalfStep:          false,
		PatternSize:       8,
		MinMilliRPM:       50000,
		MaxMilliRPM:       400000,
		FullScaleMV:       4096,
		ADCChannel:        0,
		AlarmResolutionNS: 15625,
		ButtonActiveLow:   false,
		ButtonRejectMS:    20,
		ButtonLongMS:      800,
		StepperPriority:   0x40,
		AlarmPriority:     0x80,
		LineMax:           80,
	}
}
