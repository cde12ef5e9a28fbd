//go:build stm32f4disco

package main

import (
	"device/stm32"
	"machine"
	"runtime/interrupt"
	"time"

	"motionstation/core"
	"motionstation/standalone"
	"motionstation/standalone/config"
)

// Pin map. The motor terminals and the driver enable share GPIOE so one
// BSRR word moves them together.
const (
	phaseAPos = 8  // PE8
	phaseANeg = 9  // PE9
	phaseBPos = 10 // PE10
	phaseBNeg = 11 // PE11
	driverEn  = 12 // PE12

	userButton = machine.PA0
	adcConvst  = machine.PB1
	memsCS     = machine.PE3 // on-board accelerometer shares SPI1

	spiFrequency = 8000000
)

// board holds the peripherals both run modes share.
type board struct {
	stepper *core.BStepper
	alarm   *core.HwAlarm
	button  *core.PushButton
	adc     *core.LTC2308
	motion  *core.MotionCommands
}

var (
	stepperIRQ irqLine
	alarmIRQ   irqLine

	// read by the interrupt handlers
	stepper *core.BStepper
	alarm   *core.HwAlarm

	uart = machine.UART1
)

func main() {
	cfg := config.DefaultStationConfig()

	uart.Configure(machine.UARTConfig{BaudRate: 115200})

	stepperIRQ = irqLine{interrupt.New(stm32.IRQ_TIM1_UP_TIM10, func(interrupt.Interrupt) {
		stepper.HandleUpdate()
	})}
	alarmIRQ = irqLine{interrupt.New(stm32.IRQ_TIM4, func(interrupt.Interrupt) {
		alarm.Handler()
	})}

	b, err := setupBoard(cfg)
	if err != nil {
		blinkError()
	}

	// holding the button through reset selects the standalone station
	if b.button.Pressed() {
		runStation(b, cfg)
	}
	runHostLink(b, cfg)
}

func setupBoard(cfg *standalone.StationConfig) (*board, error) {
	gpio := pinDriver{}

	alarm = core.NewHwAlarm(initAlarmTimer(), alarmIRQ)
	if err := alarm.Init(cfg.AlarmResolution(), cfg.AlarmPriority); err != nil {
		return nil, err
	}
	core.SetEventClock(alarm.Now)

	for _, pin := range []machine.Pin{machine.PE8, machine.PE9, machine.PE10, machine.PE11, machine.PE12} {
		if err := gpio.ConfigureOutput(core.GPIOPin(pin)); err != nil {
			return nil, err
		}
	}
	stepper = core.NewBStepper(initStepperHardware())
	stepper.SetPins(core.StepperPins{
		Phases: core.Pinout{
			A: core.PhasePins{Pos: 1 << phaseAPos, Neg: 1 << phaseANeg},
			B: core.PhasePins{Pos: 1 << phaseBPos, Neg: 1 << phaseBNeg},
		},
		Enable: 1 << driverEn,
	})
	stepper.SetResolution(cfg.StepsPerRev)
	stepper.Init(cfg.StepperPriority)

	button := core.NewPushButton(gpio, core.GPIOPin(userButton), cfg.ButtonActiveLow, alarm,
		cfg.ButtonReject(), cfg.ButtonLong())
	if err := button.Init(); err != nil {
		return nil, err
	}
	if err := button.Attach(gpio); err != nil {
		return nil, err
	}

	memsCS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	memsCS.High()
	if err := machine.SPI1.Configure(machine.SPIConfig{Frequency: spiFrequency, Mode: 0}); err != nil {
		return nil, err
	}
	adc := core.NewLTC2308(machine.SPI1, gpio, core.GPIOPin(adcConvst), alarm, cfg.FullScaleMV)
	if err := adc.Configure(); err != nil {
		return nil, err
	}
	if err := adc.SetOptions(true, cfg.ADCChannel, true, false); err != nil {
		return nil, err
	}

	pattern, err := core.NewMotionPattern(machine.Flash, cfg.PatternSize)
	if err != nil {
		return nil, err
	}
	if err := pattern.Load(); err != nil {
		return nil, err
	}

	return &board{
		stepper: stepper,
		alarm:   alarm,
		button:  button,
		adc:     adc,
		motion: &core.MotionCommands{
			Stepper:  stepper,
			Pattern:  pattern,
			Player:   core.NewPlayer(stepper, pattern, cfg.StepType()),
			Pot:      adc,
			Segments: cfg.Segments(),
		},
	}, nil
}

// blinkError flashes the red LED forever.
func blinkError() {
	led := machine.LED_RED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
