//go:build stm32f4disco

package main

import (
	"machine"
	"time"

	"motionstation/core"
	"motionstation/standalone"
)

// runStation runs the operator station with no host: angle lines arrive
// on the UART and display lines go back on it.
func runStation(b *board, cfg *standalone.StationConfig) {
	core.SetDebugWriter(func(msg string) {
		uart.Write([]byte("# " + msg + "\r\n"))
	})

	station, err := standalone.NewStation(cfg, b.motion, b.button)
	if err != nil {
		blinkError()
	}
	if err := station.Start(); err != nil {
		blinkError()
	}

	// the press that selected this mode must not toggle playback
	for b.button.Pressed() {
		time.Sleep(10 * time.Millisecond)
	}
	b.button.ShortPress()
	b.button.LongPress()

	// Flash the green LED 3 times to indicate the station started
	led := machine.LED_GREEN
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < 3; i++ {
		led.High()
		time.Sleep(200 * time.Millisecond)
		led.Low()
		time.Sleep(200 * time.Millisecond)
	}

	for {
		for uart.Buffered() > 0 {
			c, err := uart.ReadByte()
			if err != nil {
				break
			}
			// errors are already on the display
			station.ProcessByte(c)
		}

		station.Poll()
		led.Set(b.motion.Player.Playing())

		if out := station.GetOutput(); len(out) > 0 {
			uart.Write(out)
		}

		time.Sleep(10 * time.Microsecond)
	}
}
