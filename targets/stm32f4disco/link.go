//go:build stm32f4disco

package main

import (
	"time"

	"motionstation/core"
	"motionstation/protocol"
	"motionstation/standalone"
)

// rxBufferSize holds a few full frames; must be a power of two.
const rxBufferSize = 512

var (
	rxFifo       *protocol.FifoArray[byte]
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	// Debug counters
	messagesReceived uint32
	writeFailures    uint32
	outputOverflows  uint32
	panics           uint32
)

// runHostLink serves the command protocol on the UART.
func runHostLink(b *board, cfg *standalone.StationConfig) {
	reg := core.GetGlobalRegistry()
	core.InitCoreCommands()
	b.motion.Register(reg)

	core.RegisterConstant("MCU", "stm32f407")
	core.RegisterConstant("CLOCK_FREQ", uint32(tim1ClockHz))
	core.RegisterConstant("STEPS_PER_REV", cfg.StepsPerRev)
	core.RegisterConstant("PATTERN_SIZE", cfg.PatternSize)
	core.RegisterConstant("MILLI_RPM_MIN", cfg.MinMilliRPM)
	core.RegisterConstant("MILLI_RPM_MAX", cfg.MaxMilliRPM)
	core.GetGlobalDictionary().BuildDictionary()

	rxFifo = protocol.NewFifoArray[byte](rxBufferSize)
	outputBuffer = protocol.NewScratchOutput()
	transport = protocol.NewTransport(outputBuffer, core.DispatchCommand)
	// runs inside Receive, which still owns the rx window
	transport.SetResetCallback(func() {
		outputBuffer.Reset()
		b.motion.Player.Stop()
	})
	// responses go out before the ack the host waits on
	transport.SetFlushCallback(writeOutput)
	core.SetGlobalTransport(transport)
	core.SetDebugWriter(core.LogWriter(reg))

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					panics++
					rxFifo.Reset()
					outputBuffer.Reset()
				}
			}()

			readUART()
			if !rxFifo.Empty() {
				rxFifo.Linearize()
				in := protocol.NewSliceInputBuffer(rxFifo.Slice())
				before := in.Available()
				transport.Receive(in)
				switch consumed := before - in.Available(); {
				case consumed > 0:
					rxFifo.Discard(consumed)
					messagesReceived++
				case rxFifo.Full():
					// no frame fits, drop the line noise
					rxFifo.Reset()
				}
			}
			writeOutput()

			b.motion.Player.Poll()
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// readUART moves buffered bytes into the receive FIFO.
func readUART() {
	for uart.Buffered() > 0 && !rxFifo.Full() {
		c, err := uart.ReadByte()
		if err != nil {
			return
		}
		rxFifo.Push(c)
	}
}

// writeOutput sends everything the transport has queued.
func writeOutput() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}
	if outputBuffer.Overflowed() {
		outputOverflows++
	}
	if _, err := uart.Write(result); err != nil {
		writeFailures++
	}
	outputBuffer.Reset()
}
