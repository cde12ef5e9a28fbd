package core

import (
	"motionstation/protocol"
)

// RegisterCoreCommands registers the link level commands on reg.
//
// Registration order matters: the host bootstraps with
//
//	identify_response = ID 0
//	identify = ID 1
func RegisterCoreCommands(reg *CommandRegistry, dict *Dictionary) {
	reg.Register("identify_response", "offset=%u data=%*s", nil)
	reg.Register("identify", "offset=%u count=%c", func(data *[]byte) error {
		return handleIdentify(reg, dict, data)
	})

	reg.Register("get_clock", "", func(data *[]byte) error {
		reg.SendResponse("clock", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, eventClock())
		})
		return nil
	})
	reg.Register("set_debug", "enable=%c", handleSetDebug)
	reg.Register("dump_events", "", func(data *[]byte) error {
		DumpEvents()
		return nil
	})

	reg.Register("clock", "clock=%u", nil)
	reg.Register("log", "msg=%*s", nil)
}

// InitCoreCommands registers the link level commands on the global registry
func InitCoreCommands() {
	RegisterCoreCommands(globalRegistry, globalDictionary)
}

// handleIdentify returns chunks of the data dictionary
func handleIdentify(reg *CommandRegistry, dict *Dictionary, data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	chunk := dict.GetChunk(offset, uint8(count))
	reg.SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

func handleSetDebug(data *[]byte) error {
	on, err := protocol.DecodeVLQBool(data)
	if err != nil {
		return err
	}
	SetDebugEnabled(on)
	return nil
}

// LogWriter returns a DebugWriter sending each line as a log response.
// Lines longer than a block are cut.
func LogWriter(reg *CommandRegistry) DebugWriter {
	return func(msg string) {
		if len(msg) > maxLogMessage {
			msg = msg[:maxLogMessage]
		}
		reg.SendResponse("log", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQString(output, msg)
		})
	}
}

// one byte of command ID and up to two of length
const maxLogMessage = protocol.MessageLengthMax - protocol.MessageLengthMin - 3
