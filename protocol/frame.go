package protocol

// frameStatus is the outcome of inspecting the head of a byte stream.
type frameStatus uint8

const (
	frameIncomplete frameStatus = iota
	frameValid
	frameCorrupt
)

// scanFrame checks whether data starts with a complete, CRC-valid block.
// On frameValid it returns the block length.
func scanFrame(data []byte) (int, frameStatus) {
	if len(data) < MessageLengthMin {
		return 0, frameIncomplete
	}
	n := int(data[MessagePositionLen])
	if n < MessageLengthMin || n > MessageLengthMax {
		return 0, frameCorrupt
	}
	if data[MessagePositionSeq]&^MessageSeqMask != MessageDest {
		return 0, frameCorrupt
	}
	if len(data) < n {
		return 0, frameIncomplete
	}
	if data[n-MessageTrailerSync] != MessageValueSync {
		return 0, frameCorrupt
	}
	crc := uint16(data[n-MessageTrailerCRC])<<8 | uint16(data[n-MessageTrailerCRC+1])
	if CRC16(data[:n-MessageTrailerSize]) != crc {
		return 0, frameCorrupt
	}
	return n, frameValid
}

// skipToSync drops bytes up to and including the next sync byte. It
// reports false when no sync byte is present.
func skipToSync(data []byte) ([]byte, bool) {
	for i, b := range data {
		if b == MessageValueSync {
			return data[i+1:], true
		}
	}
	return nil, false
}

// encodeBlock appends one block with the given sequence byte. body may be
// nil for an ack.
func encodeBlock(output OutputBuffer, seq uint8, body func(OutputBuffer)) {
	start := output.CurPosition()
	output.Output([]byte{0, seq})
	if body != nil {
		body(output)
	}
	n := len(output.DataSince(start)) + MessageTrailerSize
	output.Update(start+MessagePositionLen, uint8(n))
	crc := CRC16(output.DataSince(start))
	output.Output([]byte{byte(crc >> 8), byte(crc), MessageValueSync})
}
