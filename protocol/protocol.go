// Package protocol implements the framed link between the motion station
// and its host: VLQ argument encoding, CRC16 checked blocks, and the
// buffers both sides stage bytes in.
package protocol

// Version is reported in the identify dictionary.
const Version = "0.3.0"

// Block layout: len, seq, payload..., crc_hi, crc_lo, sync.
const (
	MessageMax         = 256 // scratch output capacity
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// nextSeq returns the sequence byte following seq.
func nextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
