package protocol

// crcInit seeds every block checksum.
const crcInit = 0xFFFF

// CRC16 returns the block checksum of data: CCITT polynomial, reflected,
// no final xor (CRC-16/MCRF4XX).
func CRC16(data []byte) uint16 {
	return CRC16Update(crcInit, data)
}

// CRC16Update folds data into a running checksum, so a block can be
// checked as it arrives in pieces.
func CRC16Update(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc = crcByte(crc, b)
	}
	return crc
}

func crcByte(crc uint16, b byte) uint16 {
	x := b ^ byte(crc)
	x ^= x << 4
	w := uint16(x)
	return crc>>8 ^ w<<8 ^ w<<3 ^ w>>4
}
