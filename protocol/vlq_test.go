package protocol

import "testing"

func TestVLQRoundTripInt(t *testing.T) {
	values := []int32{0, 1, -1, 31, -32, 95, 96, -33, 127, -128, 1000, -1000,
		65535, -65535, 1 << 20, -(1 << 20), 1<<31 - 1, -1 << 31}

	for _, expected := range values {
		out := NewScratchOutput()
		EncodeVLQInt(out, expected)
		data := out.Result()

		decoded, err := DecodeVLQInt(&data)
		if err != nil {
			t.Errorf("Decode %d: %v", expected, err)
			continue
		}
		if decoded != expected {
			t.Errorf("Expected %d, got %d (encoded %v)", expected, decoded, out.Result())
		}
		if len(data) != 0 {
			t.Errorf("Expected all bytes consumed for %d, %d left", expected, len(data))
		}
	}
}

func TestVLQEncodedLengths(t *testing.T) {
	tests := []struct {
		value int32
		size  int
	}{
		{0, 1},
		{95, 1},
		{-32, 1},
		{96, 2},
		{-33, 2},
		{12287, 2},
		{12288, 3},
		{400000, 3},
		{2000000, 4},
		{1 << 30, 5},
	}

	for _, tc := range tests {
		out := NewScratchOutput()
		EncodeVLQInt(out, tc.value)
		if len(out.Result()) != tc.size {
			t.Errorf("Expected %d to encode in %d bytes, got %d", tc.value, tc.size, len(out.Result()))
		}
	}
}

func TestVLQUintLargeValues(t *testing.T) {
	for _, expected := range []uint32{0, 200, 65535, 400000, 0xFFFFFFFF} {
		out := NewScratchOutput()
		EncodeVLQUint(out, expected)
		data := out.Result()
		got, err := DecodeVLQUint(&data)
		if err != nil || got != expected {
			t.Errorf("Expected %d, got %d (err %v)", expected, got, err)
		}
	}
}

func TestVLQTruncated(t *testing.T) {
	data := []byte{0x81}
	if _, err := DecodeVLQInt(&data); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}

	empty := []byte{}
	if _, err := DecodeVLQUint(&empty); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall on empty input, got %v", err)
	}
}

func TestVLQBytesAndString(t *testing.T) {
	out := NewScratchOutput()
	EncodeVLQString(out, "pattern")
	EncodeVLQBytes(out, []byte{1, 2, 3})
	EncodeVLQBool(out, true)

	data := out.Result()
	s, err := DecodeVLQString(&data)
	if err != nil || s != "pattern" {
		t.Errorf("Expected \"pattern\", got %q (err %v)", s, err)
	}
	b, err := DecodeVLQBytes(&data)
	if err != nil || len(b) != 3 || b[2] != 3 {
		t.Errorf("Expected [1 2 3], got %v (err %v)", b, err)
	}
	on, err := DecodeVLQBool(&data)
	if err != nil || !on {
		t.Errorf("Expected true, got %v (err %v)", on, err)
	}
}

func TestVLQBytesLengthOverrun(t *testing.T) {
	data := []byte{10, 1, 2}
	if _, err := DecodeVLQBytes(&data); err != ErrInvalidVLQ {
		t.Errorf("Expected ErrInvalidVLQ, got %v", err)
	}
}

func TestCRC16KnownValues(t *testing.T) {
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("Expected 0xFFFF for empty input, got 0x%04x", got)
	}
	// CRC-16/MCRF4XX check value
	if got := CRC16([]byte("123456789")); got != 0x6F91 {
		t.Errorf("Expected 0x6F91, got 0x%04x", got)
	}
}
