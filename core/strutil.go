package core

// itoa formats n without the fmt package, which is too heavy for the MCU.
func itoa(n int) string {
	if n < 0 {
		return "-" + utoa64(uint64(-int64(n)))
	}
	return utoa64(uint64(n))
}

// utoa formats an unsigned value.
func utoa(n uint32) string {
	return utoa64(uint64(n))
}

// Itoa and Utoa64 serve the packages linked into the firmware with core.
func Itoa(n int) string      { return itoa(n) }
func Utoa64(n uint64) string { return utoa64(n) }

func utoa64(n uint64) string {
	var buf [20]byte
	pos := len(buf)
	for {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return string(buf[pos:])
}

// valueToString converts a dictionary constant to its string form.
func valueToString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return itoa(val)
	case int32:
		return itoa(int(val))
	case int64:
		if val < 0 {
			return "-" + utoa64(uint64(-val))
		}
		return utoa64(uint64(val))
	case uint:
		return utoa64(uint64(val))
	case uint16:
		return utoa(uint32(val))
	case uint32:
		return utoa(val)
	case uint64:
		return utoa64(val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return ""
	}
}
