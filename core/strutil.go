package core

// appendInt appends the decimal form of n without using strconv or fmt.
// Lightweight on TinyGo targets.
func appendInt(dst []byte, n int) []byte {
	if n == 0 {
		return append(dst, '0')
	}

	negative := n < 0
	u := uint64(n)
	if negative {
		u = uint64(-n)
	}

	// Build right to left
	var buf [20]byte
	pos := len(buf)
	for u > 0 {
		pos--
		buf[pos] = byte('0' + u%10)
		u /= 10
	}

	if negative {
		dst = append(dst, '-')
	}
	return append(dst, buf[pos:]...)
}

// itoa converts an integer to a string
func itoa(n int) string {
	var buf [21]byte
	return string(appendInt(buf[:0], n))
}
