package core

// Resize returns a slice with the requested length, reusing buf capacity if
// possible. Elements beyond the previous length are zeroed, so reused
// capacity never leaks stale samples into a fresh block.
func Resize(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}

	oldLen := len(buf)
	if cap(buf) >= n {
		buf = buf[:n]
		for i := oldLen; i < n; i++ {
			buf[i] = 0
		}
		return buf
	}

	grown := make([]float64, n)
	copy(grown, buf)
	return grown
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// CopyInto copies src into dst and returns the number of copied elements.
func CopyInto(dst, src []float64) int {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	copy(dst[:n], src[:n])
	return n
}
