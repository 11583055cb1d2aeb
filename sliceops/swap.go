package sliceops

// SwapBuf returns a reversed copy of in.
func SwapBuf(in []byte) []byte {
	a := make([]byte, 0, len(in))
	a = append(a, in...)
	for i := len(a)/2 - 1; i >= 0; i-- {
		opp := len(a) - 1 - i
		a[i], a[opp] = a[opp], a[i]
	}

	return a
}

// Swap exchanges s[i] and s[j] in place.
func Swap[T any](s []T, i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Remove shifts s[i+1:n] down by one, where n is the number of live
// entries at the front of s, and returns the new live count. s[n-1] is
// left as it was; it is past the live count.
func Remove[T any](s []T, n, i int) int {
	if i < 0 || i >= n || n > len(s) {
		return n
	}

	copy(s[i:n-1], s[i+1:n])
	return n - 1
}

// Bubble moves s[i] to index 0 with adjacent swaps, keeping the relative
// order of the other entries. It calls moved(from, to) after each swap.
func Bubble[T any](s []T, i int, moved func(from, to int)) {
	for ; i > 0; i-- {
		Swap(s, i, i-1)
		if moved != nil {
			moved(i, i-1)
		}
	}
}
