package posindex

import "sort"

// Search returns the smallest index i in [0,n) for which less(i) is true, or
// n if there is none, assuming less is monotone (once true, stays true).
func Search(n int, less func(i int) bool) int {
	return sort.Search(n, less)
}

// Expsearch performs exponential search starting at idx: it probes idx, then
// idx+1, idx+3, idx+7, ..., until less() holds or the end of the range is
// reached, then finishes with a binary search over the bracketed range. It
// is the preferred probe when idx is usually already close to the answer, as
// it is when a caller re-probes after the frontier has moved forward by a
// small amount.
func Expsearch(n, idx int, less func(i int) bool) int {
	if idx < 0 {
		idx = 0
	}
	startIdx, endIdx := idx, n
	incr := 1
	for idx < endIdx {
		if less(idx) {
			endIdx = idx
			break
		}
		startIdx = idx + 1
		idx += incr
		incr *= 2
	}
	for startIdx < endIdx {
		mid := int(uint(startIdx+endIdx) >> 1)
		if less(mid) {
			endIdx = mid
		} else {
			startIdx = mid + 1
		}
	}
	return startIdx
}
