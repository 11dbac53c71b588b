package utils

type Index []int

func NewIndex(N int) (I Index) {
	return make(Index, N)
}

func NewRange(rmin, rmax int) (r Index) {
	var (
		size = rmax - rmin + 1 // INCLUSIVE RANGE
	)
	r = make(Index, size)
	for i := range r {
		r[i] = i + rmin
	}
	return
}

// IsSortedStrict reports whether the index is strictly increasing, the
// invariant required of constrained DOF sets.
func (I Index) IsSortedStrict() bool {
	for i := 1; i < len(I); i++ {
		if I[i] <= I[i-1] {
			return false
		}
	}
	return true
}

// Contains performs a binary search over a sorted index.
func (I Index) Contains(val int) bool {
	lo, hi := 0, len(I)
	for lo < hi {
		mid := (lo + hi) / 2
		if I[mid] < val {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo < len(I) && I[lo] == val
}
