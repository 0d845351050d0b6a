package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// SatAdd adds a signed adjustment to an unsigned value, saturating at zero.
func SatAdd[U constraints.Unsigned, S constraints.Signed](v U, adj S) U {
	if adj >= 0 {
		return v + U(adj)
	}
	d := U(-adj)
	if d > v {
		return 0
	}
	return v - d
}
