package mathx

import "golang.org/x/exp/constraints"

// CeilDiv returns ceil(a/b) for positive integers. b == 0 yields 0.
func CeilDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// RoundDiv returns floor((a + b/2)/b), classic rounding for positives.
func RoundDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}

// MulDivRound returns round(a*b/c) with a 64-bit intermediate.
func MulDivRound[T constraints.Unsigned](a, b, c T) T {
	if c == 0 {
		return 0
	}
	return T(RoundDiv(uint64(a)*uint64(b), uint64(c)))
}

// UsToCycles converts microseconds to cycles of a clock running at hz:
// round(us * hz / 1e6).
func UsToCycles(us, hz uint32) uint32 {
	return MulDivRound(us, hz, 1_000_000)
}

// CyclesToUs converts cycles of a clock running at hz to microseconds,
// rounding up so a wait derived from it is never short.
func CyclesToUs(cycles, hz uint32) uint32 {
	if hz == 0 {
		return 0
	}
	return uint32(CeilDiv(uint64(cycles)*1_000_000, uint64(hz)))
}
