// Package money provides integer arithmetic helpers for monetary values.
// All amounts are int64 minor units; percentage math never touches floats.
package money

// Percent applies a whole-number percentage to base rounding half up.
func Percent(base, percent int64) int64 {
	if base <= 0 || percent <= 0 {
		return 0
	}
	return (base*percent + 50) / 100
}

// PercentFloor applies a percentage truncating the remainder.
func PercentFloor(base, percent int64) int64 {
	if base <= 0 || percent <= 0 {
		return 0
	}
	return base * percent / 100
}

// PercentCeil applies a percentage rounding any remainder up.
func PercentCeil(base, percent int64) int64 {
	if base <= 0 || percent <= 0 {
		return 0
	}
	return (base*percent + 99) / 100
}

// DivFloor returns a/b rounded toward zero. b must be positive.
func DivFloor(a, b int64) int64 {
	if b <= 0 {
		return 0
	}
	return a / b
}

// DivCeil returns a/b rounded away from zero for positive operands.
func DivCeil(a, b int64) int64 {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Min returns the smaller of a and b.
func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
