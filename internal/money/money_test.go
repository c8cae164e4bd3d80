package money

import "testing"

func TestPercentRounding(t *testing.T) {
	cases := []struct {
		base, percent, want int64
	}{
		{1000, 10, 100},
		{999, 10, 100},  // 99.9 rounds up
		{994, 10, 99},   // 99.4 rounds down
		{1, 50, 1},      // 0.5 rounds up
		{0, 10, 0},
		{1000, 0, 0},
	}
	for _, c := range cases {
		if got := Percent(c.base, c.percent); got != c.want {
			t.Fatalf("Percent(%d, %d) = %d, want %d", c.base, c.percent, got, c.want)
		}
	}
}

func TestPercentCeilBound(t *testing.T) {
	for base := int64(1); base < 500; base++ {
		if Percent(base, 13) > PercentCeil(base, 13) {
			t.Fatalf("half-up rounding exceeded ceiling for base %d", base)
		}
	}
}

func TestDivCeil(t *testing.T) {
	if got := DivCeil(10, 3); got != 4 {
		t.Fatalf("DivCeil(10,3) = %d, want 4", got)
	}
	if got := DivCeil(9, 3); got != 3 {
		t.Fatalf("DivCeil(9,3) = %d, want 3", got)
	}
	if got := DivCeil(5, 0); got != 0 {
		t.Fatalf("DivCeil with zero divisor = %d, want 0", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(-5, 0, 10); got != 0 {
		t.Fatalf("Clamp below = %d", got)
	}
	if got := Clamp(50, 0, 10); got != 10 {
		t.Fatalf("Clamp above = %d", got)
	}
	if got := Clamp(7, 0, 10); got != 7 {
		t.Fatalf("Clamp inside = %d", got)
	}
}
