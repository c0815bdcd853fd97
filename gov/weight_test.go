package gov

import (
	"math"
	"testing"
)

func TestIsqrt(t *testing.T) {
	cases := []struct {
		in   uint64
		want uint64
	}{
		{0, 0},
		{1, 1},
		{2, 1},
		{3, 1},
		{4, 2},
		{99, 9},
		{100, 10},
		{101, 10},
		{10_000, 100},
		{400, 20},
		{math.MaxUint64, 4294967295},
	}

	for _, tc := range cases {
		if got := Isqrt(tc.in); got != tc.want {
			t.Errorf("Isqrt(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestIsqrtFloorProperty(t *testing.T) {
	for _, v := range []uint64{5, 17, 1 << 20, 1<<40 + 12345, 999_999_999_999} {
		r := Isqrt(v)
		if r*r > v {
			t.Errorf("Isqrt(%d) = %d overshoots", v, r)
		}
		if (r+1)*(r+1) <= v {
			t.Errorf("Isqrt(%d) = %d undershoots", v, r)
		}
	}
}

func TestModeWeights(t *testing.T) {
	tokenWeighted := VotingMode{Kind: ModeTokenWeighted}
	quadratic := VotingMode{Kind: ModeQuadratic}
	dual := VotingMode{Kind: ModeDualChamber, CapitalThreshold: 50, CommunityThreshold: 50}

	if cap, com := ModeWeights(1000, tokenWeighted); cap != 1000 || com != 1000 {
		t.Errorf("token-weighted weights = (%d, %d), want (1000, 1000)", cap, com)
	}

	if cap, com := ModeWeights(10_000, quadratic); cap != 10_000 || com != 100 {
		t.Errorf("quadratic weights = (%d, %d), want (10000, 100)", cap, com)
	}

	if cap, com := ModeWeights(400, dual); cap != 400 || com != 20 {
		t.Errorf("dual-chamber weights = (%d, %d), want (400, 20)", cap, com)
	}
}

func TestCheckedAddOverflow(t *testing.T) {
	if _, err := checkedAdd(math.MaxUint64, 1); err != ErrArithmeticOverflow {
		t.Fatalf("expected ArithmeticOverflow, got %v", err)
	}

	sum, err := checkedAdd(math.MaxUint64-1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != math.MaxUint64 {
		t.Fatalf("expected max, got %d", sum)
	}
}

func TestCheckedMulOverflow(t *testing.T) {
	if _, err := checkedMul(math.MaxUint64, 2); err != ErrArithmeticOverflow {
		t.Fatalf("expected ArithmeticOverflow, got %v", err)
	}

	if v, err := checkedMul(0, math.MaxUint64); err != nil || v != 0 {
		t.Fatalf("zero multiplication should never overflow, got (%d, %v)", v, err)
	}
}
