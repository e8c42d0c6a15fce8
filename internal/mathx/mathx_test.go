package mathx

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-3, 0, 10, 0},
		{300, 0, 255, 255},
		{5, 10, 0, 5},
	}

	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestMap(t *testing.T) {
	if got := Map(0, 0, 83, -32, 32); got != -32 {
		t.Errorf("Map start = %d, want -32", got)
	}
	if got := Map(83, 0, 83, -32, 32); got != 32 {
		t.Errorf("Map end = %d, want 32", got)
	}
	if got := Map(5, 3, 3, 7, 9); got != 7 {
		t.Errorf("Map with empty input range = %d, want 7", got)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		v, want float64
	}{
		{5, 5},
		{10.5, 0.5},
		{-0.25, 9.75},
		{10, 0},
		{-20.5, 9.5},
	}

	for _, tt := range tests {
		if got := Wrap(tt.v, 0, 10); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Wrap(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestFrac(t *testing.T) {
	if got := Frac(2.25); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("Frac(2.25) = %v", got)
	}
	if got := Frac(-0.25); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("Frac(-0.25) = %v", got)
	}
}
