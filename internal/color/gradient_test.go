package color

import "testing"

func TestGradientEndpointsExact(t *testing.T) {
	g := Gradient{
		Start: HSV{H: 224, S: 10, V: 250},
		End:   HSV{H: 32, S: 240, V: 5},
	}

	for _, n := range []int{2, 7, 84, 255} {
		if got := g.At(0, n); got != g.Start {
			t.Errorf("n=%d: index 0 = %+v, want %+v", n, got, g.Start)
		}
		if got := g.At(n-1, n); got != g.End {
			t.Errorf("n=%d: last index = %+v, want %+v", n, got, g.End)
		}
	}
}

func TestGradientCrossesZeroTheShortWay(t *testing.T) {
	g := Gradient{
		Start: HSV{H: 224, S: 255, V: 255},
		End:   HSV{H: 32, S: 255, V: 255},
	}

	const n = 84
	mid := g.At(n/2, n).H

	dist := int(mid)
	if dist > 128 {
		dist = 256 - dist
	}
	if dist > 4 {
		t.Errorf("midpoint hue %d is not near 0", mid)
	}
}

func TestGradientForwardHue(t *testing.T) {
	g := Gradient{
		Start: HSV{H: 0, S: 255, V: 255},
		End:   HSV{H: 100, S: 255, V: 255},
	}

	prev := g.At(0, 11).H
	for i := 1; i < 11; i++ {
		h := g.At(i, 11).H
		if h < prev {
			t.Fatalf("hue decreased at %d: %d < %d", i, h, prev)
		}
		prev = h
	}
}

func TestGradientSinglePixel(t *testing.T) {
	g := Gradient{Start: HSV{H: 5}, End: HSV{H: 9}}
	if got := g.At(0, 1); got != g.Start {
		t.Errorf("single pixel gradient = %+v, want start", got)
	}
}

func TestGradientFill(t *testing.T) {
	g := Gradient{Start: HSV{H: 0, S: 255, V: 255}, End: HSV{H: 160, S: 255, V: 255}}
	out := make([]RGBW, 10)
	g.Fill(out, NoCorrection)

	if out[0] != (RGBW{R: 255}) {
		t.Errorf("first pixel = %+v, want pure red", out[0])
	}
	if out[9] != (RGBW{B: 255}) {
		t.Errorf("last pixel = %+v, want pure blue", out[9])
	}
}
