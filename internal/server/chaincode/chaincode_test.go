package chaincode

import (
	"math"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for index := uint8(0); index <= MaxIndex; index++ {
		for _, fast := range []bool{false, true} {
			for steps := 1; steps <= MaxSteps; steps++ {
				b := Encode(index, fast, steps)
				gi, gf, gs := Decode(b)
				if gi != index || gf != fast || gs != steps {
					t.Fatalf("Decode(Encode(%d,%v,%d)) = (%d,%v,%d)", index, fast, steps, gi, gf, gs)
				}
			}
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	// fast, 8 steps, index 15 -> every bit set.
	if b := Encode(15, true, 8); b != 0xFF {
		t.Errorf("Encode(15,true,8) = 0x%02X, want 0xFF", b)
	}
	// slow, 1 step, no turn -> zero byte.
	if b := Encode(0, false, 1); b != 0x00 {
		t.Errorf("Encode(0,false,1) = 0x%02X, want 0x00", b)
	}
	if b := Encode(3, false, 2); b != 0x13 {
		t.Errorf("Encode(3,false,2) = 0x%02X, want 0x13", b)
	}
}

func TestEncodePanicsOutsideDomain(t *testing.T) {
	tests := []struct {
		name  string
		index uint8
		steps int
	}{
		{"index too large", 16, 1},
		{"zero steps", 0, 0},
		{"nine steps", 0, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("Encode(%d,false,%d) did not panic", tt.index, tt.steps)
				}
			}()
			Encode(tt.index, false, tt.steps)
		})
	}
}

func TestQuantizeZeroIsZero(t *testing.T) {
	for _, a := range []float64{0, 1, -2.5, math.Pi, -math.Pi + 1e-9} {
		if got := Quantize(a, a, 0.1); got != 0 {
			t.Errorf("Quantize(%v,%v) = %d, want 0", a, a, got)
		}
	}
	if Dequantize(0, 0.1) != 0 {
		t.Error("Dequantize(0) should be exactly zero")
	}
}

func TestQuantizeWithinResolution(t *testing.T) {
	const maxDelta = 0.2
	for old := -3.0; old <= 3.0; old += 0.37 {
		for turn := -0.5; turn <= 0.5; turn += 0.013 {
			index := Quantize(old+turn, old, maxDelta)
			if index > MaxIndex {
				t.Fatalf("index %d out of range", index)
			}
			clamped := math.Max(-maxDelta, math.Min(maxDelta, turn))
			got := Dequantize(index, maxDelta)
			if math.Abs(got-clamped) > Resolution(maxDelta)/2+1e-9 {
				t.Fatalf("turn %.3f from %.2f: dequantized %.4f, clamped %.4f", turn, old, got, clamped)
			}
		}
	}
}

func TestQuantizeSignInLowBit(t *testing.T) {
	left := Quantize(0.1, 0, 0.1)
	right := Quantize(-0.1, 0, 0.1)
	if left != 14 {
		t.Errorf("full positive turn = %d, want 14", left)
	}
	if right != 15 {
		t.Errorf("full negative turn = %d, want 15", right)
	}
	if d := Dequantize(right, 0.1); math.Abs(d+0.1) > 1e-12 {
		t.Errorf("Dequantize(15) = %v, want -0.1", d)
	}
}

func TestQuantizeClampsAcrossSeam(t *testing.T) {
	// A large turn across the +-pi seam is clamped, not wrapped the long way.
	index := Quantize(-math.Pi+0.05, math.Pi-0.05, 0.02)
	if index != 14 {
		t.Errorf("Quantize across seam = %d, want 14 (full positive)", index)
	}
}

func TestWithSteps(t *testing.T) {
	b := Encode(5, true, 3)
	b = WithSteps(b, 7)
	index, fast, steps := Decode(b)
	if index != 5 || !fast || steps != 7 {
		t.Errorf("WithSteps = (%d,%v,%d), want (5,true,7)", index, fast, steps)
	}
}
