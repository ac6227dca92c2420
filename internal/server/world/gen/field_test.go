package gen

import "testing"

func TestFieldDeterministic(t *testing.T) {
	a := NewField(12345, 2048, 3)
	b := NewField(12345, 2048, 3)

	for i := range 200 {
		x, y := float64(i)*37.5, float64(i)*91.25
		if a.Density(x, y) != b.Density(x, y) {
			t.Fatalf("Density not deterministic at (%f, %f)", x, y)
		}
	}
}

func TestNoiseRange(t *testing.T) {
	f := NewField(42, 1, 1)

	for i := range 10000 {
		x := float64(i)*0.37 - 500
		y := float64(i)*0.53 - 500
		if v := f.Noise(x, y); v < -1 || v > 1 {
			t.Fatalf("Noise(%f, %f) = %f, out of [-1,1]", x, y, v)
		}
	}
}

func TestDensityRangeAndVariation(t *testing.T) {
	f := NewField(7, 1000, 3)

	lo, hi := 1.0, 0.0
	for i := range 5000 {
		x := float64(i%100) * 97
		y := float64(i/100) * 193
		d := f.Density(x, y)
		if d < 0 || d > 1 {
			t.Fatalf("Density(%f, %f) = %f, out of [0,1]", x, y, d)
		}
		lo, hi = min(lo, d), max(hi, d)
	}
	if hi-lo < 0.3 {
		t.Errorf("density spread %f..%f too flat", lo, hi)
	}
}

func TestSeedsDiffer(t *testing.T) {
	a := NewField(1, 500, 2)
	b := NewField(2, 500, 2)

	same := 0
	for i := range 100 {
		x, y := float64(i)*123, float64(i)*77
		if a.Density(x, y) == b.Density(x, y) {
			same++
		}
	}
	if same > 10 {
		t.Errorf("%d/100 samples identical across seeds", same)
	}
}

func TestFloor(t *testing.T) {
	cases := map[float64]int{0: 0, 1.5: 1, -0.5: -1, -2: -2, 2.999: 2}
	for in, want := range cases {
		if got := floor(in); got != want {
			t.Errorf("floor(%v) = %d, want %d", in, got, want)
		}
	}
}
