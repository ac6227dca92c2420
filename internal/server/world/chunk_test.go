package world

import (
	"bytes"
	"testing"

	"github.com/OCharnyshevich/snake-server/internal/server/geom"
)

func TestFoodCodePacksSizeAndColor(t *testing.T) {
	f := Food{Size: 3, Color: 63}
	if got := f.Code(); got != 0xFF {
		t.Errorf("Code() = 0x%02X, want 0xFF", got)
	}
	f = Food{Size: 1, Color: 5}
	if got := f.Code(); got != 0x45 {
		t.Errorf("Code() = 0x%02X, want 0x45", got)
	}
}

func TestFoodQuantizationRoundTrip(t *testing.T) {
	g := NewGrid(512, 2, 2)
	c := g.At(1, 1)

	for _, p := range []geom.Vector{
		geom.Vec(512, 512),
		geom.Vec(700.3, 900.9),
		geom.Vec(1023.99, 1023.99),
	} {
		qx, qy := c.QuantizeFood(p)
		back := c.FoodPos(Food{QX: qx, QY: qy})
		cell := c.Box.Width() / foodQuantum
		if d := back.Dist2(p); d > 2*cell*cell {
			t.Errorf("FoodPos(Quantize(%v)) = %v, off by %v", p, back, d)
		}
		if !c.Box.Contains(back) {
			t.Errorf("FoodPos %v escaped chunk box %v", back, c.Box)
		}
	}
}

func TestFoodVersionBumpsOnChange(t *testing.T) {
	c := NewGrid(100, 1, 1).At(0, 0)
	v0 := c.FoodVersion()

	c.AddFood(Food{QX: 1, QY: 2, Size: 0, Color: 7})
	v1 := c.FoodVersion()
	if v1 == v0 {
		t.Fatal("version did not change after AddFood")
	}

	c.RemoveFood(0)
	if c.FoodVersion() == v1 {
		t.Fatal("version did not change after RemoveFood")
	}
	if len(c.Food()) != 0 {
		t.Fatalf("food len = %d, want 0", len(c.Food()))
	}
}

func TestEncodeFoodCachedByVersion(t *testing.T) {
	c := NewGrid(100, 1, 1).At(0, 0)
	if got := c.EncodeFood(); len(got) != 0 {
		t.Fatalf("empty chunk encoded to %d bytes", len(got))
	}

	c.AddFood(Food{QX: 10, QY: 20, Size: 2, Color: 1})
	c.AddFood(Food{QX: 30, QY: 40, Size: 0, Color: 9})
	first := c.EncodeFood()
	want := []byte{10, 20, 2<<6 | 1, 30, 40, 9}
	if !bytes.Equal(first, want) {
		t.Fatalf("EncodeFood() = %v, want %v", first, want)
	}

	second := c.EncodeFood()
	if &first[0] != &second[0] {
		t.Error("EncodeFood re-encoded an unchanged chunk")
	}

	c.RemoveFood(0)
	third := c.EncodeFood()
	if !bytes.Equal(third, []byte{30, 40, 9}) {
		t.Errorf("EncodeFood() after remove = %v", third)
	}
}
