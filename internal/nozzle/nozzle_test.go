package nozzle

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/paintbrush/internal/geometry"
	"github.com/banshee-data/paintbrush/internal/raster"
)

func solid(w, h int, v uint8) *raster.Raster {
	r := raster.New(w, h)
	r.Fill(r.Bounds(), v)
	return r
}

func TestQuantizeBoundaries(t *testing.T) {
	cases := []struct {
		mean float64
		want uint8
	}{
		{255, 0},
		{300, 0},
		{255 - 47.9, 0},
		{255 - 48, 1},
		{255 - 96, 2},
		{255 - 144, 3},
		{255 - 4*48, 4},
		{63, 4},
		{10, 4},
		{0, 4},
	}
	for _, c := range cases {
		if got := Quantize(c.mean); got != c.want {
			t.Errorf("Quantize(%v) = %d, want %d", c.mean, got, c.want)
		}
	}
}

func TestQuantizeMonotonic(t *testing.T) {
	prev := Quantize(255)
	for m := 255.0; m >= 0; m -= 0.25 {
		l := Quantize(m)
		if l < prev {
			t.Fatalf("Quantize(%v) = %d dropped below %d", m, l, prev)
		}
		if l > MaxLevel {
			t.Fatalf("Quantize(%v) = %d out of range", m, l)
		}
		prev = l
	}
}

func TestLiftedBrush(t *testing.T) {
	c := NewController(solid(50, 50, 0))

	c.UpdatePosition(geometry.Pt(10, 10), true)
	c.UpdatePosition(geometry.Pt(0, 0), false)
	if _, ok := c.Position(); ok {
		t.Error("missing point should lift the brush")
	}
	if b := c.Compute(); !b.Zero() {
		t.Errorf("lifted Compute = %v, want zero", b)
	}

	for _, p := range []geometry.Point2D{{X: -1, Y: 10}, {X: 10, Y: -0.5}, {X: 50, Y: 10}, {X: 10, Y: 50}, {X: 1e9, Y: 1e9}} {
		c.UpdatePosition(p, true)
		if _, ok := c.Position(); ok {
			t.Errorf("off-canvas %v should lift the brush", p)
		}
		if b := c.Compute(); !b.Zero() {
			t.Errorf("off-canvas %v Compute = %v, want zero", p, b)
		}
	}
}

func TestVelocity(t *testing.T) {
	c := NewController(raster.New(100, 100))
	c.UpdatePosition(geometry.Pt(10, 5), true)
	if c.Velocity() != 0 {
		t.Errorf("first point dx = %v, want 0", c.Velocity())
	}
	c.UpdatePosition(geometry.Pt(14.5, 5), true)
	if c.Velocity() != 4.5 {
		t.Errorf("dx = %v, want 4.5", c.Velocity())
	}
	c.UpdatePosition(geometry.Point2D{}, false)
	if c.Velocity() != 4.5 {
		t.Errorf("lifting changed dx to %v", c.Velocity())
	}
	c.UpdatePosition(geometry.Pt(90, 5), true)
	if c.Velocity() != 0 {
		t.Errorf("first point after lift dx = %v, want 0", c.Velocity())
	}
}

func TestComputeLevelsAndBlanking(t *testing.T) {
	canvas := raster.New(40, 40)
	// rows 10..21 get progressively darker, 20 units per row
	for i := range Count {
		canvas.Fill(image.Rect(0, 10+i, 40, 11+i), uint8(255-20*i))
	}

	c := NewController(canvas)
	if c.Canvas() != canvas {
		t.Fatal("Canvas does not return the painted raster")
	}
	c.UpdatePosition(geometry.Pt(5, 10), true)
	c.UpdatePosition(geometry.Pt(8.2, 10.3), true)

	got := c.Compute()
	var want Bank
	for i := range Count {
		want[i] = Quantize(float64(255 - 20*i))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compute mismatch (-want +got):\n%s", diff)
	}

	// width = round(3.2) = 3 columns from x = 8
	for y := 10; y < 22; y++ {
		for x := 0; x < 40; x++ {
			painted := x >= 8 && x < 11
			v := canvas.At(x, y)
			if painted && v != raster.Blank {
				t.Fatalf("(%d,%d) = %d, want blanked", x, y, v)
			}
			if !painted && y > 10 && v == raster.Blank {
				t.Fatalf("(%d,%d) blanked outside the window", x, y)
			}
		}
	}
}

func TestComputeIsNotReapplied(t *testing.T) {
	c := NewController(solid(30, 30, 0))
	c.UpdatePosition(geometry.Pt(3, 3), true)
	c.UpdatePosition(geometry.Pt(5, 3), true)

	first := c.Compute()
	if first.Zero() {
		t.Fatal("first Compute over black artwork should fire")
	}
	for i, l := range first {
		if l != MaxLevel {
			t.Errorf("nozzle %d = %d, want %d", i, l, MaxLevel)
		}
	}
	if second := c.Compute(); !second.Zero() {
		t.Errorf("second Compute = %v, want zero", second)
	}
}

func TestLeftwardStrokeSuppressed(t *testing.T) {
	canvas := solid(30, 30, 0)
	c := NewController(canvas)
	c.UpdatePosition(geometry.Pt(20, 5), true)
	c.UpdatePosition(geometry.Pt(12, 5), true)
	if c.Velocity() >= 0 {
		t.Fatalf("dx = %v, want negative", c.Velocity())
	}
	if b := c.Compute(); !b.Zero() {
		t.Errorf("leftward Compute = %v, want zero", b)
	}
	if canvas.At(12, 5) != 0 {
		t.Error("leftward stroke must not blank the canvas")
	}
}

func TestStationaryBrushPaintsOneColumn(t *testing.T) {
	canvas := solid(10, 20, 100)
	c := NewController(canvas)
	c.UpdatePosition(geometry.Pt(4, 0), true)

	b := c.Compute()
	for i, l := range b {
		if l != 3 {
			t.Errorf("nozzle %d = %d, want 3", i, l)
		}
	}
	if canvas.At(4, 0) != raster.Blank || canvas.At(3, 0) != 100 || canvas.At(5, 0) != 100 {
		t.Error("dx == 0 should paint exactly one column")
	}
}

func TestComputeStopsAtBottomEdge(t *testing.T) {
	canvas := solid(10, 20, 0)
	c := NewController(canvas)
	c.UpdatePosition(geometry.Pt(2, 15), true)

	b := c.Compute()
	for i := range Count {
		want := uint8(0)
		if i < 5 {
			want = MaxLevel
		}
		if b[i] != want {
			t.Errorf("nozzle %d = %d, want %d", i, b[i], want)
		}
	}
	for y := 15; y < 20; y++ {
		if canvas.At(2, y) != raster.Blank {
			t.Errorf("row %d not blanked", y)
		}
	}
	if canvas.At(2, 14) != 0 {
		t.Error("row above the window was blanked")
	}
}

func TestWindowClippedAtRightEdge(t *testing.T) {
	canvas := solid(10, 12, 0)
	c := NewController(canvas)
	c.UpdatePosition(geometry.Pt(1, 0), true)
	c.UpdatePosition(geometry.Pt(9.4, 0), true)

	b := c.Compute()
	if b[0] != MaxLevel {
		t.Errorf("nozzle 0 = %d, want %d", b[0], MaxLevel)
	}
	if canvas.At(9, 0) != raster.Blank {
		t.Error("last column should be blanked")
	}
}
