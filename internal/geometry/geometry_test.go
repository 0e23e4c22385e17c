package geometry

import (
	"errors"
	"math"
	"testing"
)

func TestApplyIdentity(t *testing.T) {
	id := Identity()
	for _, p := range []Point2D{{0, 0}, {1, 2}, {-37.5, 812.25}, {1e6, -1e-6}} {
		got, err := id.Apply(p)
		if err != nil {
			t.Fatalf("Apply(%v) error = %v", p, err)
		}
		if got != p {
			t.Errorf("Apply(%v) = %v, want exact %v", p, got, p)
		}
	}
}

func TestApplyPerspectiveDivide(t *testing.T) {
	// w = 0.001*u + 1
	tr := Transform{M: [3][3]float64{
		{2, 0, 10},
		{0, 3, -5},
		{0.001, 0, 1},
	}}
	got, err := tr.Apply(Pt(1000, 100))
	if err != nil {
		t.Fatalf("Apply error = %v", err)
	}
	want := Pt((2000.0+10)/2, (300.0-5)/2)
	if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 {
		t.Errorf("Apply = %v, want %v", got, want)
	}
}

func TestApplyDegenerate(t *testing.T) {
	tr := Transform{M: [3][3]float64{
		{1, 0, 0},
		{0, 1, 0},
		{1, 0, -5},
	}}
	if _, err := tr.Apply(Pt(5, 7)); !errors.Is(err, ErrPerspectiveDegenerate) {
		t.Fatalf("Apply error = %v, want ErrPerspectiveDegenerate", err)
	}
	if _, err := tr.Apply(Pt(6, 7)); err != nil {
		t.Fatalf("Apply off the horizon: unexpected error %v", err)
	}
}

func TestValuesRoundTrip(t *testing.T) {
	v := [9]float64{1, 2, 3, 4, 5, 6, 7, 8, 1}
	tr := FromValues(v)
	if tr.M[1][2] != 6 || tr.M[2][0] != 7 {
		t.Fatalf("FromValues not row-major: %v", tr)
	}
	if tr.Values() != v {
		t.Errorf("Values() = %v, want %v", tr.Values(), v)
	}
}
