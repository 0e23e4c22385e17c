package homography

import (
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/paintbrush/internal/geometry"
)

// knownTransform is a camera looking slightly down and across a 1280x800 display.
var knownTransform = geometry.Transform{M: [3][3]float64{
	{1.9, 0.12, -40},
	{-0.08, 1.75, -210},
	{0.00031, -0.00022, 1},
}}

func mustApply(t *testing.T, tr geometry.Transform, p geometry.Point2D) geometry.Point2D {
	t.Helper()
	q, err := tr.Apply(p)
	require.NoError(t, err)
	return q
}

func assertTransformNear(t *testing.T, got, want geometry.Transform, tol float64) {
	t.Helper()
	gv, wv := got.Values(), want.Values()
	for i := range gv {
		scale := math.Max(1, math.Abs(wv[i]))
		assert.InDeltaf(t, wv[i], gv[i], tol*scale, "element %d", i)
	}
}

func TestSolveExactRecovery(t *testing.T) {
	sensors := []geometry.Point2D{{X: 15, Y: 140}, {X: 565, Y: 137}, {X: 29, Y: 447}, {X: 560, Y: 432}}
	var s Store
	for _, p := range sensors {
		s.Add(mustApply(t, knownTransform, p), p)
	}

	got, err := Solve(&s)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.M[2][2])
	assertTransformNear(t, got, knownTransform, 1e-6)

	rms, err := ReprojectionError(got, s.Pairs())
	require.NoError(t, err)
	assert.Less(t, rms, 1e-6)
}

func TestSolveInsufficientData(t *testing.T) {
	var s Store
	for i := range 3 {
		_, err := Solve(&s)
		require.ErrorIs(t, err, ErrInsufficientData)
		s.Add(geometry.Pt(float64(i), 0), geometry.Pt(0, float64(i)))
	}
	_, err := Solve(&s)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestSolveDegenerateDoesNotFail(t *testing.T) {
	// Four identical points: rank deficient, result is unspecified but the
	// solve must still return a transform.
	var s Store
	for range 4 {
		s.Add(geometry.Pt(10, 10), geometry.Pt(5, 5))
	}
	got, err := Solve(&s)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.M[2][2])
}

func heldOutError(t *testing.T, tr geometry.Transform) float64 {
	t.Helper()
	var sum float64
	var n int
	for u := 40.0; u <= 600; u += 80 {
		for v := 40.0; v <= 440; v += 80 {
			p := geometry.Pt(u, v)
			sum += mustApply(t, tr, p).Distance(mustApply(t, knownTransform, p))
			n++
		}
	}
	return sum / float64(n)
}

func TestSolveLeastSquaresConsistency(t *testing.T) {
	const (
		noise  = 0.5
		trials = 25
	)
	rng := rand.New(rand.NewPCG(7, 11))

	meanErr := func(n int) float64 {
		var total float64
		for range trials {
			var s Store
			for range n {
				p := geometry.Pt(rng.Float64()*640, rng.Float64()*480)
				q := mustApply(t, knownTransform, p)
				q.X += rng.NormFloat64() * noise
				q.Y += rng.NormFloat64() * noise
				s.Add(q, p)
			}
			tr, err := Solve(&s)
			require.NoError(t, err)
			total += heldOutError(t, tr)
		}
		return total / trials
	}

	e8, e32, e128 := meanErr(8), meanErr(32), meanErr(128)
	t.Logf("held-out error: n=8 %.3f, n=32 %.3f, n=128 %.3f", e8, e32, e128)
	assert.LessOrEqual(t, e32, e8*1.05)
	assert.LessOrEqual(t, e128, e32*1.05)
	assert.Less(t, e128, 3*noise)
}

func TestFixedCornerSequence(t *testing.T) {
	f := NewFixedCorner(1280, 800)
	want := []geometry.Point2D{{X: 0, Y: 0}, {X: 1280, Y: 0}, {X: 0, Y: 800}, {X: 1280, Y: 800}}
	for i, w := range want {
		p, ok := f.Next()
		require.Truef(t, ok, "call %d returned no point", i)
		assert.Equal(t, w, p)
	}
	_, ok := f.Next()
	assert.False(t, ok, "fifth call should return no point")
}

func TestFixedCornerCapsAtFour(t *testing.T) {
	f := NewFixedCorner(100, 100)
	for i := range 3 {
		assert.Truef(t, f.Add(geometry.Pt(float64(i), 0), geometry.Pt(0, 0)), "pair %d", i)
	}
	assert.False(t, f.Add(geometry.Pt(3, 0), geometry.Pt(0, 0)))
	assert.False(t, f.Add(geometry.Pt(99, 99), geometry.Pt(1, 1)))
	pairs := f.Pairs()
	require.Len(t, pairs, 4)
	assert.Equal(t, geometry.Pt(3, 0), pairs[3].Target)
}

func TestFixedCornerSolvesCorners(t *testing.T) {
	f := NewFixedCorner(1280, 800)
	inv := geometry.Transform{M: [3][3]float64{
		{0.4, 0.02, 20},
		{-0.01, 0.45, 120},
		{-0.0001, 0.00005, 1},
	}}
	for {
		target, ok := f.Next()
		if !ok {
			break
		}
		// sensor point is where the camera sees the display corner
		if !f.Add(target, mustApply(t, inv, target)) {
			break
		}
	}
	tr, err := f.Solve()
	require.NoError(t, err)
	for _, c := range f.Pairs() {
		got := mustApply(t, tr, c.Sensor)
		assert.InDelta(t, c.Target.X, got.X, 1e-6)
		assert.InDelta(t, c.Target.Y, got.Y, 1e-6)
	}
}

func TestRandomScatter(t *testing.T) {
	r := NewRandomScatter(64, 48, rand.New(rand.NewPCG(1, 2)))
	sawMaxX, sawMaxY := false, false
	for range 5000 {
		p, ok := r.Next()
		require.True(t, ok)
		require.GreaterOrEqual(t, p.X, 0.0)
		require.LessOrEqual(t, p.X, 64.0)
		require.GreaterOrEqual(t, p.Y, 0.0)
		require.LessOrEqual(t, p.Y, 48.0)
		require.Equal(t, math.Trunc(p.X), p.X)
		sawMaxX = sawMaxX || p.X == 64
		sawMaxY = sawMaxY || p.Y == 48
	}
	assert.True(t, sawMaxX && sawMaxY, "upper bounds are inclusive")

	for i := range 6 {
		more := r.Add(geometry.Pt(float64(i), 0), geometry.Pt(0, float64(i)))
		assert.Equal(t, i < 3, more, "pair %d", i)
	}
	assert.Len(t, r.Pairs(), 6)
}

func TestNewStrategy(t *testing.T) {
	s, ok := New("", 10, 10)
	require.True(t, ok)
	assert.Equal(t, StrategyCorners, s.Name())
	s, ok = New(StrategyScatter, 10, 10)
	require.True(t, ok)
	assert.Equal(t, StrategyScatter, s.Name())
	_, ok = New("ransac", 10, 10)
	assert.False(t, ok)

	for _, size := range [][2]int{{-1, 10}, {10, -1}, {0, 10}, {10, 0}} {
		for _, name := range []string{StrategyCorners, StrategyScatter} {
			s, ok := New(name, size[0], size[1])
			assert.False(t, ok, "%s %dx%d", name, size[0], size[1])
			assert.Nil(t, s)
		}
	}
}

func TestTransformPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal", "homography.json")
	require.NoError(t, SaveTransform(path, knownTransform))
	got, err := LoadTransform(path)
	require.NoError(t, err)
	assert.Equal(t, knownTransform, got)

	_, err = LoadTransform(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
