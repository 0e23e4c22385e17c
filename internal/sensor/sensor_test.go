package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/paintbrush/internal/geometry"
)

func TestScripted_ReplaysThenStops(t *testing.T) {
	s := NewScripted(FakeCorners...)

	for i, want := range FakeCorners {
		img, err := s.Update()
		require.NoError(t, err)
		require.NotNil(t, img)

		got, ok := s.Point()
		require.True(t, ok, "reading %d", i)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, s.Remaining())

	_, ok := s.Point()
	assert.False(t, ok)
}

func TestScripted_Loop(t *testing.T) {
	s := NewScripted(geometry.Pt(1, 2), geometry.Pt(3, 4))
	s.Loop = true

	var got []geometry.Point2D
	for range 5 {
		p, ok := s.Point()
		require.True(t, ok)
		got = append(got, p)
	}
	assert.Equal(t, []geometry.Point2D{
		geometry.Pt(1, 2), geometry.Pt(3, 4), geometry.Pt(1, 2), geometry.Pt(3, 4), geometry.Pt(1, 2),
	}, got)
}

func TestScripted_EmptyLoop(t *testing.T) {
	s := NewScripted()
	s.Loop = true
	_, ok := s.Point()
	assert.False(t, ok)
}

func TestNewSweep(t *testing.T) {
	s := NewSweep(4, 4, 2, 2)
	// Two rows of two points, each followed by a lift.
	assert.Equal(t, 6, s.Remaining())

	want := []struct {
		p  geometry.Point2D
		ok bool
	}{
		{geometry.Pt(0, 0), true},
		{geometry.Pt(2, 0), true},
		{geometry.Point2D{}, false},
		{geometry.Pt(0, 2), true},
		{geometry.Pt(2, 2), true},
		{geometry.Point2D{}, false},
	}
	for i, w := range want {
		p, ok := s.Point()
		assert.Equal(t, w.ok, ok, "reading %d", i)
		assert.Equal(t, w.p, p, "reading %d", i)
	}

	assert.Equal(t, 0, NewSweep(4, 4, 0, 1).Remaining())
}

func TestFunc(t *testing.T) {
	calls := 0
	src := Func(func() (geometry.Point2D, bool) {
		calls++
		return geometry.Pt(float64(calls), 0), calls%2 == 1
	})

	img, err := src.Update()
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())

	p, ok := src.Point()
	assert.True(t, ok)
	assert.Equal(t, geometry.Pt(1, 0), p)
	_, ok = src.Point()
	assert.False(t, ok)
}
