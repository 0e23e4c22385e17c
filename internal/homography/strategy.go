package homography

import (
	"math/rand/v2"

	"github.com/banshee-data/paintbrush/internal/geometry"
)

// Strategy chooses calibration targets and decides when enough pairs exist.
type Strategy interface {
	// Name identifies the strategy in logs and stored calibrations.
	Name() string
	// Next returns the next target point to present, or false when the
	// strategy has no more candidates before a solve is expected.
	Next() (geometry.Point2D, bool)
	// Add records a pair and reports whether more points are needed.
	Add(target, sensor geometry.Point2D) bool
	// Solve computes the transform from the pairs recorded so far.
	Solve() (geometry.Transform, error)
	// Pairs returns the recorded pairs.
	Pairs() []Correspondence
}

// Strategy names accepted by New.
const (
	StrategyCorners = "corners"
	StrategyScatter = "scatter"
)

// New returns the named strategy for a width x height target. It reports
// false for an unknown name or a target without area.
func New(name string, width, height int) (Strategy, bool) {
	if width <= 0 || height <= 0 {
		return nil, false
	}
	switch name {
	case StrategyCorners, "":
		return NewFixedCorner(width, height), true
	case StrategyScatter:
		return NewRandomScatter(width, height, nil), true
	}
	return nil, false
}

// FixedCorner presents the four target corners in the order top-left,
// top-right, bottom-left, bottom-right and accepts exactly four pairs.
type FixedCorner struct {
	width, height float64
	issued        int
	store         Store
}

// NewFixedCorner returns a strategy for the corners of a width x height target.
func NewFixedCorner(width, height int) *FixedCorner {
	return &FixedCorner{width: float64(width), height: float64(height)}
}

func (f *FixedCorner) Name() string { return StrategyCorners }

func (f *FixedCorner) Next() (geometry.Point2D, bool) {
	corners := [MinPairs]geometry.Point2D{
		{X: 0, Y: 0},
		{X: f.width, Y: 0},
		{X: 0, Y: f.height},
		{X: f.width, Y: f.height},
	}
	if f.issued >= len(corners) {
		return geometry.Point2D{}, false
	}
	p := corners[f.issued]
	f.issued++
	return p, true
}

// Add ignores pairs once four are stored.
func (f *FixedCorner) Add(target, sensor geometry.Point2D) bool {
	if f.store.Len() < MinPairs {
		f.store.Add(target, sensor)
	}
	return f.store.Len() != MinPairs
}

func (f *FixedCorner) Solve() (geometry.Transform, error) { return Solve(&f.store) }

func (f *FixedCorner) Pairs() []Correspondence { return f.store.Pairs() }

// RandomScatter presents integer points drawn uniformly from the target area.
// It accepts any number of pairs; more than four gives a least-squares fit.
type RandomScatter struct {
	width, height int
	rng           *rand.Rand
	store         Store
}

// NewRandomScatter returns a scatter strategy. A nil rng uses the global source.
func NewRandomScatter(width, height int, rng *rand.Rand) *RandomScatter {
	return &RandomScatter{width: width, height: height, rng: rng}
}

func (r *RandomScatter) Name() string { return StrategyScatter }

func (r *RandomScatter) Next() (geometry.Point2D, bool) {
	return geometry.Point2D{
		X: float64(r.intN(r.width + 1)),
		Y: float64(r.intN(r.height + 1)),
	}, true
}

func (r *RandomScatter) intN(n int) int {
	if r.rng == nil {
		return rand.IntN(n)
	}
	return r.rng.IntN(n)
}

// Add always records the pair. The result is advisory: callers may keep adding
// points after it turns false.
func (r *RandomScatter) Add(target, sensor geometry.Point2D) bool {
	r.store.Add(target, sensor)
	return r.store.Len() < MinPairs
}

func (r *RandomScatter) Solve() (geometry.Transform, error) { return Solve(&r.store) }

func (r *RandomScatter) Pairs() []Correspondence { return r.store.Pairs() }
