// Package homography estimates the projective transform between a camera and
// a display or canvas from matched point pairs.
//
// Two strategies decide which target points are presented and how many pairs
// are accepted: FixedCorner uses the four corners of the target, RandomScatter
// uses any number of uniformly scattered points. Both feed the same
// least-squares solver.
package homography

import "github.com/banshee-data/paintbrush/internal/geometry"

// MinPairs is the number of correspondences needed to recover a homography.
const MinPairs = 4

// Correspondence is a target-space point and the sensor-space point observed
// while the light was held over it.
type Correspondence struct {
	Target geometry.Point2D `json:"target"`
	Sensor geometry.Point2D `json:"sensor"`
}

// Store is an ordered list of correspondences.
type Store struct {
	pairs []Correspondence
}

// Add appends a pair.
func (s *Store) Add(target, sensor geometry.Point2D) {
	s.pairs = append(s.pairs, Correspondence{Target: target, Sensor: sensor})
}

// Len returns the number of stored pairs.
func (s *Store) Len() int {
	return len(s.pairs)
}

// Pairs returns a copy of the stored pairs in insertion order.
func (s *Store) Pairs() []Correspondence {
	out := make([]Correspondence, len(s.pairs))
	copy(out, s.pairs)
	return out
}
